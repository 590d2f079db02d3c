package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"timeliner/internal/ges"
)

type objectView struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	MediaType string `json:"media_type"`
	Start     string `json:"start"`
	Duration  string `json:"duration"`
	Inpoint   string `json:"inpoint"`
	Tracks    string `json:"tracks"`
	Source    string `json:"source"`
}

type transitionView struct {
	MediaType string `json:"media_type"`
	Track     int    `json:"track"`
	FadeOut   string `json:"fade_out"`
	FadeIn    string `json:"fade_in"`
	Start     string `json:"start"`
	Duration  string `json:"duration"`
}

type projectView struct {
	Path        string           `json:"path"`
	MediaType   string           `json:"media_type"`
	End         string           `json:"end"`
	Objects     []objectView     `json:"objects"`
	Transitions []transitionView `json:"transitions"`
}

func mediaLabel(mt ges.MediaType) string {
	return cases.Title(language.Und).String(mt.String())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

func trackLabel(o *ges.Object) string {
	var parts []string
	for _, mt := range o.MediaType().Split() {
		parts = append(parts, fmt.Sprintf("%c%d", mt.String()[0], o.TrackIndex(mt)))
	}
	return strings.Join(parts, " ")
}

func newObjectView(o *ges.Object) objectView {
	view := objectView{
		ID:        o.ID().String(),
		Kind:      o.Kind(),
		MediaType: mediaLabel(o.MediaType()),
		Start:     formatDuration(o.Start()),
		Duration:  formatDuration(o.Duration()),
		Inpoint:   formatDuration(o.Inpoint()),
		Tracks:    trackLabel(o),
	}
	if rec, ok := o.Serialize(); ok {
		view.Source = rec.Field(0)
	}
	return view
}

func newTransitionViews(tl *ges.Timeline) []transitionView {
	var views []transitionView
	for _, track := range tl.Tracks() {
		for _, tr := range track.Transitions() {
			views = append(views, transitionView{
				MediaType: mediaLabel(tr.MediaType()),
				Track:     track.Index(),
				FadeOut:   tr.FadeOut().ID().String(),
				FadeIn:    tr.FadeIn().ID().String(),
				Start:     formatDuration(tr.Start()),
				Duration:  formatDuration(tr.Duration()),
			})
		}
	}
	return views
}

func newProjectView(path string, tl *ges.Timeline) projectView {
	view := projectView{
		Path:        path,
		MediaType:   mediaLabel(tl.MediaType()),
		End:         formatDuration(tl.End()),
		Objects:     []objectView{},
		Transitions: newTransitionViews(tl),
	}
	for _, o := range tl.Objects() {
		view.Objects = append(view.Objects, newObjectView(o))
	}
	if view.Transitions == nil {
		view.Transitions = []transitionView{}
	}
	return view
}

func objectRows(views []objectView) [][]string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{shortID(v.ID), v.Kind, v.MediaType, v.Start, v.Duration, v.Inpoint, v.Tracks, v.Source})
	}
	return rows
}

var objectHeaders = []string{"ID", "Kind", "Media", "Start", "Duration", "Inpoint", "Tracks", "Source"}

var objectAligns = []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}

func transitionRows(views []transitionView) [][]string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{v.MediaType, fmt.Sprint(v.Track), shortID(v.FadeOut), shortID(v.FadeIn), v.Start, v.Duration})
	}
	return rows
}

var transitionHeaders = []string{"Media", "Track", "Fade out", "Fade in", "Start", "Duration"}

var transitionAligns = []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight}
