package xges

import (
	"cmp"
	"encoding/xml"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"timeliner/internal/ges"
)

// TransitionAsset is the asset id written for every crossfade.
const TransitionAsset = "crossfade"

// Encoder writes timelines as XGES XML.
type Encoder struct {
	w      io.Writer
	indent string
}

// NewEncoder creates an encoder that indents with two spaces.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, indent: "  "}
}

// Encode writes tl to w. Call it after Commit so the transitions match the
// current overlaps.
func Encode(w io.Writer, tl *ges.Timeline) error {
	return NewEncoder(w).Encode(tl)
}

// Encode converts tl and writes it with an XML header.
func (e *Encoder) Encode(tl *ges.Timeline) error {
	doc := Build(tl)
	output, err := xml.MarshalIndent(doc, "", e.indent)
	if err != nil {
		return fmt.Errorf("failed to marshal XGES: %w", err)
	}
	if _, err := io.WriteString(e.w, xml.Header); err != nil {
		return err
	}
	if _, err := e.w.Write(output); err != nil {
		return err
	}
	_, err = io.WriteString(e.w, "\n")
	return err
}

// Build maps tl onto the XGES document model. Each track index becomes a
// layer; an object whose video and audio indices differ is split into one
// clip per layer. Active transitions become crossfade clips on the layer of
// their track.
func Build(tl *ges.Timeline) *GES {
	doc := &GES{
		Version: Version,
		Project: Project{
			Properties: "properties;",
			Metadatas:  "metadatas;",
			Timeline: Timeline{
				Properties: "properties, auto-transition=(boolean)true;",
				Metadatas:  fmt.Sprintf("metadatas, duration=(guint64)%d;", nanoseconds(tl.End())),
			},
		},
	}

	trackID := 0
	for _, mt := range []ges.MediaType{ges.MediaTypeVideo, ges.MediaTypeAudio} {
		if tl.MediaType()&mt == 0 {
			continue
		}
		doc.Project.Timeline.Tracks = append(doc.Project.Timeline.Tracks, Track{
			Caps:       string(mt.Caps()) + "(ANY)",
			TrackType:  int(mt),
			TrackID:    trackID,
			Properties: "properties, mixing=(boolean)true;",
			Metadatas:  "metadatas;",
		})
		trackID++
	}

	layers := map[int]*Layer{}
	layerFor := func(priority int) *Layer {
		l, ok := layers[priority]
		if !ok {
			l = &Layer{
				Priority:   priority,
				Properties: "properties, auto-transition=(boolean)true;",
				Metadatas:  "metadatas, volume=(float)1;",
			}
			layers[priority] = l
		}
		return l
	}

	for _, o := range tl.Objects() {
		byLayer := map[int]ges.MediaType{}
		for _, mt := range (o.MediaType() & tl.MediaType()).Split() {
			byLayer[o.TrackIndex(mt)] |= mt
		}
		for _, priority := range sortedKeys(byLayer) {
			l := layerFor(priority)
			l.Clips = append(l.Clips, objectClip(o, priority, byLayer[priority]))
		}
	}

	for _, tr := range tl.Tracks() {
		for _, t := range tr.Transitions() {
			l := layerFor(tr.Index())
			l.Clips = append(l.Clips, transitionClip(t, tr.Index()))
		}
	}

	clipID := 0
	for _, priority := range sortedKeys(layers) {
		l := layers[priority]
		slices.SortStableFunc(l.Clips, func(a, b Clip) int {
			if c := cmp.Compare(a.Start, b.Start); c != 0 {
				return c
			}
			return cmp.Compare(clipOrder(a), clipOrder(b))
		})
		for i := range l.Clips {
			l.Clips[i].ID = clipID
			clipID++
		}
		doc.Project.Timeline.Layers = append(doc.Project.Timeline.Layers, *l)
	}
	return doc
}

func objectClip(o *ges.Object, priority int, trackTypes ges.MediaType) Clip {
	clip := Clip{
		LayerPriority: priority,
		TrackTypes:    int(trackTypes),
		Start:         nanoseconds(o.Start()),
		Duration:      nanoseconds(o.Duration()),
		Inpoint:       nanoseconds(o.Inpoint()),
		Properties:    clipProperties(o.ID().String()[:8]),
		Metadatas:     fmt.Sprintf(`metadatas, timeliner-id=(string)"%s";`, o.ID()),
	}
	rec, _ := o.Serialize()
	switch o.Kind() {
	case "URISource", "URIClip":
		clip.TypeName = ClipTypeURI
		clip.AssetID = rec.Field(0)
	default:
		clip.TypeName = ClipTypeTest
		clip.AssetID = ClipTypeTest
		if pattern := rec.Field(0); pattern != "" {
			clip.ChildrenProperties = fmt.Sprintf("properties, pattern=(string)%s;", escapeGstString(pattern))
		}
	}
	return clip
}

func transitionClip(t *ges.Transition, priority int) Clip {
	fadeIn := t.FadeIn()
	return Clip{
		AssetID:       TransitionAsset,
		TypeName:      ClipTypeTransition,
		LayerPriority: priority,
		TrackTypes:    int(t.MediaType()),
		Start:         nanoseconds(fadeIn.Start()),
		Duration:      nanoseconds(t.Duration()),
		Properties:    clipProperties(fmt.Sprintf("%s-%s", t.FadeOut().ID().String()[:8], fadeIn.ID().String()[:8])),
	}
}

// Objects sort before transitions that start at the same time.
func clipOrder(c Clip) int {
	if c.TypeName == ClipTypeTransition {
		return 1
	}
	return 0
}

func clipProperties(name string) string {
	return fmt.Sprintf(`properties, name=(string)"%s", mute=(boolean)false, is-image=(boolean)false;`, escapeGstString(name))
}

// escapeGstString escapes strings for GStreamer structures.
func escapeGstString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, ` `, `\ `)
	s = strings.ReplaceAll(s, `,`, `\,`)
	return s
}

func nanoseconds(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
