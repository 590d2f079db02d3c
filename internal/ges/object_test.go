package ges

import (
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"timeliner/internal/render"
)

func newVideoSource(t *testing.T, g render.Graph, start, inpoint, duration time.Duration) *TestSource {
	t.Helper()
	s, err := NewTestSource(g, MediaTypeVideo, DefaultVideoPattern)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.SetInpoint(inpoint) {
		t.Fatalf("expected s.SetInpoint(inpoint) to be true")
	}
	if !s.SetDuration(duration) {
		t.Fatalf("expected s.SetDuration(duration) to be true")
	}
	if !s.SetStart(start) {
		t.Fatalf("expected s.SetStart(start) to be true")
	}
	return s
}

func elementKinds(t *testing.T, g *render.Engine, parent render.NodeID) []string {
	t.Helper()
	var kinds []string
	for _, child := range g.Children(parent) {
		desc, err := g.Describe(child)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		kinds = append(kinds, desc.Element.String())
	}
	return kinds
}

func TestTestSourceBuildsFadeChain(t *testing.T) {
	g := render.NewEngine(nil)
	s := newVideoSource(t, g, time.Second, 2*time.Second, 3*time.Second)

	nodes := s.RenderNodes()
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1", len(nodes))
	}
	desc, err := g.Describe(nodes[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Caps != render.CapsVideo {
		t.Fatalf("desc.Caps = %v, want %v", desc.Caps, render.CapsVideo)
	}
	if desc.Start != time.Second {
		t.Fatalf("desc.Start = %v, want %v", desc.Start, time.Second)
	}
	if desc.Inpoint != 2*time.Second {
		t.Fatalf("desc.Inpoint = %v, want %v", desc.Inpoint, 2*time.Second)
	}
	if desc.Duration != 3*time.Second {
		t.Fatalf("desc.Duration = %v, want %v", desc.Duration, 3*time.Second)
	}
	if desc.Priority != uint32(TimelinePriorityOffset) {
		t.Fatalf("desc.Priority = %v, want %v", desc.Priority, uint32(TimelinePriorityOffset))
	}
	if got, want := elementKinds(t, g, nodes[0]), []string{"videotestsrc", "framepositioner", "alpha"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("elementKinds(t, g, nodes[0]) = %v, want %v", got, want)
	}
	if got := s.End(); got != 4*time.Second {
		t.Fatalf("s.End() = %v, want %v", got, 4*time.Second)
	}

	audio, err := NewTestSource(g, MediaTypeAudio, "square")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := elementKinds(t, g, audio.RenderNodes()[0]), []string{"audiotestsrc", "volume", "audioamplify"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("elementKinds(t, g, audio.RenderNodes()[0]) = %v, want %v", got, want)
	}
	wave, ok := g.Property(audio.RenderNodes()[0], "wave")
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	if wave != "square" {
		t.Fatalf("wave = %v, want %v", wave, "square")
	}
}

func TestTestSourceRejectsMultipleMediaTypes(t *testing.T) {
	g := render.NewEngine(nil)
	_, err := NewTestSource(g, MediaTypeVideo|MediaTypeAudio, "")
	if !errors.Is(err, ErrInvalidMediaType) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidMediaType)
	}
}

func TestTestClipBuildsOneNodePerMediaType(t *testing.T) {
	g := render.NewEngine(nil)
	c, err := NewTestClip(g, MediaTypeVideo|MediaTypeAudio, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nodes := c.RenderNodes()
	if len(nodes) != 2 {
		t.Fatalf("len(nodes) = %d, want 2", len(nodes))
	}
	if got := g.Caps(nodes[0]); got != render.CapsAudio {
		t.Fatalf("g.Caps(nodes[0]) = %v, want %v", got, render.CapsAudio)
	}
	if got := g.Caps(nodes[1]); got != render.CapsVideo {
		t.Fatalf("g.Caps(nodes[1]) = %v, want %v", got, render.CapsVideo)
	}

	pattern, ok := g.Property(nodes[1], "pattern")
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	if pattern != DefaultVideoPattern {
		t.Fatalf("pattern = %v, want %v", pattern, DefaultVideoPattern)
	}
	wave, ok := g.Property(nodes[0], "wave")
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	if wave != DefaultAudioWave {
		t.Fatalf("wave = %v, want %v", wave, DefaultAudioWave)
	}
}

func TestUnknownPatternFallsBackToDefault(t *testing.T) {
	g := render.NewEngine(nil)
	s, err := NewTestSource(g, MediaTypeVideo, "snwo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Pattern(); got != "snwo" {
		t.Fatalf("s.Pattern() = %v, want %v", got, "snwo")
	}

	pattern, ok := g.Property(s.RenderNodes()[0], "pattern")
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	if pattern != DefaultVideoPattern {
		t.Fatalf("pattern = %v, want %v", pattern, DefaultVideoPattern)
	}

	if got := closestName("snwo", videoPatterns); got != "snow" {
		t.Fatalf("closestName(\"snwo\", videoPatterns) = %v, want %v", got, "snow")
	}
	if got := closestName("sqare", audioWaves); got != "square" {
		t.Fatalf("closestName(\"sqare\", audioWaves) = %v, want %v", got, "square")
	}
	if !slices.Contains(PatternNames(MediaTypeAudio), "silence") {
		t.Fatalf("PatternNames(MediaTypeAudio) does not contain %v", "silence")
	}
	if PatternNames(MediaTypeUnknown) != nil {
		t.Fatalf("PatternNames(MediaTypeUnknown) = %v, want nil", PatternNames(MediaTypeUnknown))
	}
}

func TestSetMediaTypeOnlyBeforeMaterialization(t *testing.T) {
	g := render.NewEngine(nil)
	s, err := NewTestSource(g, MediaTypeUnknown, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Materialized() {
		t.Fatalf("expected s.Materialized() to be false")
	}

	if s.SetMediaType(MediaTypeVideo | MediaTypeAudio) {
		t.Fatalf("expected s.SetMediaType(MediaTypeVideo|MediaTypeAudio) to be false")
	}
	if !s.SetMediaType(MediaTypeAudio) {
		t.Fatalf("expected s.SetMediaType(MediaTypeAudio) to be true")
	}
	if !s.SetMediaType(MediaTypeVideo) {
		t.Fatalf("expected s.SetMediaType(MediaTypeVideo) to be true")
	}
	if got := s.RenderNodes(); len(got) != 1 {
		t.Fatalf("len(s.RenderNodes()) = %d, want 1", len(got))
	}
	if !s.Materialized() {
		t.Fatalf("expected s.Materialized() to be true")
	}

	if s.SetMediaType(MediaTypeAudio) {
		t.Fatalf("expected s.SetMediaType(MediaTypeAudio) to be false")
	}
	if got := s.MediaType(); got != MediaTypeVideo {
		t.Fatalf("s.MediaType() = %v, want %v", got, MediaTypeVideo)
	}
}

func TestTimingEditsRejectNegativeValues(t *testing.T) {
	g := render.NewEngine(nil)
	s := newVideoSource(t, g, time.Second, time.Second, time.Second)

	if s.SetStart(-1) {
		t.Fatalf("expected s.SetStart(-1) to be false")
	}
	if s.SetInpoint(-1) {
		t.Fatalf("expected s.SetInpoint(-1) to be false")
	}
	if s.SetDuration(-1) {
		t.Fatalf("expected s.SetDuration(-1) to be false")
	}
	if got := s.Start(); got != time.Second {
		t.Fatalf("s.Start() = %v, want %v", got, time.Second)
	}
	if got := s.Inpoint(); got != time.Second {
		t.Fatalf("s.Inpoint() = %v, want %v", got, time.Second)
	}
	if got := s.Duration(); got != time.Second {
		t.Fatalf("s.Duration() = %v, want %v", got, time.Second)
	}
}

func TestSetTrackIndexPushesPriority(t *testing.T) {
	g := render.NewEngine(nil)
	s := newVideoSource(t, g, 0, 0, time.Second)

	var moves []TrackIndexChange
	unsubscribe := s.OnTrackIndex(func(ch TrackIndexChange) { moves = append(moves, ch) })

	if !s.SetTrackIndex(MediaTypeVideo, 2) {
		t.Fatalf("expected s.SetTrackIndex(MediaTypeVideo, 2) to be true")
	}
	desc, err := g.Describe(s.RenderNodes()[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Priority != uint32(2*TrackPriorityHeight+TimelinePriorityOffset) {
		t.Fatalf("desc.Priority = %v, want %v", desc.Priority, uint32(2*TrackPriorityHeight+TimelinePriorityOffset))
	}
	if got := s.TrackIndex(MediaTypeVideo); got != 2 {
		t.Fatalf("s.TrackIndex(MediaTypeVideo) = %v, want %v", got, 2)
	}

	if s.SetTrackIndex(MediaTypeAudio, 1) {
		t.Fatalf("expected s.SetTrackIndex(MediaTypeAudio, 1) to be false")
	}
	if s.SetTrackIndex(MediaTypeVideo, -1) {
		t.Fatalf("expected s.SetTrackIndex(MediaTypeVideo, -1) to be false")
	}

	if len(moves) != 1 {
		t.Fatalf("len(moves) = %d, want 1", len(moves))
	}
	if got, want := moves[0], (TrackIndexChange{Object: s.Object, MediaType: MediaTypeVideo, Old: 0, New: 2}); !reflect.DeepEqual(got, want) {
		t.Fatalf("moves[0] = %v, want %v", got, want)
	}

	unsubscribe()
	if !s.SetTrackIndex(MediaTypeVideo, 3) {
		t.Fatalf("expected s.SetTrackIndex(MediaTypeVideo, 3) to be true")
	}
	if len(moves) != 1 {
		t.Fatalf("len(moves) = %d, want 1", len(moves))
	}
}

func TestTimingObservers(t *testing.T) {
	g := render.NewEngine(nil)
	s := newVideoSource(t, g, 0, 0, time.Second)

	var starts []Change[time.Duration]
	s.OnStart(func(ch Change[time.Duration]) { starts = append(starts, ch) })

	if !s.SetStart(5 * time.Second) {
		t.Fatalf("expected s.SetStart(5*time.Second) to be true")
	}
	if !s.SetStart(5 * time.Second) {
		t.Fatalf("expected s.SetStart(5*time.Second) to be true")
	}
	if want := []Change[time.Duration]{{Object: s.Object, Old: 0, New: 5 * time.Second}}; !reflect.DeepEqual(starts, want) {
		t.Fatalf("starts = %v, want %v", starts, want)
	}
}

func TestReleaseRequiresRemoval(t *testing.T) {
	g := render.NewEngine(nil)
	tl, err := New(g, MediaTypeVideo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := tl.Close(); err != nil {
			t.Errorf("close timeline: %v", err)
		}
	})

	s := newVideoSource(t, g, 0, 0, time.Second)
	if err := tl.AddObject(s.Object); err != nil {
		t.Fatalf("tl.AddObject(s.Object): %v", err)
	}
	if err := s.Release(); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("s.Release() = %v, want %v", err, ErrAlreadyMember)
	}

	if err := tl.RemoveObject(s.Object); err != nil {
		t.Fatalf("tl.RemoveObject(s.Object): %v", err)
	}
	node := s.RenderNodes()[0]
	if err := s.Release(); err != nil {
		t.Fatalf("s.Release(): %v", err)
	}
	if s.Materialized() {
		t.Fatalf("expected s.Materialized() to be false")
	}
	_, err = g.Describe(node)
	if err == nil {
		t.Fatalf("expected error")
	}
}
