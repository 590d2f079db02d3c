package xges

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"timeliner/internal/asset"
	"timeliner/internal/ges"
	"timeliner/internal/render"
)

func decode(t *testing.T, data []byte) GES {
	t.Helper()
	var doc GES
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, data)
	}
	return doc
}

func TestEncodeWritesTracksClipsAndTransitions(t *testing.T) {
	g := render.NewEngine(nil)
	tl, err := ges.New(g, ges.MediaTypeVideo|ges.MediaTypeAudio)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer tl.Close()

	a, err := ges.NewTestClip(g, ges.MediaTypeVideo|ges.MediaTypeAudio, "snow")
	if err != nil {
		t.Fatalf("NewTestClip failed: %v", err)
	}
	a.SetDuration(2 * time.Second)
	b, err := ges.NewTestSource(g, ges.MediaTypeVideo, "ball")
	if err != nil {
		t.Fatalf("NewTestSource failed: %v", err)
	}
	b.SetDuration(2 * time.Second)
	b.SetStart(time.Second)
	for _, o := range []*ges.Object{a.Object, b.Object} {
		if err := tl.AddObject(o); err != nil {
			t.Fatalf("AddObject failed: %v", err)
		}
	}
	if err := tl.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, tl); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), xml.Header) {
		t.Fatal("missing XML header")
	}
	doc := decode(t, buf.Bytes())

	if doc.Version != Version {
		t.Fatalf("unexpected version %q", doc.Version)
	}
	tracks := doc.Project.Timeline.Tracks
	if len(tracks) != 2 || tracks[0].TrackType != TrackTypeVideo || tracks[1].TrackType != TrackTypeAudio {
		t.Fatalf("unexpected tracks %#v", tracks)
	}
	if tracks[0].Caps != "video/x-raw(ANY)" {
		t.Fatalf("unexpected caps %q", tracks[0].Caps)
	}

	layers := doc.Project.Timeline.Layers
	if len(layers) != 1 {
		t.Fatalf("expected 1 layer, got %d", len(layers))
	}
	clips := layers[0].Clips
	if len(clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(clips))
	}

	if clips[0].TypeName != ClipTypeTest || clips[0].TrackTypes != TrackTypeVideo|TrackTypeAudio {
		t.Fatalf("unexpected first clip %#v", clips[0])
	}
	if !strings.Contains(clips[0].ChildrenProperties, "pattern=(string)snow") {
		t.Fatalf("pattern missing: %q", clips[0].ChildrenProperties)
	}
	if clips[1].Start != uint64(time.Second) || clips[1].TrackTypes != TrackTypeVideo {
		t.Fatalf("unexpected second clip %#v", clips[1])
	}

	transition := clips[2]
	if transition.TypeName != ClipTypeTransition || transition.AssetID != TransitionAsset {
		t.Fatalf("unexpected transition clip %#v", transition)
	}
	if transition.Start != uint64(time.Second) || transition.Duration != uint64(time.Second) {
		t.Fatalf("unexpected transition window start=%d duration=%d", transition.Start, transition.Duration)
	}
	if transition.TrackTypes != TrackTypeVideo {
		t.Fatalf("expected a video transition, got %d", transition.TrackTypes)
	}
	for i, clip := range clips {
		if clip.ID != i {
			t.Fatalf("clip %d has id %d", i, clip.ID)
		}
	}
}

func TestBuildSplitsClipAcrossLayers(t *testing.T) {
	g := render.NewEngine(nil)
	tl, err := ges.New(g, ges.MediaTypeVideo|ges.MediaTypeAudio)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer tl.Close()

	c, err := ges.NewTestClip(g, ges.MediaTypeVideo|ges.MediaTypeAudio, "")
	if err != nil {
		t.Fatalf("NewTestClip failed: %v", err)
	}
	c.SetDuration(time.Second)
	c.SetTrackIndex(ges.MediaTypeAudio, 1)
	if err := tl.AddObject(c.Object); err != nil {
		t.Fatalf("AddObject failed: %v", err)
	}

	doc := Build(tl)
	layers := doc.Project.Timeline.Layers
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if layers[0].Priority != 0 || layers[0].Clips[0].TrackTypes != TrackTypeVideo {
		t.Fatalf("unexpected layer 0 %#v", layers[0])
	}
	if layers[1].Priority != 1 || layers[1].Clips[0].TrackTypes != TrackTypeAudio {
		t.Fatalf("unexpected layer 1 %#v", layers[1])
	}
	if layers[1].Clips[0].LayerPriority != 1 {
		t.Fatalf("clip layer priority not set: %#v", layers[1].Clips[0])
	}
}

func TestBuildURIClipUsesOriginalURI(t *testing.T) {
	g := render.NewEngine(nil)
	tl, err := ges.New(g, ges.MediaTypeAudio)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer tl.Close()

	uri := "file:///media/a\"b.ogg"
	env := ges.Env{
		Graph:    g,
		Resolver: asset.Static{uri: {Duration: 3 * time.Second, HasAudio: true}},
	}
	s, err := ges.NewURISource(t.Context(), env, uri, ges.MediaTypeAudio)
	if err != nil {
		t.Fatalf("NewURISource failed: %v", err)
	}
	if err := tl.AddObject(s.Object); err != nil {
		t.Fatalf("AddObject failed: %v", err)
	}

	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(tl); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	clip := decode(t, buf.Bytes()).Project.Timeline.Layers[0].Clips[0]
	if clip.TypeName != ClipTypeURI || clip.AssetID != uri {
		t.Fatalf("unexpected uri clip %#v", clip)
	}
	if clip.Duration != uint64(3*time.Second) {
		t.Fatalf("unexpected duration %d", clip.Duration)
	}
}
