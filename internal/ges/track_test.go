package ges

import (
	"context"
	"reflect"
	"testing"
	"time"

	"timeliner/internal/render"
)

func newVideoTimeline(t *testing.T, g render.Graph) *Timeline {
	t.Helper()
	tl, err := New(g, MediaTypeVideo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := tl.Close(); err != nil {
			t.Errorf("close timeline: %v", err)
		}
	})
	return tl
}

func curvePoints(t *testing.T, g render.Graph, o *Object, property string) []render.ControlPoint {
	t.Helper()
	node, ok := o.RenderNode(MediaTypeVideo)
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	curve, ok := g.Controllable(node, property)
	if !ok {
		t.Fatalf("%v: expected ok to be true", property)
	}
	return curve.Points()
}

type transitionLog struct {
	created []TransitionEvent
	removed []TransitionEvent
}

func watchTransitions(tl *Timeline) *transitionLog {
	log := &transitionLog{}
	tl.OnTransition(func(ev TransitionEvent) {
		if ev.Kind == TransitionCreated {
			log.created = append(log.created, ev)
			return
		}
		log.removed = append(log.removed, ev)
	})
	return log
}

func TestOverlapCreatesThenMoveRemovesTransition(t *testing.T) {
	g := render.NewEngine(nil)
	tl := newVideoTimeline(t, g)
	events := watchTransitions(tl)

	a := newVideoSource(t, g, 0, 60*time.Second, time.Second)
	b := newVideoSource(t, g, 500*time.Millisecond, 150*time.Second, time.Second)
	if err := tl.AddObject(a.Object); err != nil {
		t.Fatalf("tl.AddObject(a.Object): %v", err)
	}
	if err := tl.AddObject(b.Object); err != nil {
		t.Fatalf("tl.AddObject(b.Object): %v", err)
	}
	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}

	transitions := tl.Transitions()
	if len(transitions) != 1 {
		t.Fatalf("len(transitions) = %d, want 1", len(transitions))
	}
	tr := transitions[0]
	if tr.FadeOut() != a.Object {
		t.Fatalf("tr.FadeOut() is not a.Object")
	}
	if tr.FadeIn() != b.Object {
		t.Fatalf("tr.FadeIn() is not b.Object")
	}
	if got := tr.Start(); got != 60500*time.Millisecond {
		t.Fatalf("tr.Start() = %v, want %v", got, 60500*time.Millisecond)
	}
	if got := tr.Stop(); got != 61*time.Second {
		t.Fatalf("tr.Stop() = %v, want %v", got, 61*time.Second)
	}
	if got := tr.Duration(); got != 500*time.Millisecond {
		t.Fatalf("tr.Duration() = %v, want %v", got, 500*time.Millisecond)
	}
	if len(events.created) != 1 {
		t.Fatalf("len(events.created) = %d, want 1", len(events.created))
	}
	if got := events.created[0].MediaType; got != MediaTypeVideo {
		t.Fatalf("events.created[0].MediaType = %v, want %v", got, MediaTypeVideo)
	}
	if got := events.created[0].TrackIndex; got != 0 {
		t.Fatalf("events.created[0].TrackIndex = %v, want %v", got, 0)
	}

	if got, want := curvePoints(t, g, a.Object, videoFadeOutProperty), []render.ControlPoint{
		{At: 60 * time.Second, Value: 1},
		{At: 60500 * time.Millisecond, Value: 1},
		{At: 61 * time.Second, Value: 0},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, a.Object, videoFadeOutProperty) = %v, want %v", got, want)
	}
	if got, want := curvePoints(t, g, b.Object, videoFadeInProperty), []render.ControlPoint{
		{At: 150 * time.Second, Value: 0},
		{At: 150500 * time.Millisecond, Value: 1},
		{At: 151 * time.Second, Value: 1},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, b.Object, videoFadeInProperty) = %v, want %v", got, want)
	}
	if got, want := curvePoints(t, g, b.Object, videoZOrderProperty), []render.ControlPoint{
		{At: 150 * time.Second, Value: 1},
		{At: 150500 * time.Millisecond, Value: 0},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, b.Object, videoZOrderProperty) = %v, want %v", got, want)
	}

	if !b.SetStart(1500 * time.Millisecond) {
		t.Fatalf("expected b.SetStart(1500*time.Millisecond) to be true")
	}
	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}

	if got := tl.Transitions(); len(got) != 0 {
		t.Fatalf("tl.Transitions() = %v, want empty", got)
	}
	if len(events.removed) != 1 {
		t.Fatalf("len(events.removed) = %d, want 1", len(events.removed))
	}
	if events.removed[0].FadeOut != a.Object {
		t.Fatalf("events.removed[0].FadeOut is not a.Object")
	}
	if events.removed[0].FadeIn != b.Object {
		t.Fatalf("events.removed[0].FadeIn is not b.Object")
	}
	if tr.Active() {
		t.Fatalf("expected tr.Active() to be false")
	}
	if a.OutgoingTransition(MediaTypeVideo) != nil {
		t.Fatalf("a.OutgoingTransition(MediaTypeVideo) = %v, want nil", a.OutgoingTransition(MediaTypeVideo))
	}

	if got, want := curvePoints(t, g, a.Object, videoFadeOutProperty), []render.ControlPoint{
		{At: 60 * time.Second, Value: 1},
		{At: 61 * time.Second, Value: 1},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, a.Object, videoFadeOutProperty) = %v, want %v", got, want)
	}
	if got, want := curvePoints(t, g, b.Object, videoFadeInProperty), []render.ControlPoint{
		{At: 150 * time.Second, Value: 1},
		{At: 151 * time.Second, Value: 1},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, b.Object, videoFadeInProperty) = %v, want %v", got, want)
	}
	if got := curvePoints(t, g, b.Object, videoZOrderProperty); len(got) != 0 {
		t.Fatalf("curvePoints(t, g, b.Object, videoZOrderProperty) = %v, want empty", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tl.WaitIdle(ctx); err != nil {
		t.Fatalf("tl.WaitIdle(ctx): %v", err)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	g := render.NewEngine(nil)
	tl := newVideoTimeline(t, g)
	events := watchTransitions(tl)

	a := newVideoSource(t, g, 0, 0, 2*time.Second)
	b := newVideoSource(t, g, time.Second, 0, 2*time.Second)
	if err := tl.AddObject(a.Object); err != nil {
		t.Fatalf("tl.AddObject(a.Object): %v", err)
	}
	if err := tl.AddObject(b.Object); err != nil {
		t.Fatalf("tl.AddObject(b.Object): %v", err)
	}

	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}
	first := tl.Transitions()
	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}
	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}

	if got := tl.Transitions(); !reflect.DeepEqual(got, first) {
		t.Fatalf("tl.Transitions() = %v, want %v", got, first)
	}
	if len(events.created) != 1 {
		t.Fatalf("len(events.created) = %d, want 1", len(events.created))
	}
	if len(events.removed) != 0 {
		t.Fatalf("len(events.removed) = %d, want 0", len(events.removed))
	}
}

func TestTransitionExistsOnlyForOverlappingNeighbours(t *testing.T) {
	g := render.NewEngine(nil)
	tl := newVideoTimeline(t, g)

	spans := []struct{ start, duration time.Duration }{
		{0, 2 * time.Second},
		{time.Second, 2 * time.Second},
		{3 * time.Second, time.Second},
		{3500 * time.Millisecond, time.Second},
	}
	for _, span := range spans {
		s := newVideoSource(t, g, span.start, 0, span.duration)
		if err := tl.AddObject(s.Object); err != nil {
			t.Fatalf("tl.AddObject(s.Object): %v", err)
		}
	}
	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}

	track, ok := tl.Track(MediaTypeVideo, 0)
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	objects := track.Objects()
	if len(objects) != 4 {
		t.Fatalf("len(objects) = %d, want 4", len(objects))
	}
	for i := 0; i+1 < len(objects); i++ {
		prev, next := objects[i], objects[i+1]
		tr := prev.OutgoingTransition(MediaTypeVideo)
		if prev.End() > next.Start() {
			if tr == nil {
				t.Fatalf("pair %d: tr is nil", i)
			}
			if tr.FadeIn() != next {
				t.Fatalf("tr.FadeIn() is not next")
			}
		} else {
			if tr != nil {
				t.Fatalf("pair %d: tr = %v, want nil", i, tr)
			}
		}
	}
	if got := tl.Transitions(); len(got) != 2 {
		t.Fatalf("len(tl.Transitions()) = %d, want 2", len(got))
	}
	if objects[3].OutgoingTransition(MediaTypeVideo) != nil {
		t.Fatalf("objects[3].OutgoingTransition(MediaTypeVideo) = %v, want nil", objects[3].OutgoingTransition(MediaTypeVideo))
	}
}

func TestChainedTransitionsKeepSeparateCurves(t *testing.T) {
	g := render.NewEngine(nil)
	tl := newVideoTimeline(t, g)
	events := watchTransitions(tl)

	a := newVideoSource(t, g, 0, 0, 2*time.Second)
	b := newVideoSource(t, g, time.Second, 0, 2*time.Second)
	c := newVideoSource(t, g, 2500*time.Millisecond, 0, 2*time.Second)
	for _, s := range []*TestSource{a, b, c} {
		if err := tl.AddObject(s.Object); err != nil {
			t.Fatalf("tl.AddObject(s.Object): %v", err)
		}
	}
	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}
	if got := tl.Transitions(); len(got) != 2 {
		t.Fatalf("len(tl.Transitions()) = %d, want 2", len(got))
	}

	fadeIn := []render.ControlPoint{
		{At: 0, Value: 0},
		{At: time.Second, Value: 1},
		{At: 2 * time.Second, Value: 1},
	}
	if got := curvePoints(t, g, b.Object, videoFadeInProperty); !reflect.DeepEqual(got, fadeIn) {
		t.Fatalf("curvePoints(t, g, b.Object, videoFadeInProperty) = %v, want %v", got, fadeIn)
	}
	if got, want := curvePoints(t, g, b.Object, videoFadeOutProperty), []render.ControlPoint{
		{At: 0, Value: 1},
		{At: 1500 * time.Millisecond, Value: 1},
		{At: 2 * time.Second, Value: 0},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, b.Object, videoFadeOutProperty) = %v, want %v", got, want)
	}

	if err := tl.RemoveObject(c.Object); err != nil {
		t.Fatalf("tl.RemoveObject(c.Object): %v", err)
	}
	if len(events.removed) != 1 {
		t.Fatalf("len(events.removed) = %d, want 1", len(events.removed))
	}
	if events.removed[0].FadeIn != c.Object {
		t.Fatalf("events.removed[0].FadeIn is not c.Object")
	}
	if c.Timeline() != nil {
		t.Fatalf("c.Timeline() = %v, want nil", c.Timeline())
	}
	if got := curvePoints(t, g, b.Object, videoFadeInProperty); !reflect.DeepEqual(got, fadeIn) {
		t.Fatalf("curvePoints(t, g, b.Object, videoFadeInProperty) = %v, want %v", got, fadeIn)
	}
	if got, want := curvePoints(t, g, b.Object, videoFadeOutProperty), []render.ControlPoint{
		{At: 0, Value: 1},
		{At: 2 * time.Second, Value: 1},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, b.Object, videoFadeOutProperty) = %v, want %v", got, want)
	}

	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}
	if got := tl.Transitions(); len(got) != 1 {
		t.Fatalf("len(tl.Transitions()) = %d, want 1", len(got))
	}
	if len(events.removed) != 1 {
		t.Fatalf("len(events.removed) = %d, want 1", len(events.removed))
	}
}

func TestReorderReplacesTransitionOwnership(t *testing.T) {
	g := render.NewEngine(nil)
	tl := newVideoTimeline(t, g)
	events := watchTransitions(tl)

	a := newVideoSource(t, g, 0, 0, 3*time.Second)
	b := newVideoSource(t, g, time.Second, 0, 3*time.Second)
	if err := tl.AddObject(a.Object); err != nil {
		t.Fatalf("tl.AddObject(a.Object): %v", err)
	}
	if err := tl.AddObject(b.Object); err != nil {
		t.Fatalf("tl.AddObject(b.Object): %v", err)
	}
	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}

	if !a.SetStart(2 * time.Second) {
		t.Fatalf("expected a.SetStart(2*time.Second) to be true")
	}
	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}

	transitions := tl.Transitions()
	if len(transitions) != 1 {
		t.Fatalf("len(transitions) = %d, want 1", len(transitions))
	}
	if transitions[0].FadeOut() != b.Object {
		t.Fatalf("transitions[0].FadeOut() is not b.Object")
	}
	if transitions[0].FadeIn() != a.Object {
		t.Fatalf("transitions[0].FadeIn() is not a.Object")
	}
	if got := transitions[0].Start(); got != time.Second {
		t.Fatalf("transitions[0].Start() = %v, want %v", got, time.Second)
	}
	if got := transitions[0].Stop(); got != 3*time.Second {
		t.Fatalf("transitions[0].Stop() = %v, want %v", got, 3*time.Second)
	}
	if len(events.created) != 2 {
		t.Fatalf("len(events.created) = %d, want 2", len(events.created))
	}
	if len(events.removed) != 1 {
		t.Fatalf("len(events.removed) = %d, want 1", len(events.removed))
	}

	if got, want := curvePoints(t, g, a.Object, videoFadeInProperty), []render.ControlPoint{
		{At: 0, Value: 0},
		{At: 2 * time.Second, Value: 1},
		{At: 3 * time.Second, Value: 1},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, a.Object, videoFadeInProperty) = %v, want %v", got, want)
	}
	if got, want := curvePoints(t, g, a.Object, videoFadeOutProperty), []render.ControlPoint{
		{At: 0, Value: 1},
		{At: 3 * time.Second, Value: 1},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, a.Object, videoFadeOutProperty) = %v, want %v", got, want)
	}
	if got, want := curvePoints(t, g, b.Object, videoFadeOutProperty), []render.ControlPoint{
		{At: 0, Value: 1},
		{At: time.Second, Value: 1},
		{At: 3 * time.Second, Value: 0},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, b.Object, videoFadeOutProperty) = %v, want %v", got, want)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	g := render.NewEngine(nil)
	tl := newVideoTimeline(t, g)

	a := newVideoSource(t, g, 0, 0, 2*time.Second)
	b := newVideoSource(t, g, time.Second, 0, 2*time.Second)
	if err := tl.AddObject(a.Object); err != nil {
		t.Fatalf("tl.AddObject(a.Object): %v", err)
	}
	if err := tl.AddObject(b.Object); err != nil {
		t.Fatalf("tl.AddObject(b.Object): %v", err)
	}
	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}

	tr := a.OutgoingTransition(MediaTypeVideo)
	if tr == nil {
		t.Fatalf("tr is nil")
	}
	tr.Reset()
	tr.Reset()
	tr.Update()

	if tr.Active() {
		t.Fatalf("expected tr.Active() to be false")
	}
	if tr.FadeOut() != nil {
		t.Fatalf("tr.FadeOut() = %v, want nil", tr.FadeOut())
	}
	if a.OutgoingTransition(MediaTypeVideo) != nil {
		t.Fatalf("a.OutgoingTransition(MediaTypeVideo) = %v, want nil", a.OutgoingTransition(MediaTypeVideo))
	}
	if got, want := curvePoints(t, g, a.Object, videoFadeOutProperty), []render.ControlPoint{
		{At: 0, Value: 1},
		{At: 2 * time.Second, Value: 1},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("curvePoints(t, g, a.Object, videoFadeOutProperty) = %v, want %v", got, want)
	}
}

func TestAudioTransitionDrivesVolumeElements(t *testing.T) {
	g := render.NewEngine(nil)
	tl, err := New(g, MediaTypeAudio)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := tl.Close(); err != nil {
			t.Errorf("close timeline: %v", err)
		}
	})

	a, err := NewTestSource(g, MediaTypeAudio, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.SetDuration(2 * time.Second) {
		t.Fatalf("expected a.SetDuration(2*time.Second) to be true")
	}
	b, err := NewTestSource(g, MediaTypeAudio, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.SetDuration(2 * time.Second) {
		t.Fatalf("expected b.SetDuration(2*time.Second) to be true")
	}
	if !b.SetStart(time.Second) {
		t.Fatalf("expected b.SetStart(time.Second) to be true")
	}
	if err := tl.AddObject(a.Object); err != nil {
		t.Fatalf("tl.AddObject(a.Object): %v", err)
	}
	if err := tl.AddObject(b.Object); err != nil {
		t.Fatalf("tl.AddObject(b.Object): %v", err)
	}
	if err := tl.Commit(); err != nil {
		t.Fatalf("tl.Commit(): %v", err)
	}

	if got := tl.Transitions(); len(got) != 1 {
		t.Fatalf("len(tl.Transitions()) = %d, want 1", len(got))
	}
	nodeA, _ := a.RenderNode(MediaTypeAudio)
	out, ok := g.Controllable(nodeA, audioFadeOutProperty)
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	if got, want := out.Points(), []render.ControlPoint{
		{At: 0, Value: 1},
		{At: time.Second, Value: 1},
		{At: 2 * time.Second, Value: 0},
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("out.Points() = %v, want %v", got, want)
	}

	nodeB, _ := b.RenderNode(MediaTypeAudio)
	in, ok := g.Controllable(nodeB, audioFadeInProperty)
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	if got := in.Len(); got != 3 {
		t.Fatalf("in.Len() = %v, want %v", got, 3)
	}
}
