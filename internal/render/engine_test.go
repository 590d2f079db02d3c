package render

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestAddRemoveTracksParent(t *testing.T) {
	e := NewEngine(nil)
	comp := e.NewComposition("video", CapsVideo)
	src := e.NewSource("clip", CapsVideo)

	if err := e.Add(comp, src); err != nil {
		t.Fatalf("e.Add(comp, src): %v", err)
	}
	if got := e.Parent(src); got != comp {
		t.Fatalf("e.Parent(src) = %v, want %v", got, comp)
	}
	if got, want := e.Children(comp), []NodeID{src}; !reflect.DeepEqual(got, want) {
		t.Fatalf("e.Children(comp) = %v, want %v", got, want)
	}

	other := e.NewComposition("other", CapsVideo)
	err := e.Add(other, src)
	if !errors.Is(err, ErrHasParent) {
		t.Fatalf("expected ErrHasParent, got %v", err)
	}

	if err := e.Remove(comp, src); err != nil {
		t.Fatalf("e.Remove(comp, src): %v", err)
	}
	if got := e.Parent(src); got != NoNode {
		t.Fatalf("e.Parent(src) = %v, want %v", got, NoNode)
	}
	if got := e.Children(comp); len(got) != 0 {
		t.Fatalf("e.Children(comp) = %v, want empty", got)
	}

	err = e.Remove(comp, src)
	if !errors.Is(err, ErrNotChild) {
		t.Fatalf("expected ErrNotChild, got %v", err)
	}
}

func TestAddRejectsCycles(t *testing.T) {
	e := NewEngine(nil)
	outer := e.NewBin("outer")
	inner := e.NewBin("inner")
	if err := e.Add(outer, inner); err != nil {
		t.Fatalf("e.Add(outer, inner): %v", err)
	}
	if err := e.Add(inner, outer); !errors.Is(err, ErrCycle) {
		t.Fatalf("e.Add(inner, outer) = %v, want %v", err, ErrCycle)
	}
}

func TestReleaseDropsSubtree(t *testing.T) {
	e := NewEngine(nil)
	src := e.NewSource("clip", CapsAudio)
	elem, err := e.NewElement(ElementAudioTestSrc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Add(src, elem); err != nil {
		t.Fatalf("e.Add(src, elem): %v", err)
	}

	if got := e.Live(); got != 2 {
		t.Fatalf("e.Live() = %d, want 2", got)
	}
	e.Release(src)
	if got := e.Live(); got != 0 {
		t.Fatalf("e.Live() = %d, want 0", got)
	}

	_, err = e.Describe(src)
	if !errors.Is(err, ErrNoSuchNode) {
		t.Fatalf("err = %v, want %v", err, ErrNoSuchNode)
	}
	_, err = e.Describe(elem)
	if !errors.Is(err, ErrNoSuchNode) {
		t.Fatalf("err = %v, want %v", err, ErrNoSuchNode)
	}
}

func TestNewElementAppliesDefaultsAndOverrides(t *testing.T) {
	e := NewEngine(nil)
	id, err := e.NewElement(ElementVideoTestSrc, map[string]any{"pattern": "snow"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := e.Describe(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Kind != KindElement {
		t.Fatalf("n.Kind = %v, want %v", n.Kind, KindElement)
	}
	if n.Caps != CapsVideo {
		t.Fatalf("n.Caps = %v, want %v", n.Caps, CapsVideo)
	}
	if got := n.Props["pattern"]; got != "snow" {
		t.Fatalf("n.Props[\"pattern\"] = %v, want %v", got, "snow")
	}

	_, err = e.NewElement(ElementKind(999), nil)
	if !errors.Is(err, ErrUnknownElement) {
		t.Fatalf("err = %v, want %v", err, ErrUnknownElement)
	}
}

func TestControllableFindsElementInSubtree(t *testing.T) {
	e := NewEngine(nil)
	src := e.NewSource("clip", CapsVideo)
	pos, err := e.NewElement(ElementFramePositioner, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Add(src, pos); err != nil {
		t.Fatalf("e.Add(src, pos): %v", err)
	}

	curve, ok := e.Controllable(src, "alpha")
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	again, ok := e.Controllable(src, "alpha")
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	if again != curve {
		t.Fatalf("again is not curve")
	}

	_, ok = e.Controllable(src, "volume")
	if ok {
		t.Fatalf("expected ok to be false")
	}

	value, ok := e.Property(src, "zorder")
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	if value != 0.0 {
		t.Fatalf("value = %v, want %v", value, 0.0)
	}
}

func TestCommitPostsStartThenDone(t *testing.T) {
	e := NewEngine(nil)
	comp := e.NewComposition("audio", CapsAudio)
	updates, err := e.Updates(comp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := e.Commit(comp); err != nil {
		t.Fatalf("e.Commit(comp): %v", err)
	}
	e.Wait()

	first := <-updates
	second := <-updates
	if first.Kind != UpdateStarted {
		t.Fatalf("first.Kind = %v, want %v", first.Kind, UpdateStarted)
	}
	if second.Kind != UpdateDone {
		t.Fatalf("second.Kind = %v, want %v", second.Kind, UpdateDone)
	}
	if first.Reason != ReasonCommit {
		t.Fatalf("first.Reason = %v, want %v", first.Reason, ReasonCommit)
	}
	if second.Seqnum != first.Seqnum {
		t.Fatalf("second.Seqnum = %v, want %v", second.Seqnum, first.Seqnum)
	}

	if err := e.Seek(comp, time.Second); err != nil {
		t.Fatalf("e.Seek(comp, time.Second): %v", err)
	}
	e.Wait()
	if got := (<-updates).Reason; got != ReasonSeek {
		t.Fatalf("(<-updates).Reason = %v, want %v", got, ReasonSeek)
	}
	<-updates

	e.Release(comp)
	_, open := <-updates
	if open {
		t.Fatalf("expected open to be false")
	}
}

func TestCommitRejectsNonComposition(t *testing.T) {
	e := NewEngine(nil)
	src := e.NewSource("clip", CapsVideo)
	if err := e.Commit(src); !errors.Is(err, ErrNotComposition) {
		t.Fatalf("e.Commit(src) = %v, want %v", err, ErrNotComposition)
	}
}

func TestBinOutputFollowsMembership(t *testing.T) {
	e := NewEngine(nil)
	bin := e.NewBin("playable")
	filter, err := e.NewElement(ElementCapsFilter, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := e.SetOutput(bin, 0, filter); !errors.Is(err, ErrNotChild) {
		t.Fatalf("e.SetOutput(bin, 0, filter) = %v, want %v", err, ErrNotChild)
	}
	if err := e.Add(bin, filter); err != nil {
		t.Fatalf("e.Add(bin, filter): %v", err)
	}
	if err := e.SetOutput(bin, 1, filter); !errors.Is(err, ErrNoSuchOutput) {
		t.Fatalf("e.SetOutput(bin, 1, filter) = %v, want %v", err, ErrNoSuchOutput)
	}
	if err := e.SetOutput(bin, 0, filter); err != nil {
		t.Fatalf("e.SetOutput(bin, 0, filter): %v", err)
	}
	if err := e.SetOutputActive(bin, 0, true); err != nil {
		t.Fatalf("e.SetOutputActive(bin, 0, true): %v", err)
	}

	n, err := e.Describe(bin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []Output{{Target: filter, Active: true}}; !reflect.DeepEqual(n.Outputs, want) {
		t.Fatalf("n.Outputs = %v, want %v", n.Outputs, want)
	}

	if err := e.Remove(bin, filter); err != nil {
		t.Fatalf("e.Remove(bin, filter): %v", err)
	}
	n, err = e.Describe(bin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []Output{{Target: NoNode}}; !reflect.DeepEqual(n.Outputs, want) {
		t.Fatalf("n.Outputs = %v, want %v", n.Outputs, want)
	}

	if err := e.SetOutputActive(bin, 0, true); err != nil {
		t.Fatalf("e.SetOutputActive(bin, 0, true): %v", err)
	}
	n, err = e.Describe(bin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Outputs[0].Active {
		t.Fatalf("expected n.Outputs[0].Active to be false")
	}

	src := e.NewSource("clip", CapsVideo)
	if err := e.SetOutput(src, 0, NoNode); !errors.Is(err, ErrNotBin) {
		t.Fatalf("e.SetOutput(src, 0, NoNode) = %v, want %v", err, ErrNotBin)
	}
}

func TestParseDescription(t *testing.T) {
	e := NewEngine(nil)
	bin, err := e.ParseDescription("audiotestsrc wave=silence volume=0.5 ! audioconvert")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Caps(bin); got != CapsAudio {
		t.Fatalf("e.Caps(bin) = %v, want %v", got, CapsAudio)
	}

	children := e.Children(bin)
	if len(children) != 2 {
		t.Fatalf("len(children) = %d, want 2", len(children))
	}
	first, err := e.Describe(children[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Element != ElementAudioTestSrc {
		t.Fatalf("first.Element = %v, want %v", first.Element, ElementAudioTestSrc)
	}
	if got := first.Props["wave"]; got != "silence" {
		t.Fatalf("first.Props[\"wave\"] = %v, want %v", got, "silence")
	}
	if got := first.Props["volume"]; got != 0.5 {
		t.Fatalf("first.Props[\"volume\"] = %v, want %v", got, 0.5)
	}

	_, err = e.ParseDescription("nosuchsrc ! audioconvert")
	if !errors.Is(err, ErrUnknownElement) {
		t.Fatalf("err = %v, want %v", err, ErrUnknownElement)
	}
	_, err = e.ParseDescription("audiotestsrc wave")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenURIDispatchesByScheme(t *testing.T) {
	e := NewEngine(nil)
	bin := e.NewBin("target")
	e.RegisterURIHandler("ges", func(uri string) (NodeID, error) {
		if uri != "ges://abc" {
			t.Fatalf("uri = %v, want %v", uri, "ges://abc")
		}
		return bin, nil
	})

	got, err := e.OpenURI("ges://abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != bin {
		t.Fatalf("got = %v, want %v", got, bin)
	}

	_, err = e.OpenURI("file:///tmp/a.webm")
	if !errors.Is(err, ErrNoURIHandler) {
		t.Fatalf("err = %v, want %v", err, ErrNoURIHandler)
	}
}

func TestControllableFactoryQualifiedName(t *testing.T) {
	e := NewEngine(nil)
	src := e.NewSource("clip", CapsVideo)
	pos, err := e.NewElement(ElementFramePositioner, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fade, err := e.NewElement(ElementAlpha, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Add(src, pos); err != nil {
		t.Fatalf("e.Add(src, pos): %v", err)
	}
	if err := e.Add(src, fade); err != nil {
		t.Fatalf("e.Add(src, fade): %v", err)
	}

	first, ok := e.Controllable(src, "framepositioner::alpha")
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	second, ok := e.Controllable(src, "alpha::alpha")
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	if second == first {
		t.Fatalf("second should differ from first")
	}

	unqualified, ok := e.Controllable(src, "alpha")
	if !ok {
		t.Fatalf("expected ok to be true")
	}
	if unqualified != first {
		t.Fatalf("unqualified is not first")
	}

	_, ok = e.Controllable(src, "volume::alpha")
	if ok {
		t.Fatalf("expected ok to be false")
	}
}
