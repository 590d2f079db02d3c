package ges

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"timeliner/internal/logging"
	"timeliner/internal/render"
)

type composition struct {
	mediaType  MediaType
	node       render.NodeID
	mixer      render.NodeID
	background render.NodeID
	wrapper    render.NodeID
}

type trackKey struct {
	mediaType MediaType
	index     int
}

// Timeline owns one composition per media type and the tracks that order
// its members. It is itself Editable so it can be nested in another
// timeline, and Playable so a player can expose its output.
type Timeline struct {
	id        uuid.UUID
	graph     render.Graph
	logger    *slog.Logger
	mediaType MediaType

	compositions []*composition
	tracks       map[trackKey]*Track
	members      *sequence
	memberSubs   map[*Object][]func()
	nested       []*Timeline

	start      time.Duration
	inpoint    time.Duration
	duration   time.Duration
	trackIndex map[MediaType]int

	owner    *Timeline
	exposure exposure
	async    *aggregator
	events   Observers[TransitionEvent]
	closed   bool
}

var _ Editable = (*Timeline)(nil)
var _ Playable = (*Timeline)(nil)

// New builds a timeline with one composition per media type in mt, each
// holding an expandable mixer (priority 0) and an expandable background
// (priority 1).
func New(g render.Graph, mt MediaType, opts ...Option) (*Timeline, error) {
	if !mt.Concrete() || mt&^(MediaTypeAudio|MediaTypeVideo) != 0 {
		return nil, fmt.Errorf("%w: %s for timeline", ErrInvalidMediaType, mt)
	}
	options := applyOptions(opts)
	t := &Timeline{
		id:         uuid.New(),
		graph:      g,
		mediaType:  mt,
		tracks:     make(map[trackKey]*Track),
		members:    newSequence(),
		memberSubs: make(map[*Object][]func()),
		trackIndex: make(map[MediaType]int, 2),
		exposure:   newExposure(),
	}
	t.logger = logging.NewComponentLogger(options.logger, "timeline").With(
		logging.String(logging.FieldTimelineID, t.id.String()),
	)
	t.async = newAggregator(t.logger)

	for _, single := range mt.Split() {
		c, err := t.createComposition(single, options)
		if err != nil {
			for _, built := range t.compositions {
				g.Release(built.wrapper)
			}
			return nil, fmt.Errorf("create %s composition: %w", single, err)
		}
		t.compositions = append(t.compositions, c)
	}
	for _, c := range t.compositions {
		updates, err := g.Updates(c.node)
		if err != nil {
			t.releaseCompositions()
			return nil, fmt.Errorf("watch %s composition: %w", c.mediaType, err)
		}
		t.async.watch(updates)
	}

	t.logger.Info("timeline created",
		logging.String("media_type", mt.String()),
		logging.Int("compositions", len(t.compositions)),
	)
	return t, nil
}

func (t *Timeline) createComposition(mt MediaType, options options) (*composition, error) {
	g := t.graph
	caps := mt.Caps()
	mixerKind, description := render.ElementCompositor, "videotestsrc pattern="+options.videoBackground
	if mt == MediaTypeAudio {
		mixerKind, description = render.ElementAudioMixer, "audiotestsrc wave="+options.audioBackground
	}
	name := mt.String()

	c := &composition{mediaType: mt}
	c.node = g.NewComposition(name+"-composition", caps)
	c.wrapper = g.NewSource("timeline-"+name+"-source", caps)
	if err := g.Add(c.wrapper, c.node); err != nil {
		g.Release(c.node)
		g.Release(c.wrapper)
		return nil, err
	}

	c.mixer = g.NewOperation("timeline-"+mixerKind.String(), caps)
	if err := g.Add(c.node, c.mixer); err != nil {
		g.Release(c.mixer)
		g.Release(c.wrapper)
		return nil, err
	}
	mixer, err := g.NewElement(mixerKind, nil)
	if err != nil {
		g.Release(c.wrapper)
		return nil, err
	}
	if err := g.Add(c.mixer, mixer); err != nil {
		g.Release(mixer)
		g.Release(c.wrapper)
		return nil, err
	}

	c.background = g.NewSource("timeline-"+name+"-background", caps)
	if err := g.Add(c.node, c.background); err != nil {
		g.Release(c.background)
		g.Release(c.wrapper)
		return nil, err
	}
	generator, err := g.ParseDescription(description)
	if err != nil {
		g.Release(c.wrapper)
		return nil, err
	}
	if err := g.Add(c.background, generator); err != nil {
		g.Release(generator)
		g.Release(c.wrapper)
		return nil, err
	}

	err = errors.Join(
		g.SetExpandable(c.mixer, true),
		g.SetPriority(c.mixer, 0),
		g.SetExpandable(c.background, true),
		g.SetPriority(c.background, 1),
	)
	if err != nil {
		g.Release(c.wrapper)
		return nil, err
	}
	return c, nil
}

func (t *Timeline) ID() uuid.UUID { return t.id }

func (t *Timeline) MediaType() MediaType { return t.mediaType }

// Composition returns the composition node for a single media type.
func (t *Timeline) Composition(mt MediaType) (render.NodeID, bool) {
	if c := t.compositionFor(mt); c != nil {
		return c.node, true
	}
	return render.NoNode, false
}

func (t *Timeline) compositionFor(mt MediaType) *composition {
	for _, c := range t.compositions {
		if c.mediaType == mt {
			return c
		}
	}
	return nil
}

func (t *Timeline) isComposition(id render.NodeID) bool {
	for _, c := range t.compositions {
		if c.node == id {
			return true
		}
	}
	return false
}

// SetMediaType always fails: the media types of a timeline are fixed at
// construction.
func (t *Timeline) SetMediaType(mt MediaType) bool {
	logging.WarnWithContext(t.logger, "media type change rejected", "timeline_edit_rejected",
		logging.String("media_type", t.mediaType.String()),
		logging.String("requested", mt.String()),
		logging.String(logging.FieldErrorHint, "create a new timeline with the wanted media types"),
	)
	return false
}

// Objects returns the members in start order.
func (t *Timeline) Objects() []*Object { return t.members.objects() }

// Len returns the number of members.
func (t *Timeline) Len() int { return t.members.len() }

// Track returns the track for a single media type and index.
func (t *Timeline) Track(mt MediaType, index int) (*Track, bool) {
	tr, ok := t.tracks[trackKey{mediaType: mt, index: index}]
	return tr, ok
}

// Tracks returns every track, video before audio, then by index.
func (t *Timeline) Tracks() []*Track {
	out := make([]*Track, 0, len(t.tracks))
	for _, tr := range t.tracks {
		out = append(out, tr)
	}
	slices.SortFunc(out, func(a, b *Track) int {
		if a.mediaType != b.mediaType {
			return cmp.Compare(b.mediaType, a.mediaType)
		}
		return cmp.Compare(a.index, b.index)
	})
	return out
}

// Transitions returns the active transitions of every track.
func (t *Timeline) Transitions() []*Transition {
	var out []*Transition
	for _, tr := range t.Tracks() {
		out = append(out, tr.Transitions()...)
	}
	return out
}

func (t *Timeline) track(mt MediaType, index int) *Track {
	key := trackKey{mediaType: mt, index: index}
	tr, ok := t.tracks[key]
	if !ok {
		tr = newTrack(mt, index, t.logger)
		tr.sink = t.events.notify
		t.tracks[key] = tr
		t.logger.Debug("track created", logging.String("media_type", mt.String()), logging.Int("track_index", index))
	}
	return tr
}

// memberTypes are the single media types an object shares with the timeline.
func (t *Timeline) memberTypes(o *Object) []MediaType {
	return (o.mediaType & t.mediaType).Split()
}

// AddObject inserts o's render nodes into the matching compositions and o
// into one track per shared media type.
func (t *Timeline) AddObject(o *Object) error {
	if t.closed {
		return ErrClosed
	}
	if o.owner != nil {
		return ErrAlreadyMember
	}
	shared := t.memberTypes(o)
	if len(shared) == 0 {
		return fmt.Errorf("%w: %s into %s", ErrMediaTypeMismatch, o.mediaType, t.mediaType)
	}

	o.materialize()
	var attached []render.NodeID
	for _, n := range o.nodes {
		c := t.compositionFor(n.mediaType)
		if c == nil {
			continue
		}
		if err := t.attach(c, n.source, trackPriority(o.trackIndex[n.mediaType])); err != nil {
			for _, node := range attached {
				t.detach(node)
			}
			return fmt.Errorf("add %s: %w", o.id, err)
		}
		attached = append(attached, n.source)
	}
	for _, mt := range shared {
		t.track(mt, o.trackIndex[mt]).add(o)
	}
	t.members.insert(o)
	o.owner = t
	t.memberSubs[o] = []func(){
		o.OnStart(func(ch Change[time.Duration]) { t.objectMoved(ch.Object) }),
		o.OnTrackIndex(t.objectChangedTrack),
	}
	t.logger.Debug("object added",
		logging.String(logging.FieldObjectID, o.id.String()),
		logging.String("kind", o.Kind()),
		logging.Duration("start", o.start),
	)
	return nil
}

// AddEditable inserts the render nodes of any editable at the base member
// priority. Objects go through AddObject; timelines become nested.
func (t *Timeline) AddEditable(e Editable) error {
	if member, ok := e.(interface{ object() *Object }); ok {
		return t.AddObject(member.object())
	}
	if t.closed {
		return ErrClosed
	}
	nested, isTimeline := e.(*Timeline)
	if isTimeline {
		if nested == t {
			return errors.New("ges: timeline cannot contain itself")
		}
		if nested.owner != nil {
			return ErrAlreadyMember
		}
	}
	var attached []render.NodeID
	for _, node := range e.RenderNodes() {
		mt, ok := mediaTypeForCaps(t.graph.Caps(node))
		if !ok {
			continue
		}
		c := t.compositionFor(mt)
		if c == nil {
			continue
		}
		if err := t.attach(c, node, TimelinePriorityOffset); err != nil {
			for _, done := range attached {
				t.detach(done)
			}
			return fmt.Errorf("add editable: %w", err)
		}
		attached = append(attached, node)
	}
	if isTimeline {
		nested.owner = t
		t.nested = append(t.nested, nested)
	}
	return nil
}

// attach moves node from wherever it lives into the composition.
func (t *Timeline) attach(c *composition, node render.NodeID, priority uint32) error {
	g := t.graph
	if parent := g.Parent(node); parent != render.NoNode {
		if parent == c.node {
			return g.SetPriority(node, priority)
		}
		if err := g.Remove(parent, node); err != nil {
			return err
		}
	}
	if err := g.SetPriority(node, priority); err != nil {
		return err
	}
	return g.Add(c.node, node)
}

func (t *Timeline) detach(node render.NodeID) {
	if parent := t.graph.Parent(node); t.isComposition(parent) {
		if err := t.graph.Remove(parent, node); err != nil {
			t.logger.Debug("detach failed", logging.Int("node", int(node)), logging.Error(err))
		}
	}
}

// RemoveObject retires every transition touching o and takes it out of the
// tracks and compositions. The object stays usable.
func (t *Timeline) RemoveObject(o *Object) error {
	if o.owner != t {
		return ErrNotMember
	}
	if o.exposure.exposed {
		if _, err := o.exposure.unexpose(t.graph, o.logger); err != nil {
			return fmt.Errorf("remove %s: %w", o.id, err)
		}
	}
	for _, mt := range t.memberTypes(o) {
		if tr, ok := t.Track(mt, o.trackIndex[mt]); ok {
			tr.remove(o)
		}
	}
	t.members.remove(o)
	for _, unsubscribe := range t.memberSubs[o] {
		unsubscribe()
	}
	delete(t.memberSubs, o)
	for _, n := range o.nodes {
		t.detach(n.source)
	}
	o.owner = nil
	t.logger.Debug("object removed", logging.String(logging.FieldObjectID, o.id.String()))
	return nil
}

func (t *Timeline) objectMoved(o *Object) {
	t.members.reposition(o)
	for _, mt := range t.memberTypes(o) {
		if tr, ok := t.Track(mt, o.trackIndex[mt]); ok {
			tr.reposition(o)
		}
	}
}

func (t *Timeline) objectChangedTrack(ch TrackIndexChange) {
	if t.mediaType&ch.MediaType == 0 {
		return
	}
	if old, ok := t.Track(ch.MediaType, ch.Old); ok {
		old.remove(ch.Object)
	}
	t.track(ch.MediaType, ch.New).add(ch.Object)
}

// Commit recomputes the transitions of every track and then asks every
// composition to apply the pending changes. Completion is reported through
// OnAsync and can be awaited with WaitIdle.
func (t *Timeline) Commit() error {
	if t.closed {
		return ErrClosed
	}
	for _, tr := range t.Tracks() {
		tr.Recompute()
	}
	return t.commitCompositions()
}

func (t *Timeline) commitCompositions() error {
	var errs []error
	for _, c := range t.compositions {
		t.async.expect(1)
		if err := t.graph.Commit(c.node); err != nil {
			t.async.expect(-1)
			errs = append(errs, fmt.Errorf("commit %s composition: %w", c.mediaType, err))
		}
	}
	return errors.Join(errs...)
}

// Seek repositions every composition. Seek updates are forwarded to
// OnCompositionUpdate but never aggregated.
func (t *Timeline) Seek(position time.Duration) error {
	if t.closed {
		return ErrClosed
	}
	var errs []error
	for _, c := range t.compositions {
		if err := t.graph.Seek(c.node, position); err != nil {
			errs = append(errs, fmt.Errorf("seek %s composition: %w", c.mediaType, err))
		}
	}
	return errors.Join(errs...)
}

// WaitIdle blocks until every commit issued so far has completed.
func (t *Timeline) WaitIdle(ctx context.Context) error {
	return t.async.wait(ctx)
}

// OnTransition subscribes to transition events from every track.
func (t *Timeline) OnTransition(fn func(TransitionEvent)) func() {
	return t.events.Subscribe(fn)
}

// OnAsync subscribes to the aggregated start/done notifications.
func (t *Timeline) OnAsync(fn func(AsyncEvent)) func() {
	return t.async.events.Subscribe(fn)
}

// OnCompositionUpdate subscribes to every raw composition update, seeks included.
func (t *Timeline) OnCompositionUpdate(fn func(render.Update)) func() {
	return t.async.forwarded.Subscribe(fn)
}

// RenderNodes returns the wrapper source of each composition, which is
// what a parent timeline schedules.
func (t *Timeline) RenderNodes() []render.NodeID {
	ids := make([]render.NodeID, 0, len(t.compositions))
	for _, c := range t.compositions {
		ids = append(ids, c.wrapper)
	}
	return ids
}

func (t *Timeline) Start() time.Duration    { return t.start }
func (t *Timeline) Inpoint() time.Duration  { return t.inpoint }
func (t *Timeline) Duration() time.Duration { return t.duration }

// End returns the end of the last member.
func (t *Timeline) End() time.Duration {
	var end time.Duration
	t.members.ascend(func(o *Object) bool {
		end = max(end, o.End())
		return true
	})
	return end
}

func (t *Timeline) SetStart(start time.Duration) bool {
	if start < 0 {
		return false
	}
	t.start = start
	t.eachWrapper(func(c *composition) error { return t.graph.SetStart(c.wrapper, start) })
	return true
}

func (t *Timeline) SetInpoint(inpoint time.Duration) bool {
	if inpoint < 0 {
		return false
	}
	t.inpoint = inpoint
	t.eachWrapper(func(c *composition) error { return t.graph.SetInpoint(c.wrapper, inpoint) })
	return true
}

func (t *Timeline) SetDuration(duration time.Duration) bool {
	if duration < 0 {
		return false
	}
	t.duration = duration
	t.eachWrapper(func(c *composition) error { return t.graph.SetDuration(c.wrapper, duration) })
	return true
}

// SetTrackIndex sets the priority of the wrappers whose media type is in mt.
func (t *Timeline) SetTrackIndex(mt MediaType, index int) bool {
	if index < 0 || t.mediaType&mt == 0 {
		return false
	}
	for _, single := range (t.mediaType & mt).Split() {
		t.trackIndex[single] = index
	}
	t.eachWrapper(func(c *composition) error {
		if mt&c.mediaType == 0 {
			return nil
		}
		return t.graph.SetPriority(c.wrapper, trackPriority(index))
	})
	return true
}

// TrackIndex returns the index set through SetTrackIndex for a single media type.
func (t *Timeline) TrackIndex(mt MediaType) int { return t.trackIndex[mt] }

func (t *Timeline) eachWrapper(fn func(*composition) error) {
	for _, c := range t.compositions {
		if err := fn(c); err != nil {
			t.logger.Debug("wrapper update failed", logging.String("media_type", c.mediaType.String()), logging.Error(err))
		}
	}
}

// MakePlayable exposes the composed output of every media type through one
// bin, or returns the wrappers to their previous parent.
func (t *Timeline) MakePlayable(active bool) (render.NodeID, error) {
	if t.closed {
		return render.NoNode, ErrClosed
	}
	var (
		bin render.NodeID
		err error
	)
	if active {
		bin, err = t.exposure.expose(t.graph, t.logger, "timeline-"+t.id.String()[:8], t.RenderNodes())
	} else {
		bin, err = t.exposure.unexpose(t.graph, t.logger)
	}
	if err == nil && t.owner != nil {
		err = t.owner.commitCompositions()
	}
	return bin, err
}

// Close detaches every member, releases the compositions and stops the
// completion watchers. Members are left intact and can be added elsewhere.
func (t *Timeline) Close() error {
	if t.closed {
		return nil
	}
	var errs []error
	if _, err := t.exposure.unexpose(t.graph, t.logger); err != nil {
		errs = append(errs, err)
	}
	t.exposure.release(t.graph)
	for _, o := range t.Objects() {
		if err := t.RemoveObject(o); err != nil {
			errs = append(errs, err)
		}
	}
	for _, nested := range t.nested {
		for _, node := range nested.RenderNodes() {
			t.detach(node)
		}
		nested.owner = nil
	}
	t.nested = nil
	t.closed = true
	t.releaseCompositions()
	t.logger.Info("timeline closed")
	return errors.Join(errs...)
}

func (t *Timeline) releaseCompositions() {
	for _, c := range t.compositions {
		t.graph.Release(c.wrapper)
	}
	t.compositions = nil
	t.async.close()
}
