package ges

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"timeliner/internal/logging"
	"timeliner/internal/render"
)

// Editable is anything whose render nodes can be scheduled in a timeline.
type Editable interface {
	SetStart(start time.Duration) bool
	SetInpoint(inpoint time.Duration) bool
	SetDuration(duration time.Duration) bool
	SetTrackIndex(mt MediaType, index int) bool
	RenderNodes() []render.NodeID
}

// variant is the kind-specific half of an Object.
type variant interface {
	kind() string
	acceptsMediaType(mt MediaType) error
	// makeElement builds the media-producing element for one media type.
	makeElement(mt MediaType) (render.NodeID, error)
}

// inpointChecker validates an inpoint and returns the duration to keep alongside it.
type inpointChecker interface {
	checkInpoint(inpoint, duration time.Duration) (time.Duration, error)
}

type durationChecker interface {
	checkDuration(inpoint, duration time.Duration) error
}

type fieldSerializer interface {
	fields() []string
}

type objectNode struct {
	mediaType MediaType
	source    render.NodeID
	element   render.NodeID
}

// Object is a time-bounded media object. Concrete kinds (TestSource,
// TestClip, URISource, URIClip) embed it.
type Object struct {
	id      uuid.UUID
	graph   render.Graph
	logger  *slog.Logger
	variant variant

	mediaType  MediaType
	start      time.Duration
	inpoint    time.Duration
	duration   time.Duration
	trackIndex map[MediaType]int

	nodes    []objectNode
	outgoing map[MediaType]*Transition
	incoming map[MediaType]*Transition

	owner    *Timeline
	exposure exposure

	startObservers    timingObservers
	inpointObservers  timingObservers
	durationObservers timingObservers
	trackObservers    Observers[TrackIndexChange]
}

var _ Editable = (*Object)(nil)
var _ Playable = (*Object)(nil)

func newObject(g render.Graph, logger *slog.Logger, mt MediaType, v variant) *Object {
	o := &Object{
		id:         uuid.New(),
		graph:      g,
		variant:    v,
		mediaType:  mt,
		trackIndex: make(map[MediaType]int, 2),
		outgoing:   make(map[MediaType]*Transition, 2),
		incoming:   make(map[MediaType]*Transition, 2),
		exposure:   newExposure(),
	}
	o.setLogger(logger)
	return o
}

func (o *Object) setLogger(logger *slog.Logger) {
	o.logger = logging.NewComponentLogger(logger, "object").With(
		logging.String(logging.FieldObjectID, o.id.String()),
		logging.String("kind", o.variant.kind()),
	)
}

func (o *Object) ID() uuid.UUID { return o.id }

// Kind names the concrete object type, e.g. "TestSource".
func (o *Object) Kind() string { return o.variant.kind() }

func (o *Object) MediaType() MediaType    { return o.mediaType }
func (o *Object) Start() time.Duration    { return o.start }
func (o *Object) Inpoint() time.Duration  { return o.inpoint }
func (o *Object) Duration() time.Duration { return o.duration }

// End returns start + duration.
func (o *Object) End() time.Duration { return o.start + o.duration }

// TrackIndex returns the track index the object uses for a single media type.
func (o *Object) TrackIndex(mt MediaType) int { return o.trackIndex[mt] }

// Timeline returns the timeline holding the object, or nil.
func (o *Object) Timeline() *Timeline { return o.owner }

// OutgoingTransition returns the active transition towards the next object on the mt track.
func (o *Object) OutgoingTransition(mt MediaType) *Transition { return o.outgoing[mt] }

func (o *Object) object() *Object { return o }

func (o *Object) shortID() string { return o.id.String()[:8] }

// SetStart moves the object on the timeline.
func (o *Object) SetStart(start time.Duration) bool {
	if start < 0 {
		o.reject("start", start, errors.New("negative start"))
		return false
	}
	old := o.start
	o.start = start
	o.eachNode(func(n objectNode) error { return o.graph.SetStart(n.source, start) })
	if old != start {
		o.startObservers.notify(Change[time.Duration]{Object: o, Old: old, New: start})
	}
	return true
}

// SetInpoint changes the offset into the source media. Asset-backed kinds
// may shorten the duration so the object stays inside the asset.
func (o *Object) SetInpoint(inpoint time.Duration) bool {
	if inpoint < 0 {
		o.reject("inpoint", inpoint, errors.New("negative inpoint"))
		return false
	}
	duration := o.duration
	if checker, ok := o.variant.(inpointChecker); ok {
		clamped, err := checker.checkInpoint(inpoint, o.duration)
		if err != nil {
			o.reject("inpoint", inpoint, err)
			return false
		}
		duration = clamped
	}
	old := o.inpoint
	o.inpoint = inpoint
	o.eachNode(func(n objectNode) error { return o.graph.SetInpoint(n.source, inpoint) })
	if duration != o.duration {
		o.logger.Debug("duration clamped to asset bounds",
			logging.Duration("inpoint", inpoint),
			logging.Duration("old_duration", o.duration),
			logging.Duration("duration", duration),
		)
		o.applyDuration(duration)
	}
	if old != inpoint {
		o.inpointObservers.notify(Change[time.Duration]{Object: o, Old: old, New: inpoint})
	}
	return true
}

// SetDuration changes how long the object plays.
func (o *Object) SetDuration(duration time.Duration) bool {
	if duration < 0 {
		o.reject("duration", duration, errors.New("negative duration"))
		return false
	}
	if checker, ok := o.variant.(durationChecker); ok {
		if err := checker.checkDuration(o.inpoint, duration); err != nil {
			o.reject("duration", duration, err)
			return false
		}
	}
	o.applyDuration(duration)
	return true
}

func (o *Object) applyDuration(duration time.Duration) {
	old := o.duration
	o.duration = duration
	o.eachNode(func(n objectNode) error { return o.graph.SetDuration(n.source, duration) })
	if old != duration {
		o.durationObservers.notify(Change[time.Duration]{Object: o, Old: old, New: duration})
	}
}

// SetTrackIndex moves the object to track index for every media type in mt it
// carries, and pushes the matching render priority onto its nodes.
func (o *Object) SetTrackIndex(mt MediaType, index int) bool {
	if index < 0 {
		logging.WarnWithContext(o.logger, "track index rejected", "object_edit_rejected",
			logging.Int("track_index", index),
			logging.String(logging.FieldErrorHint, "track indices start at 0"),
		)
		return false
	}
	targets := (mt & o.mediaType).Split()
	if len(targets) == 0 {
		logging.WarnWithContext(o.logger, "track index rejected", "object_edit_rejected",
			logging.String("media_type", mt.String()),
			logging.String("object_media_type", o.mediaType.String()),
			logging.String(logging.FieldErrorHint, "object does not carry this media type"),
		)
		return false
	}
	for _, single := range targets {
		old := o.trackIndex[single]
		o.trackIndex[single] = index
		priority := trackPriority(index)
		o.eachNode(func(n objectNode) error {
			if n.mediaType != single {
				return nil
			}
			return o.graph.SetPriority(n.source, priority)
		})
		if old != index {
			o.trackObservers.notify(TrackIndexChange{Object: o, MediaType: single, Old: old, New: index})
		}
	}
	return true
}

// SetMediaType changes the declared media type. It fails once render nodes
// have been built.
func (o *Object) SetMediaType(mt MediaType) bool {
	if o.Materialized() {
		logging.WarnWithContext(o.logger, "media type change rejected", "object_edit_rejected",
			logging.String("media_type", o.mediaType.String()),
			logging.String("requested", mt.String()),
			logging.String(logging.FieldErrorHint, "media type is fixed once render nodes exist"),
		)
		return false
	}
	if err := o.variant.acceptsMediaType(mt); err != nil {
		logging.WarnWithContext(o.logger, "media type change rejected", "object_edit_rejected",
			logging.String("requested", mt.String()),
			logging.Error(err),
		)
		return false
	}
	o.mediaType = mt
	return true
}

// Materialized reports whether the render subtree has been built.
func (o *Object) Materialized() bool { return len(o.nodes) > 0 }

// RenderNodes builds the render subtree on first use and returns one source
// node per media type that could be built.
func (o *Object) RenderNodes() []render.NodeID {
	o.materialize()
	ids := make([]render.NodeID, 0, len(o.nodes))
	for _, n := range o.nodes {
		ids = append(ids, n.source)
	}
	return ids
}

// RenderNode returns the source node for a single media type.
func (o *Object) RenderNode(mt MediaType) (render.NodeID, bool) {
	for _, n := range o.nodes {
		if n.mediaType == mt {
			return n.source, true
		}
	}
	return render.NoNode, false
}

func (o *Object) materialize() {
	if o.Materialized() || !o.mediaType.Concrete() {
		return
	}
	for _, mt := range o.mediaType.Split() {
		n, err := o.buildNode(mt)
		if err != nil {
			logging.ErrorWithContext(o.logger, "render node creation failed", "object_topology_failed",
				logging.String("media_type", mt.String()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "object contributes nothing for this media type"),
			)
			continue
		}
		o.nodes = append(o.nodes, n)
	}
	if o.Materialized() {
		o.logger.Debug("render nodes built", logging.Int("nodes", len(o.nodes)))
	}
}

// fadeElements are appended after the producing element so transitions can
// drive fade-in and fade-out on separate properties.
var fadeElements = map[MediaType][]render.ElementKind{
	MediaTypeVideo: {render.ElementFramePositioner, render.ElementAlpha},
	MediaTypeAudio: {render.ElementVolume, render.ElementAudioAmplify},
}

func (o *Object) buildNode(mt MediaType) (objectNode, error) {
	g := o.graph
	name := fmt.Sprintf("%s-%s-%s", strings.ToLower(o.Kind()), mt, o.shortID())
	source := g.NewSource(name, mt.Caps())

	element, err := o.variant.makeElement(mt)
	if err != nil {
		g.Release(source)
		return objectNode{}, err
	}
	chain := []render.NodeID{element}
	for _, kind := range fadeElements[mt] {
		id, err := g.NewElement(kind, nil)
		if err != nil {
			for _, built := range chain {
				g.Release(built)
			}
			g.Release(source)
			return objectNode{}, err
		}
		chain = append(chain, id)
	}
	for i, id := range chain {
		if err := g.Add(source, id); err != nil {
			for _, rest := range chain[i:] {
				g.Release(rest)
			}
			g.Release(source)
			return objectNode{}, fmt.Errorf("assemble %s: %w", name, err)
		}
	}

	setters := []error{
		g.SetStart(source, o.start),
		g.SetInpoint(source, o.inpoint),
		g.SetDuration(source, o.duration),
		g.SetPriority(source, trackPriority(o.trackIndex[mt])),
	}
	if err := errors.Join(setters...); err != nil {
		g.Release(source)
		return objectNode{}, fmt.Errorf("configure %s: %w", name, err)
	}
	return objectNode{mediaType: mt, source: source, element: element}, nil
}

func (o *Object) eachNode(fn func(objectNode) error) {
	for _, n := range o.nodes {
		if err := fn(n); err != nil {
			o.logger.Debug("render node update failed", logging.Int("node", int(n.source)), logging.Error(err))
		}
	}
}

func (o *Object) reject(field string, value time.Duration, err error) {
	logging.WarnWithContext(o.logger, field+" rejected", "object_edit_rejected",
		logging.Duration(field, value),
		logging.Duration("current_inpoint", o.inpoint),
		logging.Duration("current_duration", o.duration),
		logging.Error(err),
	)
}

// OnStart subscribes to start changes.
func (o *Object) OnStart(fn func(Change[time.Duration])) func() {
	return o.startObservers.Subscribe(fn)
}

// OnInpoint subscribes to inpoint changes.
func (o *Object) OnInpoint(fn func(Change[time.Duration])) func() {
	return o.inpointObservers.Subscribe(fn)
}

// OnDuration subscribes to duration changes, including clamps.
func (o *Object) OnDuration(fn func(Change[time.Duration])) func() {
	return o.durationObservers.Subscribe(fn)
}

// OnTrackIndex subscribes to track index moves.
func (o *Object) OnTrackIndex(fn func(TrackIndexChange)) func() {
	return o.trackObservers.Subscribe(fn)
}

// MakePlayable grafts the object's render nodes into a playable bin, or
// returns them to their composition.
func (o *Object) MakePlayable(active bool) (render.NodeID, error) {
	var (
		bin render.NodeID
		err error
	)
	if active {
		bin, err = o.exposure.expose(o.graph, o.logger, "object-"+o.shortID(), o.RenderNodes())
	} else {
		bin, err = o.exposure.unexpose(o.graph, o.logger)
	}
	if err == nil && o.owner != nil {
		err = o.owner.commitCompositions()
	}
	return bin, err
}

// Release drops the object's render subtree. Objects still held by a
// timeline must be removed first.
func (o *Object) Release() error {
	if o.owner != nil {
		return ErrAlreadyMember
	}
	if _, err := o.exposure.unexpose(o.graph, o.logger); err != nil {
		return err
	}
	o.exposure.release(o.graph)
	for _, n := range o.nodes {
		o.graph.Release(n.source)
	}
	o.nodes = nil
	return nil
}
