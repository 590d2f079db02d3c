package ges

import (
	"log/slog"

	"timeliner/internal/logging"
)

// TransitionEventKind tells whether a transition appeared or went away.
type TransitionEventKind int

const (
	TransitionCreated TransitionEventKind = iota
	TransitionRemoved
)

func (k TransitionEventKind) String() string {
	if k == TransitionRemoved {
		return "removed"
	}
	return "created"
}

// TransitionEvent is emitted by a track when recomputation creates or
// retires a transition. FadeOut and FadeIn are captured before any reset.
type TransitionEvent struct {
	Kind       TransitionEventKind
	MediaType  MediaType
	TrackIndex int
	Transition *Transition
	FadeOut    *Object
	FadeIn     *Object
}

// Track is the start-ordered set of objects sharing a media type and index.
type Track struct {
	mediaType MediaType
	index     int
	objects   *sequence
	logger    *slog.Logger
	events    Observers[TransitionEvent]
	sink      func(TransitionEvent)
}

func newTrack(mt MediaType, index int, logger *slog.Logger) *Track {
	return &Track{
		mediaType: mt,
		index:     index,
		objects:   newSequence(),
		logger: logging.NewComponentLogger(logger, "track").With(
			logging.String("media_type", mt.String()),
			logging.Int("track_index", index),
		),
	}
}

func (t *Track) MediaType() MediaType { return t.mediaType }
func (t *Track) Index() int           { return t.index }
func (t *Track) Len() int             { return t.objects.len() }

// Objects returns the members in start order.
func (t *Track) Objects() []*Object { return t.objects.objects() }

// Transitions returns the active transitions in start order of their fade-out object.
func (t *Track) Transitions() []*Transition {
	var out []*Transition
	t.objects.ascend(func(o *Object) bool {
		if tr := o.outgoing[t.mediaType]; tr != nil {
			out = append(out, tr)
		}
		return true
	})
	return out
}

// OnTransition subscribes to transition creation and removal on this track.
func (t *Track) OnTransition(fn func(TransitionEvent)) func() {
	return t.events.Subscribe(fn)
}

func (t *Track) add(o *Object) bool {
	return t.objects.insert(o)
}

// remove takes o out of the track and retires every transition touching it.
func (t *Track) remove(o *Object) bool {
	if !t.objects.contains(o) {
		return false
	}
	if tr := o.outgoing[t.mediaType]; tr != nil {
		t.tearDown(tr)
	}
	if tr := o.incoming[t.mediaType]; tr != nil {
		t.tearDown(tr)
	}
	return t.objects.remove(o)
}

func (t *Track) reposition(o *Object) {
	t.objects.reposition(o)
}

// Recompute walks the members in start order and makes the transitions match
// the overlaps: one transition per overlapping neighbour pair, none
// elsewhere. Running it again without edits changes nothing.
func (t *Track) Recompute() {
	var previous *Object
	t.objects.ascend(func(current *Object) bool {
		if previous == nil {
			previous = current
			return true
		}
		existing := previous.outgoing[t.mediaType]
		if previous.start+previous.duration <= current.start {
			if existing != nil {
				t.tearDown(existing)
			}
		} else {
			switch {
			case existing == nil:
				t.create(previous, current)
			case existing.fadeIn != current:
				t.tearDown(existing)
				t.create(previous, current)
			default:
				existing.Update()
			}
		}
		previous = current
		return true
	})
	if previous != nil {
		if tr := previous.outgoing[t.mediaType]; tr != nil {
			t.tearDown(tr)
		}
	}
}

func (t *Track) create(fadeOut, fadeIn *Object) {
	tr := newTransition(t.mediaType, fadeOut, fadeIn, t.logger)
	t.logger.Debug("transition created",
		logging.String("fade_out", fadeOut.id.String()),
		logging.String("fade_in", fadeIn.id.String()),
		logging.Duration("start", tr.start),
		logging.Duration("stop", tr.stop),
	)
	t.emit(TransitionEvent{Kind: TransitionCreated, Transition: tr, FadeOut: fadeOut, FadeIn: fadeIn})
}

func (t *Track) tearDown(tr *Transition) {
	if !tr.Active() {
		return
	}
	event := TransitionEvent{Kind: TransitionRemoved, Transition: tr, FadeOut: tr.fadeOut, FadeIn: tr.fadeIn}
	tr.Reset()
	t.logger.Debug("transition removed",
		logging.String("fade_out", event.FadeOut.id.String()),
		logging.String("fade_in", event.FadeIn.id.String()),
	)
	t.emit(event)
}

func (t *Track) emit(event TransitionEvent) {
	event.MediaType = t.mediaType
	event.TrackIndex = t.index
	t.events.notify(event)
	if t.sink != nil {
		t.sink(event)
	}
}
