package ges

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timeliner/internal/logging"
)

// Record is the flat form of an object: its type, the generic timing
// fields and an ordered tuple of variant fields (pattern name, original uri).
type Record struct {
	Type       string
	ID         string
	MediaType  MediaType
	Start      time.Duration
	Inpoint    time.Duration
	Duration   time.Duration
	VideoTrack int
	AudioTrack int
	Fields     []string
}

// Field returns the i-th variant field, or "" when absent.
func (r Record) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// Serialize flattens the object. The second result is false for kinds that
// carry no serializable state.
func (o *Object) Serialize() (Record, bool) {
	s, ok := o.variant.(fieldSerializer)
	if !ok {
		return Record{}, false
	}
	return Record{
		Type:       o.Kind(),
		ID:         o.id.String(),
		MediaType:  o.mediaType,
		Start:      o.start,
		Inpoint:    o.inpoint,
		Duration:   o.duration,
		VideoTrack: o.trackIndex[MediaTypeVideo],
		AudioTrack: o.trackIndex[MediaTypeAudio],
		Fields:     append([]string(nil), s.fields()...),
	}, true
}

// Deserialize rebuilds an object from a record. Asset-backed kinds resolve
// their uri again. Timing edits the current asset no longer allows are
// logged and skipped; the object is still returned.
func Deserialize(ctx context.Context, rec Record, env Env) (*Object, error) {
	var (
		o   *Object
		err error
	)
	opts := []Option{WithLogger(env.Logger)}
	switch rec.Type {
	case kindTestSource:
		var s *TestSource
		if s, err = NewTestSource(env.Graph, rec.MediaType, rec.Field(0), opts...); err == nil {
			o = s.Object
		}
	case kindTestClip:
		var c *TestClip
		if c, err = NewTestClip(env.Graph, rec.MediaType, rec.Field(0), opts...); err == nil {
			o = c.Object
		}
	case kindURISource:
		var s *URISource
		if s, err = NewURISource(ctx, env, rec.Field(0), rec.MediaType); err == nil {
			o = s.Object
		}
	case kindURIClip:
		var c *URIClip
		if c, err = NewURIClip(ctx, env, rec.Field(0), rec.MediaType); err == nil {
			o = c.Object
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecord, rec.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("deserialize %s: %w", rec.Type, err)
	}

	if rec.ID != "" {
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("deserialize %s: object id: %w", rec.Type, err)
		}
		o.id = id
		o.setLogger(env.Logger)
	}

	applied := []bool{
		o.SetInpoint(rec.Inpoint),
		o.SetDuration(rec.Duration),
		o.SetStart(rec.Start),
	}
	if o.mediaType&MediaTypeVideo != 0 {
		applied = append(applied, o.SetTrackIndex(MediaTypeVideo, rec.VideoTrack))
	}
	if o.mediaType&MediaTypeAudio != 0 {
		applied = append(applied, o.SetTrackIndex(MediaTypeAudio, rec.AudioTrack))
	}
	for _, ok := range applied {
		if !ok {
			o.logger.Info("record restored with adjusted timing",
				logging.Duration("start", o.start),
				logging.Duration("inpoint", o.inpoint),
				logging.Duration("duration", o.duration),
			)
			break
		}
	}
	return o, nil
}
