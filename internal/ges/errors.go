package ges

import "errors"

var (
	// ErrNotMaterialized is returned when an operation needs render nodes the object has not built.
	ErrNotMaterialized = errors.New("ges: render nodes not materialized")
	// ErrNoMatchingStream is returned when an asset has no stream for a declared media type.
	ErrNoMatchingStream = errors.New("ges: asset has no stream for media type")
	// ErrInvalidMediaType is returned for media types a variant cannot carry.
	ErrInvalidMediaType = errors.New("ges: invalid media type")
	// ErrMediaTypeMismatch is returned when an object shares no media type with a timeline.
	ErrMediaTypeMismatch = errors.New("ges: object media type not handled by timeline")
	// ErrAlreadyMember is returned when adding an object that already belongs to a timeline.
	ErrAlreadyMember = errors.New("ges: object already belongs to a timeline")
	// ErrNotMember is returned when removing an object the timeline does not hold.
	ErrNotMember = errors.New("ges: object does not belong to timeline")
	// ErrClosed is returned by operations on a closed timeline.
	ErrClosed = errors.New("ges: timeline closed")
	// ErrOutOfBounds is returned when an edit would read past the end of the asset.
	ErrOutOfBounds = errors.New("ges: exceeds asset duration")
	// ErrUnknownHandle is returned when a playable URI names no registered handle.
	ErrUnknownHandle = errors.New("ges: unknown playable handle")
	// ErrUnknownRecord is returned when deserializing an unknown object type.
	ErrUnknownRecord = errors.New("ges: unknown record type")
)
