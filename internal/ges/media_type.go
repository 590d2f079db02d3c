package ges

import (
	"fmt"
	"strings"

	"timeliner/internal/render"
)

// MediaType is a bitset of the media an object or timeline carries.
type MediaType uint32

const (
	MediaTypeUnknown MediaType = 1 << 0
	MediaTypeAudio   MediaType = 1 << 1
	MediaTypeVideo   MediaType = 1 << 2
)

// Priority layout inside a composition. The mixer and background sit at 0
// and 1; members start at TimelinePriorityOffset and each track index adds
// TrackPriorityHeight.
const (
	TrackPriorityHeight    = 1000
	TimelinePriorityOffset = 2
)

// trackPriority maps a track index to a render priority.
func trackPriority(index int) uint32 {
	return uint32(index*TrackPriorityHeight + TimelinePriorityOffset)
}

// concreteTypes lists the single media types in composition order.
var concreteTypes = []MediaType{MediaTypeAudio, MediaTypeVideo}

// Has reports whether every bit of other is set.
func (m MediaType) Has(other MediaType) bool {
	return other != 0 && m&other == other
}

// Split returns the concrete single media types in m.
func (m MediaType) Split() []MediaType {
	var out []MediaType
	for _, mt := range concreteTypes {
		if m&mt != 0 {
			out = append(out, mt)
		}
	}
	return out
}

// Concrete reports whether m carries audio or video.
func (m MediaType) Concrete() bool {
	return m&(MediaTypeAudio|MediaTypeVideo) != 0
}

// Caps returns the raw caps tag of a single media type.
func (m MediaType) Caps() render.Caps {
	switch m {
	case MediaTypeAudio:
		return render.CapsAudio
	case MediaTypeVideo:
		return render.CapsVideo
	}
	return render.CapsAny
}

func (m MediaType) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m&MediaTypeVideo != 0 {
		parts = append(parts, "video")
	}
	if m&MediaTypeAudio != 0 {
		parts = append(parts, "audio")
	}
	if m&MediaTypeUnknown != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "+")
}

// mediaTypeForCaps maps a caps tag back to its media type.
func mediaTypeForCaps(caps render.Caps) (MediaType, bool) {
	switch caps {
	case render.CapsAudio:
		return MediaTypeAudio, true
	case render.CapsVideo:
		return MediaTypeVideo, true
	}
	return 0, false
}

// ParseMediaType accepts names joined by "," "+" or "|", e.g. "video,audio".
func ParseMediaType(value string) (MediaType, error) {
	var m MediaType
	fields := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return r == ',' || r == '+' || r == '|' || r == ' '
	})
	for _, field := range fields {
		switch field {
		case "video":
			m |= MediaTypeVideo
		case "audio":
			m |= MediaTypeAudio
		case "unknown":
			m |= MediaTypeUnknown
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidMediaType, field)
		}
	}
	if m == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidMediaType)
	}
	return m, nil
}
