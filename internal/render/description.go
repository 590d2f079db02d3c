package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParseDescription builds a bin from a textual pipeline such as
// "audiotestsrc wave=silence ! audioconvert". The bin takes the caps of the
// last element that declares any.
func (e *Engine) ParseDescription(desc string) (NodeID, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return NoNode, errors.New("render: empty description")
	}

	type stage struct {
		kind  ElementKind
		props map[string]any
	}
	var stages []stage
	for _, segment := range strings.Split(desc, "!") {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			return NoNode, fmt.Errorf("render: empty element in description %q", desc)
		}
		kind, ok := ParseElementKind(fields[0])
		if !ok {
			return NoNode, fmt.Errorf("%w: %s", ErrUnknownElement, fields[0])
		}
		props := make(map[string]any, len(fields)-1)
		for _, field := range fields[1:] {
			key, raw, ok := strings.Cut(field, "=")
			if !ok || key == "" {
				return NoNode, fmt.Errorf("render: malformed property %q in description %q", field, desc)
			}
			props[key] = parseDescriptionValue(raw)
		}
		stages = append(stages, stage{kind: kind, props: props})
	}

	bin := e.NewBin("")
	caps := CapsAny
	for _, st := range stages {
		id, err := e.NewElement(st.kind, st.props)
		if err != nil {
			e.Release(bin)
			return NoNode, err
		}
		if err := e.Add(bin, id); err != nil {
			e.Release(id)
			e.Release(bin)
			return NoNode, err
		}
		if c := e.Caps(id); c != CapsAny {
			caps = c
		}
	}
	if err := e.update(bin, func(n *node) { n.Caps = caps }); err != nil {
		return NoNode, err
	}
	return bin, nil
}

func parseDescriptionValue(raw string) any {
	if unquoted, err := strconv.Unquote(raw); err == nil {
		return unquoted
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
