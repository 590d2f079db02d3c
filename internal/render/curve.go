package render

import (
	"sort"
	"sync"
	"time"
)

// InterpolationMode controls how a ControlCurve fills the gaps between points.
type InterpolationMode int

const (
	InterpolationLinear InterpolationMode = iota
	// InterpolationDiscrete holds each point's value until the next point.
	InterpolationDiscrete
)

// ControlPoint is a single timed value on a ControlCurve.
type ControlPoint struct {
	At    time.Duration
	Value float64
}

// ControlCurve drives a controllable element property over media time.
type ControlCurve struct {
	mu       sync.Mutex
	property string
	mode     InterpolationMode
	points   []ControlPoint
}

func newControlCurve(property string) *ControlCurve {
	return &ControlCurve{property: property}
}

// Property returns the name of the property this curve drives.
func (c *ControlCurve) Property() string {
	return c.property
}

// SetMode changes the interpolation mode.
func (c *ControlCurve) SetMode(mode InterpolationMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

// Mode returns the interpolation mode.
func (c *ControlCurve) Mode() InterpolationMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Set places value at the given time, replacing any point already there.
func (c *ControlCurve) Set(at time.Duration, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := sort.Search(len(c.points), func(i int) bool { return c.points[i].At >= at })
	if idx < len(c.points) && c.points[idx].At == at {
		c.points[idx].Value = value
		return
	}
	c.points = append(c.points, ControlPoint{})
	copy(c.points[idx+1:], c.points[idx:])
	c.points[idx] = ControlPoint{At: at, Value: value}
}

// Unset removes the point at the given time and reports whether one existed.
func (c *ControlCurve) Unset(at time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := sort.Search(len(c.points), func(i int) bool { return c.points[i].At >= at })
	if idx >= len(c.points) || c.points[idx].At != at {
		return false
	}
	c.points = append(c.points[:idx], c.points[idx+1:]...)
	return true
}

// Clear removes every point.
func (c *ControlCurve) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = nil
}

// Points returns a copy of the points in time order.
func (c *ControlCurve) Points() []ControlPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ControlPoint(nil), c.points...)
}

// Len returns the number of points.
func (c *ControlCurve) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.points)
}

// ValueAt evaluates the curve. The boolean is false when the curve is empty.
func (c *ControlCurve) ValueAt(at time.Duration) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.points) == 0 {
		return 0, false
	}
	if at <= c.points[0].At {
		return c.points[0].Value, true
	}
	last := c.points[len(c.points)-1]
	if at >= last.At {
		return last.Value, true
	}
	idx := sort.Search(len(c.points), func(i int) bool { return c.points[i].At > at })
	before, after := c.points[idx-1], c.points[idx]
	if c.mode == InterpolationDiscrete {
		return before.Value, true
	}
	span := float64(after.At - before.At)
	ratio := float64(at-before.At) / span
	return before.Value + (after.Value-before.Value)*ratio, true
}
