// Package swipe turns horizontal drag gestures into prev/next navigation.
package swipe

import (
	"math"
	"strings"
)

// Intent is what a finished gesture asks for.
type Intent int

const (
	None Intent = iota
	Next
	Prev
)

func (i Intent) String() string {
	switch i {
	case Next:
		return "next"
	case Prev:
		return "prev"
	}
	return "none"
}

const (
	DefaultThreshold    = 50
	DefaultLockDistance = 10
	DefaultVerticalLock = 30
	DefaultResistance   = 0.5
)

// interactive targets never start a gesture.
var interactive = map[string]bool{"input": true, "textarea": true, "select": true}

type lock int

const (
	unlocked lock = iota
	horizontal
	vertical
)

// Detector tracks one gesture at a time. The zero value is not usable; use
// NewDetector.
type Detector struct {
	Threshold    float64
	LockDistance float64
	VerticalLock float64
	// Resistance scales the finger's travel into the displayed offset.
	Resistance float64
	// Enabled gates gesture capture. Nil means always enabled.
	Enabled func() bool

	active bool
	lock   lock
	x0, y0 float64
	offset float64
}

func NewDetector() *Detector {
	return &Detector{
		Threshold:    DefaultThreshold,
		LockDistance: DefaultLockDistance,
		VerticalLock: DefaultVerticalLock,
		Resistance:   DefaultResistance,
	}
}

// Start begins a gesture at (x, y) over an element with the given tag name.
// It reports whether the gesture is being tracked.
func (d *Detector) Start(x, y float64, target string) bool {
	d.reset()
	if interactive[strings.ToLower(target)] {
		return false
	}
	if d.Enabled != nil && !d.Enabled() {
		return false
	}
	d.active = true
	d.x0, d.y0 = x, y
	return true
}

// Move updates the gesture. It returns the displayed offset and whether the
// movement was claimed as a swipe, in which case scrolling should be suppressed.
func (d *Detector) Move(x, y float64) (float64, bool) {
	if !d.active || d.lock == vertical {
		return 0, false
	}
	dx, dy := x-d.x0, y-d.y0

	if d.lock == unlocked {
		switch {
		case math.Abs(dy) > d.VerticalLock && math.Abs(dy) > math.Abs(dx):
			d.lock = vertical
			d.offset = 0
			return 0, false
		case math.Abs(dx) > d.LockDistance:
			d.lock = horizontal
		default:
			return 0, false
		}
	}

	d.offset = dx * d.Resistance
	return d.offset, true
}

// End finishes the gesture and returns its intent.
func (d *Detector) End() Intent {
	defer d.reset()
	if !d.active || d.lock != horizontal {
		return None
	}
	switch {
	case d.offset < -d.Threshold:
		return Next
	case d.offset > d.Threshold:
		return Prev
	}
	return None
}

// Cancel drops the gesture in progress.
func (d *Detector) Cancel() { d.reset() }

// Offset is the displayed offset of the gesture in progress.
func (d *Detector) Offset() float64 { return d.offset }

func (d *Detector) reset() {
	d.active = false
	d.lock = unlocked
	d.offset = 0
}

// Navigator receives navigation intents.
type Navigator interface {
	Next() bool
	Prev() bool
}

// Dispatch forwards intent to n and reports whether it moved.
func Dispatch(intent Intent, n Navigator) bool {
	switch intent {
	case Next:
		return n.Next()
	case Prev:
		return n.Prev()
	}
	return false
}
