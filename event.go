// Package spacenav is a client for the spacenavd daemon, which reports
// motion and button events from 6-DoF input devices (SpaceMouse and
// friends). Applications open any number of Conn handles; all handles
// share a single physical session with the daemon, opened when the
// first handle is created and closed when the last one is released.
package spacenav

import (
	"errors"
	"fmt"
)

// EventType selects which pending events Flush discards. It is not the
// type of a decoded event; decoded events are MotionEvent/ButtonEvent.
type EventType int32

const (
	EventAny    EventType = 0
	EventMotion EventType = 1
	EventButton EventType = 2
)

func (t EventType) String() string {
	switch t {
	case EventAny:
		return "any"
	case EventMotion:
		return "motion"
	case EventButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", int32(t))
	}
}

// ParseEventType converts a user-supplied name into an EventType.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "any", "all", "":
		return EventAny, nil
	case "motion":
		return EventMotion, nil
	case "button":
		return EventButton, nil
	default:
		return EventAny, fmt.Errorf("unknown event type %q (want any, motion or button)", s)
	}
}

// ErrUnknownEvent is returned when a record carries a tag outside the
// known motion/button set. Wait surfaces it; Poll swallows it.
var ErrUnknownEvent = errors.New("spacenav: unknown event tag")

// MotionEvent is a single 6-DoF reading: three translation axes, three
// rotation axes, and the period in milliseconds since the previous
// motion event.
type MotionEvent struct {
	X, Y, Z    int32
	RX, RY, RZ int32
	Period     uint32
}

// T returns the translation triple (x, y, z).
func (m MotionEvent) T() (x, y, z int32) {
	return m.X, m.Y, m.Z
}

// R returns the rotation triple (rx, ry, rz).
func (m MotionEvent) R() (rx, ry, rz int32) {
	return m.RX, m.RY, m.RZ
}

func (m MotionEvent) String() string {
	return fmt.Sprintf("motion t=(%d, %d, %d) r=(%d, %d, %d) period=%dms",
		m.X, m.Y, m.Z, m.RX, m.RY, m.RZ, m.Period)
}

// ButtonEvent is a press or release of one device button.
type ButtonEvent struct {
	Press bool
	Num   int32
}

func (b ButtonEvent) String() string {
	if b.Press {
		return fmt.Sprintf("button %d press", b.Num)
	}
	return fmt.Sprintf("button %d release", b.Num)
}

// Event is the decoded form of a raw daemon record. The only
// implementations are MotionEvent and ButtonEvent; an unrecognized raw
// tag never produces an Event, it produces ErrUnknownEvent.
type Event interface {
	fmt.Stringer
	spnavEvent()
}

func (MotionEvent) spnavEvent() {}
func (ButtonEvent) spnavEvent() {}

// decodeEvent maps a raw tagged record onto a typed Event. It is pure:
// no I/O, no panics, total over the input domain. The motion payload's
// Aux words duplicate the six axis fields and are dropped. The button
// press flag is normalized from the raw nonzero/zero convention.
func decodeEvent(raw RawEvent) (Event, error) {
	switch EventType(raw.Tag) {
	case EventMotion:
		return MotionEvent{
			X:      raw.Motion.X,
			Y:      raw.Motion.Y,
			Z:      raw.Motion.Z,
			RX:     raw.Motion.RX,
			RY:     raw.Motion.RY,
			RZ:     raw.Motion.RZ,
			Period: raw.Motion.Period,
		}, nil
	case EventButton:
		return ButtonEvent{
			Press: raw.Button.Press != 0,
			Num:   raw.Button.Num,
		}, nil
	default:
		// EventAny is a filter sentinel, never a valid record tag.
		return nil, fmt.Errorf("%w: %d", ErrUnknownEvent, raw.Tag)
	}
}
