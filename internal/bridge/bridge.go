// Package bridge maps 6-DoF device events onto a virtual mouse created
// through the uinput kernel module, so a SpaceMouse can drive a plain
// pointer on systems without application support.
package bridge

import (
	"fmt"
	"sync"

	"github.com/ThomasT75/uinput"
	"github.com/bnema/spacenav"
	"github.com/bnema/spacenav/internal/config"
	"github.com/bnema/spacenav/internal/logger"
)

// Axis mapping: device X (slide left/right) moves the pointer
// horizontally, device Z (push/pull) vertically, and RY (twist around
// the vertical axis) turns the wheel. Y (lift) and the remaining
// rotations are ignored.

// virtualMouse is the slice of uinput.Mouse the bridge drives;
// narrowed so tests can substitute a recorder.
type virtualMouse interface {
	Move(x, y int32) error
	LeftPress() error
	LeftRelease() error
	RightPress() error
	RightRelease() error
	MiddlePress() error
	MiddleRelease() error
	Wheel(horizontal bool, delta int32) error
	Close() error
}

// Bridge forwards decoded events to a uinput virtual mouse
type Bridge struct {
	mouse virtualMouse

	mu     sync.Mutex
	closed bool

	speed        float64
	deadZone     int32
	invertScroll bool

	// Twist accumulates between events so slow rotations still scroll
	twist float64
}

// New creates a bridge backed by a real uinput device. Requires write
// access to /dev/uinput.
func New(cfg config.BridgeConfig) (*Bridge, error) {
	mouse, err := uinput.CreateMouse("/dev/uinput", []byte("Spacenav Virtual Mouse"))
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual mouse: %w", err)
	}
	return newWithMouse(mouse, cfg), nil
}

func newWithMouse(mouse virtualMouse, cfg config.BridgeConfig) *Bridge {
	return &Bridge{
		mouse:        mouse,
		speed:        cfg.Speed,
		deadZone:     cfg.DeadZone,
		invertScroll: cfg.InvertScroll,
	}
}

// ErrBridgeClosed is returned by HandleEvent after Close.
var ErrBridgeClosed = fmt.Errorf("bridge: closed")

// HandleEvent applies one decoded event to the virtual mouse.
func (b *Bridge) HandleEvent(ev spacenav.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBridgeClosed
	}

	switch ev := ev.(type) {
	case spacenav.MotionEvent:
		return b.handleMotion(ev)
	case spacenav.ButtonEvent:
		return b.handleButton(ev)
	default:
		return fmt.Errorf("bridge: unhandled event %T", ev)
	}
}

func (b *Bridge) handleMotion(ev spacenav.MotionEvent) error {
	dx := b.scale(ev.X)
	// Pushing the cap away from the user (negative Z) moves the
	// pointer up, which is negative Y in uinput coordinates.
	dy := b.scale(ev.Z)
	if dx != 0 || dy != 0 {
		if err := b.mouse.Move(dx, dy); err != nil {
			return fmt.Errorf("bridge: pointer move: %w", err)
		}
	}

	return b.handleTwist(ev.RY)
}

func (b *Bridge) handleTwist(ry int32) error {
	if abs32(ry) <= b.deadZone {
		b.twist = 0
		return nil
	}
	b.twist += float64(ry) * b.speed / 8
	delta := int32(b.twist)
	if delta == 0 {
		return nil
	}
	b.twist -= float64(delta)
	if b.invertScroll {
		delta = -delta
	}
	if err := b.mouse.Wheel(false, delta); err != nil {
		return fmt.Errorf("bridge: wheel: %w", err)
	}
	return nil
}

func (b *Bridge) handleButton(ev spacenav.ButtonEvent) error {
	switch ev.Num {
	case 0:
		if ev.Press {
			return b.mouse.LeftPress()
		}
		return b.mouse.LeftRelease()
	case 1:
		if ev.Press {
			return b.mouse.RightPress()
		}
		return b.mouse.RightRelease()
	case 2:
		if ev.Press {
			return b.mouse.MiddlePress()
		}
		return b.mouse.MiddleRelease()
	default:
		logger.Debugf("bridge: ignoring button %d", ev.Num)
		return nil
	}
}

// scale converts an axis reading to pointer pixels, with a dead zone
// around center so sensor noise does not drift the pointer.
func (b *Bridge) scale(v int32) int32 {
	if abs32(v) <= b.deadZone {
		return 0
	}
	if v > 0 {
		v -= b.deadZone
	} else {
		v += b.deadZone
	}
	return int32(float64(v) * b.speed)
}

// Close releases the virtual device. Idempotent.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.mouse.Close()
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
