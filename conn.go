package spacenav

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bnema/spacenav/internal/logger"
)

// ErrConnClosed is returned by operations on a closed Conn.
var ErrConnClosed = errors.New("spacenav: connection closed")

// Conn is one logical handle on the shared daemon session. Handles are
// cheap; every subsystem that wants device events opens its own and
// closes it when done. All handles read the same record stream, so
// concurrent Wait/Poll calls race for records and each record goes to
// exactly one caller.
type Conn struct {
	reg *Registry
	fd  int

	closed    atomic.Bool
	closeOnce sync.Once
}

// Open connects to the daemon through the process-wide registry.
func Open() (*Conn, error) {
	return OpenRegistry(DefaultRegistry())
}

// OpenRegistry connects through an explicit registry. The physical
// session is opened only if this is the registry's first live handle.
func OpenRegistry(reg *Registry) (*Conn, error) {
	fd, err := reg.Acquire()
	if err != nil {
		return nil, err
	}
	return &Conn{reg: reg, fd: fd}, nil
}

// Fd returns the session descriptor, for callers that multiplex it into
// their own select/poll loop. Read-only after construction.
func (c *Conn) Fd() int {
	return c.fd
}

// Poll reports a pending event without blocking. It returns ok=false
// when nothing is pending, and also when a pending record had an
// unrecognized tag: to a polling caller both just mean "no new typed
// event this tick".
func (c *Conn) Poll() (Event, bool) {
	if c.closed.Load() {
		return nil, false
	}
	raw, ok, err := c.reg.tr.PollEvent()
	if err != nil || !ok {
		if err != nil {
			logger.Debugf("spacenav: poll: %v", err)
		}
		return nil, false
	}
	ev, err := decodeEvent(raw)
	if err != nil {
		logger.Debugf("spacenav: poll: discarding record: %v", err)
		return nil, false
	}
	return ev, true
}

// Wait blocks until an event arrives. Unlike Poll it is strict: a
// transport failure and an undecodable record are both errors, since a
// caller that blocked for an event expects an event or an explanation.
// Closing the underlying session from another goroutine unblocks Wait
// with an error, not a clean cancellation.
func (c *Conn) Wait() (Event, error) {
	if c.closed.Load() {
		return nil, ErrConnClosed
	}
	raw, err := c.reg.tr.WaitEvent()
	if err != nil {
		return nil, fmt.Errorf("spacenav: wait: %w", err)
	}
	ev, err := decodeEvent(raw)
	if err != nil {
		return nil, fmt.Errorf("spacenav: wait: %w", err)
	}
	return ev, nil
}

// Flush discards pending events matching the filter and returns how
// many were dropped. Pass EventAny to drop everything pending.
func (c *Conn) Flush(filter EventType) (int, error) {
	if c.closed.Load() {
		return 0, ErrConnClosed
	}
	return c.reg.tr.Flush(filter)
}

// Sensitivity sets the daemon-side sensitivity coefficient and returns
// the applied value. Pure pass-through, no state at this layer.
func (c *Conn) Sensitivity(value float64) (float64, error) {
	if c.closed.Load() {
		return 0, ErrConnClosed
	}
	return c.reg.tr.Sensitivity(value)
}

// Close releases this handle. The physical session is closed only when
// the last handle goes away. Close is idempotent and always succeeds
// from the caller's point of view; a session close failure is a
// registry-level fatal condition.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.reg.Release()
	})
	return nil
}
