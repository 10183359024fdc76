package spacenav

import (
	"fmt"
	"sync"

	"github.com/bnema/spacenav/internal/config"
	"github.com/bnema/spacenav/internal/logger"
)

// Registry multiplexes any number of Conn handles onto one physical
// daemon session. The session is opened on the first Acquire and
// closed when the last handle releases; both decisions and the live
// handle count are guarded by a single mutex. The lock is never held
// across a blocking wait.
//
// Production code normally goes through the process-wide registry (see
// Open); tests instantiate their own with NewRegistry and a fake
// Transport.
type Registry struct {
	mu   sync.Mutex
	refs int
	tr   Transport

	// fatalf handles a close failure on last release, where there is no
	// caller left to return an error to. Defaults to logger.Fatalf.
	fatalf func(format string, args ...interface{})
}

// NewRegistry creates a registry driving the given transport.
func NewRegistry(tr Transport) *Registry {
	return &Registry{tr: tr, fatalf: logger.Fatalf}
}

// Acquire registers one more live handle, opening the physical session
// if this is the first. It returns the session descriptor.
//
// If the open fails the count stays at zero and a later Acquire will
// try to open again. If the open succeeds but the descriptor cannot be
// retrieved, the session stays open and the count stays incremented;
// only the error is reported (the daemon session itself is fine, the
// caller just could not learn its descriptor).
func (r *Registry) Acquire() (int, error) {
	r.mu.Lock()
	if r.refs == 0 {
		if err := r.tr.Open(); err != nil {
			r.mu.Unlock()
			return 0, fmt.Errorf("spacenav: open session: %w", err)
		}
	}
	r.refs++
	r.mu.Unlock()

	fd, err := r.tr.Fd()
	if err != nil {
		return 0, fmt.Errorf("spacenav: session descriptor: %w", err)
	}
	return fd, nil
}

// Release unregisters one live handle, closing the physical session
// when the count reaches zero. A close failure at that boundary leaves
// the session in an unknown state with nobody to report to, so it is
// escalated through fatalf instead of being swallowed.
func (r *Registry) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.refs == 0 {
		logger.Warn("spacenav: release with no live handles")
		return
	}
	r.refs--
	if r.refs == 0 {
		if err := r.tr.Close(); err != nil {
			r.fatalf("spacenav: closing daemon session: %v", err)
		}
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// DefaultRegistry returns the process-wide registry, wired on first use
// to a unix transport at the configured daemon socket path.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry(NewUnixTransport(config.Get().Daemon.SocketPath))
	})
	return defaultReg
}
