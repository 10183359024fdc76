package spacenav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

// DefaultSocketPath is where spacenavd listens by default.
const DefaultSocketPath = "/var/run/spnav.sock"

// Wire-level record tags. The daemon sends 8 native-endian int32 words
// per record: word 0 is the tag, words 1..7 the payload.
const (
	wireMotion        = 0
	wireButtonPress   = 1
	wireButtonRelease = 2

	frameWords = 8
	frameBytes = frameWords * 4
)

var errNotOpen = errors.New("spacenav: session not open")

// UnixTransport speaks spacenavd's AF_UNIX protocol. It satisfies
// Transport; a Registry owns its Open/Close lifecycle.
//
// Records that Flush reads but must not discard are parked on a FIFO
// ring and handed back to WaitEvent/PollEvent before any new socket
// reads, so a flush never loses non-matching events.
type UnixTransport struct {
	path    string
	timeout time.Duration

	// mu guards the session fields and the parked ring. Never held
	// across a blocking socket read.
	mu     sync.Mutex
	conn   net.Conn
	fd     int
	parked *queue.Queue

	// readMu serializes socket reads so a frame is never torn between
	// two readers. PollEvent only try-locks it: if another goroutine is
	// blocked reading, nothing is "immediately available" anyway.
	readMu sync.Mutex
}

// NewUnixTransport creates a transport for the daemon socket at path.
// An empty path means DefaultSocketPath.
func NewUnixTransport(path string) *UnixTransport {
	if path == "" {
		path = DefaultSocketPath
	}
	return &UnixTransport{
		path:    path,
		timeout: 5 * time.Second,
		fd:      -1,
	}
}

// Open dials the daemon socket and captures its descriptor.
func (t *UnixTransport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return fmt.Errorf("spacenav: session already open on %s", t.path)
	}

	conn, err := net.DialTimeout("unix", t.path, t.timeout)
	if err != nil {
		return fmt.Errorf("spacenav: dial %s: %w", t.path, err)
	}

	uc, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return fmt.Errorf("spacenav: unexpected connection type %T", conn)
	}

	fd, err := descriptorOf(uc)
	if err != nil {
		conn.Close()
		return fmt.Errorf("spacenav: session descriptor: %w", err)
	}

	t.conn = conn
	t.fd = fd
	t.parked = queue.New()
	return nil
}

// Close tears the session down. Pending parked records die with it.
// A WaitEvent blocked on the socket is unblocked with a read error.
func (t *UnixTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.fd = -1
	t.parked = nil
	t.mu.Unlock()

	if conn == nil {
		return errNotOpen
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("spacenav: close session: %w", err)
	}
	return nil
}

// Fd reports the socket descriptor of the open session.
func (t *UnixTransport) Fd() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return -1, errNotOpen
	}
	return t.fd, nil
}

// WaitEvent blocks until one record arrives or the session fails.
func (t *UnixTransport) WaitEvent() (RawEvent, error) {
	if raw, ok := t.unpark(); ok {
		return raw, nil
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()

	// A Flush may have parked records while we waited for the read lock.
	if raw, ok := t.unpark(); ok {
		return raw, nil
	}
	return t.readFrame()
}

// PollEvent reports a record only if one is immediately available.
func (t *UnixTransport) PollEvent() (RawEvent, bool, error) {
	if raw, ok := t.unpark(); ok {
		return raw, true, nil
	}

	if !t.readMu.TryLock() {
		// Another goroutine is blocked on the socket; whatever arrives
		// next is its record, not ours.
		return RawEvent{}, false, nil
	}
	defer t.readMu.Unlock()

	if raw, ok := t.unpark(); ok {
		return raw, true, nil
	}

	ready, err := t.readable()
	if err != nil {
		return RawEvent{}, false, err
	}
	if !ready {
		return RawEvent{}, false, nil
	}

	raw, err := t.readFrame()
	if err != nil {
		return RawEvent{}, false, err
	}
	return raw, true, nil
}

// Flush drains immediately-available records, discarding the ones that
// match the filter and parking the rest for later delivery.
func (t *UnixTransport) Flush(filter EventType) (int, error) {
	removed := 0

	// Sweep records parked by earlier flushes first.
	t.mu.Lock()
	if t.parked != nil {
		for n := t.parked.Length(); n > 0; n-- {
			raw := t.parked.Remove().(RawEvent)
			if matchesFilter(raw, filter) {
				removed++
			} else {
				t.parked.Add(raw)
			}
		}
	}
	t.mu.Unlock()

	if !t.readMu.TryLock() {
		// A blocked WaitEvent owns the socket; anything that arrives is
		// its record, so nothing more counts as pending.
		return removed, nil
	}
	defer t.readMu.Unlock()

	for {
		ready, err := t.readable()
		if err != nil {
			return removed, err
		}
		if !ready {
			return removed, nil
		}
		raw, err := t.readFrame()
		if err != nil {
			return removed, err
		}
		if matchesFilter(raw, filter) {
			removed++
		} else {
			t.park(raw)
		}
	}
}

// Sensitivity sends a sensitivity coefficient to the daemon. The
// protocol carries it as a single float32 and has no reply, so the
// applied value is the requested one.
func (t *UnixTransport) Sensitivity(value float64) (float64, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return 0, errNotOpen
	}

	var buf [4]byte
	binary.NativeEndian.PutUint32(buf[:], math.Float32bits(float32(value)))
	if _, err := conn.Write(buf[:]); err != nil {
		return 0, fmt.Errorf("spacenav: set sensitivity: %w", err)
	}
	return value, nil
}

func matchesFilter(raw RawEvent, filter EventType) bool {
	return filter == EventAny || EventType(raw.Tag) == filter
}

func (t *UnixTransport) park(raw RawEvent) {
	t.mu.Lock()
	if t.parked != nil {
		t.parked.Add(raw)
	}
	t.mu.Unlock()
}

func (t *UnixTransport) unpark() (RawEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.parked == nil || t.parked.Length() == 0 {
		return RawEvent{}, false
	}
	return t.parked.Remove().(RawEvent), true
}

// readable checks the socket for pending input without blocking.
func (t *UnixTransport) readable() (bool, error) {
	t.mu.Lock()
	fd := t.fd
	t.mu.Unlock()
	if fd < 0 {
		return false, errNotOpen
	}

	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(pfd, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("spacenav: poll descriptor: %w", err)
		}
		return n > 0 && pfd[0].Revents&unix.POLLIN != 0, nil
	}
}

// readFrame reads one 32-byte record off the socket and lifts it into
// a RawEvent. Callers hold readMu.
func (t *UnixTransport) readFrame() (RawEvent, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return RawEvent{}, errNotOpen
	}

	var buf [frameBytes]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return RawEvent{}, fmt.Errorf("spacenav: read event: %w", err)
	}

	var w [frameWords]int32
	for i := range w {
		w[i] = int32(binary.NativeEndian.Uint32(buf[i*4:]))
	}

	switch w[0] {
	case wireMotion:
		return RawEvent{
			Tag: int32(EventMotion),
			Motion: RawMotion{
				X: w[1], Y: w[2], Z: w[3],
				RX: w[4], RY: w[5], RZ: w[6],
				Period: uint32(w[7]),
				Aux:    []int32{w[1], w[2], w[3], w[4], w[5], w[6]},
			},
		}, nil
	case wireButtonPress, wireButtonRelease:
		press := int32(0)
		if w[0] == wireButtonPress {
			press = 1
		}
		return RawEvent{
			Tag:    int32(EventButton),
			Button: RawButton{Press: press, Num: w[1]},
		}, nil
	default:
		// Unknown wire tags pass through untyped; the codec turns them
		// into a decode failure rather than guessing a payload shape.
		return RawEvent{Tag: w[0]}, nil
	}
}

func descriptorOf(uc *net.UnixConn) (int, error) {
	rc, err := uc.SyscallConn()
	if err != nil {
		return -1, err
	}
	fd := -1
	if err := rc.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return -1, err
	}
	return fd, nil
}
