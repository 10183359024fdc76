package spacenav

// RawMotion is the undecoded motion payload. Aux mirrors the axis
// words the daemon repeats at the end of the frame; the codec drops it.
type RawMotion struct {
	X, Y, Z    int32
	RX, RY, RZ int32
	Period     uint32
	Aux        []int32
}

// RawButton is the undecoded button payload. Press uses the daemon's
// nonzero/zero convention.
type RawButton struct {
	Press int32
	Num   int32
}

// RawEvent is one tagged record as delivered by the transport, before
// decoding. Only the payload selected by Tag is meaningful.
type RawEvent struct {
	Tag    int32
	Motion RawMotion
	Button RawButton
}

// Transport is the physical session with the daemon. A Registry drives
// Open/Close at the first-handle/last-handle boundaries; Conn handles
// call the rest. Implementations must tolerate concurrent WaitEvent,
// PollEvent and Flush calls racing for the same record stream.
type Transport interface {
	// Open establishes the session. Called only when no session is open.
	Open() error

	// Close tears the session down. Called only when a session is open.
	// A blocked WaitEvent on another goroutine is unblocked with an
	// error, not a clean cancellation.
	Close() error

	// Fd reports the session's I/O descriptor, for callers that want to
	// select/poll on it themselves.
	Fd() (int, error)

	// WaitEvent blocks until one record arrives or the session fails.
	WaitEvent() (RawEvent, error)

	// PollEvent reports a pending record if one is immediately
	// available. ok is false when nothing is pending.
	PollEvent() (raw RawEvent, ok bool, err error)

	// Flush discards pending records matching the filter (EventAny
	// matches everything) and reports how many were dropped. Records
	// that do not match must survive for later WaitEvent/PollEvent.
	Flush(filter EventType) (int, error)

	// Sensitivity applies a sensitivity coefficient daemon-side and
	// reports the value that was applied. Stateless at this layer.
	Sensitivity(value float64) (float64, error)
}
