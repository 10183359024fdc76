package spacenav

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func motionRecord() RawEvent {
	return RawEvent{
		Tag: int32(EventMotion),
		Motion: RawMotion{
			X: 10, Y: -20, Z: 30,
			RX: -1, RY: 2, RZ: -3,
			Period: 16,
			Aux:    []int32{10, -20, 30, -1, 2, -3},
		},
	}
}

func TestOpenRegistryWrapsDescriptor(t *testing.T) {
	tr := newFakeTransport()
	tr.fd = 42
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 42, conn.Fd())
}

func TestOpenRegistryPropagatesConnectFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.openErr = errors.New("daemon not running")
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.Error(t, err)
	assert.Nil(t, conn)
}

func TestConnPollDecodes(t *testing.T) {
	tr := newFakeTransport()
	tr.pollFn = func() (RawEvent, bool, error) {
		return motionRecord(), true, nil
	}
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.NoError(t, err)
	defer conn.Close()

	ev, ok := conn.Poll()
	require.True(t, ok)
	motion, ok := ev.(MotionEvent)
	require.True(t, ok)
	assert.Equal(t, MotionEvent{X: 10, Y: -20, Z: 30, RX: -1, RY: 2, RZ: -3, Period: 16}, motion)
}

func TestConnPollNothingPending(t *testing.T) {
	tr := newFakeTransport()
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.NoError(t, err)
	defer conn.Close()

	ev, ok := conn.Poll()
	assert.False(t, ok)
	assert.Nil(t, ev)
}

func TestConnPollSwallowsUnknownTag(t *testing.T) {
	tr := newFakeTransport()
	tr.pollFn = func() (RawEvent, bool, error) {
		return RawEvent{Tag: 99}, true, nil
	}
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.NoError(t, err)
	defer conn.Close()

	// An undecodable pending record is indistinguishable from nothing
	// pending: not a failure.
	ev, ok := conn.Poll()
	assert.False(t, ok)
	assert.Nil(t, ev)
}

func TestConnWaitDecodes(t *testing.T) {
	tr := newFakeTransport()
	tr.waitFn = func() (RawEvent, error) {
		return RawEvent{Tag: int32(EventButton), Button: RawButton{Press: 1, Num: 4}}, nil
	}
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.NoError(t, err)
	defer conn.Close()

	ev, err := conn.Wait()
	require.NoError(t, err)
	assert.Equal(t, ButtonEvent{Press: true, Num: 4}, ev)
}

func TestConnWaitReportsUnknownTag(t *testing.T) {
	tr := newFakeTransport()
	tr.waitFn = func() (RawEvent, error) {
		return RawEvent{Tag: 99}, nil
	}
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.NoError(t, err)
	defer conn.Close()

	// Unlike Poll, a caller that blocked deserves an explicit error.
	_, err = conn.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestConnWaitReportsTransportFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.waitFn = func() (RawEvent, error) {
		return RawEvent{}, errors.New("connection dropped")
	}
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection dropped")
}

func TestConnFlushAndSensitivityPassThrough(t *testing.T) {
	tr := newFakeTransport()
	var flushedWith EventType = -1
	tr.flushFn = func(filter EventType) (int, error) {
		flushedWith = filter
		return 3, nil
	}
	var sensWith float64
	tr.sensFn = func(v float64) (float64, error) {
		sensWith = v
		return v, nil
	}
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.NoError(t, err)
	defer conn.Close()

	n, err := conn.Flush(EventMotion)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, EventMotion, flushedWith)

	applied, err := conn.Sensitivity(1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, applied)
	assert.Equal(t, 1.5, sensWith)
}

func TestConnCloseReleasesExactlyOnce(t *testing.T) {
	tr := newFakeTransport()
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	_, closes := tr.counts()
	assert.Equal(t, 1, closes)
}

func TestConnOperationsAfterClose(t *testing.T) {
	tr := newFakeTransport()
	tr.pollFn = func() (RawEvent, bool, error) {
		return motionRecord(), true, nil
	}
	reg, _ := newTestRegistry(tr)

	conn, err := OpenRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, ok := conn.Poll()
	assert.False(t, ok)

	_, err = conn.Wait()
	assert.ErrorIs(t, err, ErrConnClosed)

	_, err = conn.Flush(EventAny)
	assert.ErrorIs(t, err, ErrConnClosed)

	_, err = conn.Sensitivity(1)
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestConnConcurrentLifecycle(t *testing.T) {
	const handles = 32

	tr := newFakeTransport()
	reg, _ := newTestRegistry(tr)

	var wg sync.WaitGroup
	conns := make([]*Conn, handles)
	for i := 0; i < handles; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := OpenRegistry(reg)
			assert.NoError(t, err)
			conns[i] = conn
		}(i)
	}
	wg.Wait()

	opens, closes := tr.counts()
	require.Equal(t, 1, opens)
	require.Equal(t, 0, closes)

	for _, conn := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			assert.NoError(t, c.Close())
		}(conn)
	}
	wg.Wait()

	opens, closes = tr.counts()
	require.Equal(t, 1, opens)
	require.Equal(t, 1, closes)
}
