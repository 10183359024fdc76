package spacenav

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport counts lifecycle calls and serves canned records.
type fakeTransport struct {
	mu     sync.Mutex
	opens  int
	closes int
	open   bool

	fd       int
	openErr  error
	closeErr error
	fdErr    error

	waitFn  func() (RawEvent, error)
	pollFn  func() (RawEvent, bool, error)
	flushFn func(EventType) (int, error)
	sensFn  func(float64) (float64, error)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{fd: 7}
}

func (f *fakeTransport) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.openErr != nil {
		return f.openErr
	}
	if f.open {
		return errors.New("fake: double open")
	}
	f.open = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if f.closeErr != nil {
		return f.closeErr
	}
	if !f.open {
		return errors.New("fake: close without open")
	}
	f.open = false
	return nil
}

func (f *fakeTransport) Fd() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fdErr != nil {
		return -1, f.fdErr
	}
	return f.fd, nil
}

func (f *fakeTransport) WaitEvent() (RawEvent, error) {
	if f.waitFn != nil {
		return f.waitFn()
	}
	return RawEvent{}, errors.New("fake: no wait behavior")
}

func (f *fakeTransport) PollEvent() (RawEvent, bool, error) {
	if f.pollFn != nil {
		return f.pollFn()
	}
	return RawEvent{}, false, nil
}

func (f *fakeTransport) Flush(filter EventType) (int, error) {
	if f.flushFn != nil {
		return f.flushFn(filter)
	}
	return 0, nil
}

func (f *fakeTransport) Sensitivity(v float64) (float64, error) {
	if f.sensFn != nil {
		return f.sensFn(v)
	}
	return v, nil
}

func (f *fakeTransport) counts() (opens, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes
}

// newTestRegistry returns a registry whose fatal path records instead
// of aborting the test binary.
func newTestRegistry(tr Transport) (*Registry, *[]string) {
	reg := NewRegistry(tr)
	var fatals []string
	reg.fatalf = func(format string, args ...interface{}) {
		fatals = append(fatals, fmt.Sprintf(format, args...))
	}
	return reg, &fatals
}

func TestRegistryAcquireOpensOnFirstUse(t *testing.T) {
	tr := newFakeTransport()
	reg, _ := newTestRegistry(tr)

	fd, err := reg.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 7, fd)

	opens, closes := tr.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 0, closes)

	// Second acquire rides the existing session.
	_, err = reg.Acquire()
	require.NoError(t, err)
	opens, _ = tr.counts()
	assert.Equal(t, 1, opens)
}

func TestRegistryOpenFailureLeavesCountZero(t *testing.T) {
	tr := newFakeTransport()
	tr.openErr = errors.New("daemon not running")
	reg, _ := newTestRegistry(tr)

	_, err := reg.Acquire()
	require.Error(t, err)

	reg.mu.Lock()
	refs := reg.refs
	reg.mu.Unlock()
	assert.Equal(t, 0, refs)

	// The next acquire must try the open again, not short-circuit.
	_, err = reg.Acquire()
	require.Error(t, err)
	opens, _ := tr.counts()
	assert.Equal(t, 2, opens)
}

func TestRegistryDescriptorFailureKeepsSessionOpen(t *testing.T) {
	tr := newFakeTransport()
	tr.fdErr = errors.New("fd unavailable")
	reg, _ := newTestRegistry(tr)

	_, err := reg.Acquire()
	require.Error(t, err)

	// No rollback: the session stays open and the count incremented.
	reg.mu.Lock()
	refs := reg.refs
	reg.mu.Unlock()
	assert.Equal(t, 1, refs)

	opens, closes := tr.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 0, closes)

	// The leaked reference still pairs with a release.
	reg.Release()
	_, closes = tr.counts()
	assert.Equal(t, 1, closes)
}

func TestRegistryReleaseClosesOnlyAtZero(t *testing.T) {
	tr := newFakeTransport()
	reg, _ := newTestRegistry(tr)

	_, err := reg.Acquire()
	require.NoError(t, err)
	_, err = reg.Acquire()
	require.NoError(t, err)

	reg.Release()
	opens, closes := tr.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 0, closes)

	reg.Release()
	_, closes = tr.counts()
	assert.Equal(t, 1, closes)
}

func TestRegistryReleaseWithoutAcquire(t *testing.T) {
	tr := newFakeTransport()
	reg, fatals := newTestRegistry(tr)

	reg.Release()

	_, closes := tr.counts()
	assert.Equal(t, 0, closes)
	assert.Empty(t, *fatals)
}

func TestRegistryCloseFailureIsFatal(t *testing.T) {
	tr := newFakeTransport()
	tr.closeErr = errors.New("socket wedged")
	reg, fatals := newTestRegistry(tr)

	_, err := reg.Acquire()
	require.NoError(t, err)
	reg.Release()

	require.Len(t, *fatals, 1)
	assert.Contains(t, (*fatals)[0], "socket wedged")
}

func TestRegistryConcurrentAcquireRelease(t *testing.T) {
	const handles = 64

	tr := newFakeTransport()
	reg, _ := newTestRegistry(tr)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < handles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := reg.Acquire()
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	opens, closes := tr.counts()
	require.Equal(t, 1, opens, "exactly one physical open regardless of interleaving")
	require.Equal(t, 0, closes)

	for i := 0; i < handles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Release()
		}()
	}
	wg.Wait()

	opens, closes = tr.counts()
	require.Equal(t, 1, opens)
	require.Equal(t, 1, closes, "exactly one physical close regardless of interleaving")

	reg.mu.Lock()
	refs := reg.refs
	reg.mu.Unlock()
	assert.Equal(t, 0, refs)
}
