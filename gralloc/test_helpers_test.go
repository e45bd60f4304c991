package gralloc

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPage = 4096

// fakePool implements PoolBackend over a plain byte slice, with injectable
// failures for the open and sub-map steps. Descriptors are synthetic
// integers; Close tracks them so tests can assert symmetry and catch double
// closes.
type fakePool struct {
	mu     sync.Mutex
	mem    []byte
	nextFD int
	open   map[int]bool

	openErr  error // fail the master open
	subErr   error // fail OpenSub after extent reservation
	physAddr uint64
	physErr  error

	opens    int // master opens performed
	subOpens int
	closes   int
}

func newFakePool() *fakePool {
	return &fakePool{nextFD: 100, open: map[int]bool{}}
}

func (p *fakePool) newFD() int {
	fd := p.nextFD
	p.nextFD++
	p.open[fd] = true
	return fd
}

func (p *fakePool) Open(size int64) (int, []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return -1, nil, p.openErr
	}
	if p.mem == nil {
		p.mem = make([]byte, size)
	}
	p.opens++
	return p.newFD(), p.mem, nil
}

func (p *fakePool) Phys(int) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.physErr != nil {
		return 0, p.physErr
	}
	return p.physAddr, nil
}

func (p *fakePool) OpenSub(masterFD int, offset, size int64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subErr != nil {
		return -1, p.subErr
	}
	if !p.open[masterFD] {
		return -1, errors.New("fakePool: sub-open against closed master")
	}
	if offset < 0 || offset+size > int64(len(p.mem)) {
		return -1, errors.New("fakePool: sub-range out of bounds")
	}
	p.subOpens++
	return p.newFD(), nil
}

func (p *fakePool) Close(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open[fd] {
		return errors.New("fakePool: close of unknown descriptor")
	}
	delete(p.open, fd)
	p.closes++
	return nil
}

// liveFDs returns how many descriptors are currently open.
func (p *fakePool) liveFDs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.open)
}

// fakeAnon implements AnonBackend with zeroed in-memory regions.
type fakeAnon struct {
	mu        sync.Mutex
	nextFD    int
	open      map[int]bool
	createErr error
	creates   int
	closes    int
}

func newFakeAnon() *fakeAnon {
	return &fakeAnon{nextFD: 500, open: map[int]bool{}}
}

func (a *fakeAnon) Create(name string, size int64) (int, []byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return -1, nil, a.createErr
	}
	fd := a.nextFD
	a.nextFD++
	a.open[fd] = true
	a.creates++
	return fd, make([]byte, size), nil
}

func (a *fakeAnon) Close(fd int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open[fd] {
		return errors.New("fakeAnon: close of unknown descriptor")
	}
	delete(a.open, fd)
	a.closes++
	return nil
}

// fakeDisplay hands out one prepared surface.
type fakeDisplay struct {
	surf     *Surface
	err      error
	mapCalls int
}

func (d *fakeDisplay) MapSurface() (*Surface, error) {
	d.mapCalls++
	if d.err != nil {
		return nil, d.err
	}
	return d.surf, nil
}

func newFakeDisplay(bufferCount int, bufferSize int64) *fakeDisplay {
	return &fakeDisplay{surf: &Surface{
		Data:        make([]byte, bufferSize*int64(bufferCount)),
		Phys:        0xD0000000,
		BufferSize:  bufferSize,
		BufferCount: bufferCount,
		LineLength:  bufferSize / 64,
	}}
}

// fakeRegistrar records registration traffic.
type fakeRegistrar struct {
	mu            sync.Mutex
	registered    int
	unregistered  int
	unregisterErr error
}

func (r *fakeRegistrar) RegisterBuffer(*Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered++
	return nil
}

func (r *fakeRegistrar) UnregisterBuffer(*Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregistered++
	return r.unregisterErr
}

// testEnv bundles a device with its fakes.
type testEnv struct {
	dev       *Device
	primary   *fakePool
	secA      *fakePool
	secB      *fakePool
	anon      *fakeAnon
	display   *fakeDisplay
	registrar *fakeRegistrar
}

func newTestDevice(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	env := &testEnv{
		primary:   newFakePool(),
		secA:      newFakePool(),
		secB:      newFakePool(),
		anon:      newFakeAnon(),
		display:   newFakeDisplay(2, 64*testPage),
		registrar: &fakeRegistrar{},
	}
	env.secA.physAddr = 0xA0000000
	env.secB.physAddr = 0xB0000000

	cfg := Config{
		Pools: map[PoolKind]PoolConfig{
			PoolPrimary:    {Backend: env.primary, Size: 10 * 1024 * 1024},
			PoolSecondaryA: {Backend: env.secA, Size: 3 * 1024 * 1024, TrackPhys: true},
			PoolSecondaryB: {Backend: env.secB, Size: 3 * 1024 * 1024, TrackPhys: true},
		},
		Anon:      env.anon,
		Display:   env.display,
		Registrar: env.registrar,
		PageSize:  testPage,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	dev, err := Open(cfg)
	require.NoError(t, err)
	env.dev = dev
	return env
}
