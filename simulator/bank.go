package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/w1xm/lisat_interface/link"
	"golang.org/x/sync/errgroup"
)

var (
	errBusy     = errors.New("device busy")
	errNoDevice = errors.New("no such device")
)

type device struct {
	busy bool
	sim  *Simulator
	conn io.Closer
}

// Bank is a set of named simulated actuators. It serves as both the
// opener and the port lister for a station running without hardware.
type Bank struct {
	g     *errgroup.Group
	ctx   context.Context
	log   zerolog.Logger
	names []string

	mu      sync.Mutex
	devices map[string]*device
}

// NewBank creates n actuators named sim0, sim1 and so on. Simulators run
// until ctx is done.
func NewBank(ctx context.Context, n int, log zerolog.Logger) *Bank {
	g, ctx := errgroup.WithContext(ctx)
	b := &Bank{
		g:       g,
		ctx:     ctx,
		log:     log,
		devices: make(map[string]*device),
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("sim%d", i)
		b.names = append(b.names, name)
		b.devices[name] = &device{}
	}
	return b
}

func (b *Bank) List() []string {
	return append([]string(nil), b.names...)
}

// Open connects to a fresh simulator session for name.
func (b *Bank) Open(name string, cfg link.Config) (io.ReadWriteCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[name]
	if !ok {
		return nil, errNoDevice
	}
	if d.busy {
		return nil, errBusy
	}
	sim, conn := New(b.log.With().Str("device", name).Logger())
	d.sim, d.conn = sim, sim.conn
	b.g.Go(func() error {
		if err := sim.Run(b.ctx); err != nil {
			b.log.Warn().Err(err).Str("device", name).Msg("simulator stopped")
		}
		return nil
	})
	return conn, nil
}

// SetBusy makes later opens of name fail as if another program held it.
func (b *Bank) SetBusy(name string, busy bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d, ok := b.devices[name]; ok {
		d.busy = busy
	}
}

// Unplug drops the live session for name. The driver sees its next write fail.
func (b *Bank) Unplug(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[name]
	if !ok || d.conn == nil {
		return
	}
	d.conn.Close()
	d.conn = nil
}

// Status reports the state of the most recent session for name.
func (b *Bank) Status(name string) (Status, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[name]
	if !ok || d.sim == nil {
		return Status{}, false
	}
	return d.sim.Status(), true
}

// Wait blocks until every simulator has stopped.
func (b *Bank) Wait() error {
	return b.g.Wait()
}
