package station

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/w1xm/lisat_interface/events"
	"github.com/w1xm/lisat_interface/link"
)

var (
	errBusy  = errors.New("device busy")
	errReset = errors.New("device reset")
)

type fakeTransport struct {
	dev     *fakeDevice
	mu      sync.Mutex
	written []byte
	closed  bool
}

func (t *fakeTransport) Read(p []byte) (int, error) { return 0, io.EOF }

func (t *fakeTransport) Write(p []byte) (int, error) {
	if t.dev.failWrites() {
		return 0, errReset
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, p...)
	return len(p), nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		t.dev.opener.release()
	}
	return nil
}

type fakeDevice struct {
	opener  *fakeOpener
	mu      sync.Mutex
	busy    bool
	dead    bool
	current *fakeTransport
}

func (d *fakeDevice) failWrites() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dead
}

func (d *fakeDevice) setDead(v bool) {
	d.mu.Lock()
	d.dead = v
	d.mu.Unlock()
}

func (d *fakeDevice) written() string {
	d.mu.Lock()
	t := d.current
	d.mu.Unlock()
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.written)
}

// fakeOpener hands out fakeTransports and tracks how many are open.
type fakeOpener struct {
	mu       sync.Mutex
	devices  map[string]*fakeDevice
	attempts []string
	open     int
}

func newFakeOpener(names ...string) *fakeOpener {
	o := &fakeOpener{devices: make(map[string]*fakeDevice)}
	for _, n := range names {
		o.devices[n] = &fakeDevice{opener: o}
	}
	return o
}

func (o *fakeOpener) device(name string) *fakeDevice {
	return o.devices[name]
}

func (o *fakeOpener) Open(device string, cfg link.Config) (io.ReadWriteCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = append(o.attempts, device)
	d, ok := o.devices[device]
	if !ok {
		return nil, fmt.Errorf("no such file or directory")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return nil, errBusy
	}
	t := &fakeTransport{dev: d}
	d.current = t
	o.open++
	return t, nil
}

func (o *fakeOpener) release() {
	o.mu.Lock()
	o.open--
	o.mu.Unlock()
}

func (o *fakeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

func (o *fakeOpener) attempted() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.attempts...)
}

type note struct {
	Kind     string
	Message  string
	Severity events.Severity
}

// recordingSink remembers every notification in order.
type recordingSink struct {
	mu    sync.Mutex
	notes []note
}

func (s *recordingSink) add(n note) {
	s.mu.Lock()
	s.notes = append(s.notes, n)
	s.mu.Unlock()
}

func (s *recordingSink) OnLog(msg string, sev events.Severity) {
	s.add(note{"log", msg, sev})
}

func (s *recordingSink) OnStatus(msg string, sev events.Severity) {
	s.add(note{"status", msg, sev})
}

func (s *recordingSink) OnConnected(device string) {
	s.add(note{"connected", device, events.Success})
}

func (s *recordingSink) OnDisconnected() {
	s.add(note{"disconnected", "", events.Info})
}

func (s *recordingSink) OnAngleConfirmed(angle int) {
	s.add(note{"angle", fmt.Sprint(angle), events.Info})
}

func (s *recordingSink) all() []note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]note(nil), s.notes...)
}

func (s *recordingSink) count(kind string) int {
	n := 0
	for _, x := range s.all() {
		if x.Kind == kind {
			n++
		}
	}
	return n
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	s.notes = nil
	s.mu.Unlock()
}
