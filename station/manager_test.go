package station

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/w1xm/lisat_interface/events"
	"github.com/w1xm/lisat_interface/link"
	"github.com/w1xm/lisat_interface/ports"
)

func newTestManager(o *fakeOpener, candidates ...string) (*Manager, *recordingSink) {
	sink := &recordingSink{}
	m := NewManager(o, ports.Static(candidates), sink, WithHandshaker(NeutralProbe{}))
	return m, sink
}

// checkInvariants asserts Connected iff a link is held, and that at most
// one transport is open.
func checkInvariants(t *testing.T, m *Manager, o *fakeOpener) {
	t.Helper()
	state, device := m.State()
	m.mu.Lock()
	held := m.link != nil
	m.mu.Unlock()
	if (state == Connected) != held {
		t.Fatalf("state %v but link held = %v", state, held)
	}
	if state == Connected && device == "" {
		t.Fatal("connected without a device")
	}
	want := 0
	if held {
		want = 1
	}
	if n := o.openCount(); n != want {
		t.Fatalf("%d transports open, want %d", n, want)
	}
}

func TestConnectManual(t *testing.T) {
	o := newFakeOpener("COM3")
	m, sink := newTestManager(o)
	if err := m.ConnectManual("COM3"); err != nil {
		t.Fatalf("ConnectManual: %v", err)
	}
	if state, dev := m.State(); state != Connected || dev != "COM3" {
		t.Errorf("State() = %v %q, want connected COM3", state, dev)
	}
	want := []note{
		{"connected", "COM3", events.Success},
		{"status", "Connected to COM3", events.Success},
		{"log", "Manually connected to COM3", events.Success},
	}
	if diff := cmp.Diff(want, sink.all()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
	checkInvariants(t, m, o)
}

func TestConnectManualBusy(t *testing.T) {
	o := newFakeOpener("COM9")
	o.device("COM9").busy = true
	m, sink := newTestManager(o)

	err := m.ConnectManual("COM9")
	if !link.IsOpenError(err) || !errors.Is(err, errBusy) {
		t.Fatalf("ConnectManual() = %v, want OpenError(device busy)", err)
	}
	if state, _ := m.State(); state != Disconnected {
		t.Errorf("state = %v, want disconnected", state)
	}
	want := []note{
		{"log", "Failed to connect to COM9: device busy", events.Error},
		{"status", "Manual connect failed", events.Error},
	}
	if diff := cmp.Diff(want, sink.all()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}

	// Sending is still refused.
	sink.reset()
	if err := m.SendRaw(FormatAngle(10)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendRaw() = %v, want ErrNotConnected", err)
	}
	if diff := cmp.Diff([]note{{"log", "Not connected!", events.Warning}}, sink.all()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
	checkInvariants(t, m, o)
}

func TestConnectManualNoDevice(t *testing.T) {
	o := newFakeOpener()
	m, sink := newTestManager(o)
	if err := m.ConnectManual(""); !errors.Is(err, ErrNoDevice) {
		t.Errorf("ConnectManual(\"\") = %v, want ErrNoDevice", err)
	}
	if len(o.attempted()) != 0 {
		t.Error("an empty selection should not reach the opener")
	}
	if diff := cmp.Diff([]note{{"log", "No COM port selected.", events.Warning}}, sink.all()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
}

func TestConnectManualReplacesLink(t *testing.T) {
	o := newFakeOpener("A", "B")
	m, sink := newTestManager(o)
	if err := m.ConnectManual("A"); err != nil {
		t.Fatal(err)
	}
	first := o.device("A").current
	if err := m.ConnectManual("B"); err != nil {
		t.Fatal(err)
	}
	if !first.closed {
		t.Error("previous link was not closed")
	}
	if _, dev := m.State(); dev != "B" {
		t.Errorf("device = %q, want B", dev)
	}
	if n := sink.count("disconnected"); n != 1 {
		t.Errorf("%d disconnected notifications, want 1", n)
	}
	checkInvariants(t, m, o)
}

func TestConnectManualFailureDropsPreviousLink(t *testing.T) {
	o := newFakeOpener("A", "B")
	o.device("B").busy = true
	m, _ := newTestManager(o)
	if err := m.ConnectManual("A"); err != nil {
		t.Fatal(err)
	}
	if err := m.ConnectManual("B"); err == nil {
		t.Fatal("expected failure opening B")
	}
	if state, _ := m.State(); state != Disconnected {
		t.Errorf("state = %v, want disconnected", state)
	}
	checkInvariants(t, m, o)
}

func TestConnectAutoFirstSuccess(t *testing.T) {
	o := newFakeOpener("A", "B", "C")
	o.device("A").busy = true
	m, sink := newTestManager(o, "A", "B", "C")

	if err := m.ConnectAuto(); err != nil {
		t.Fatalf("ConnectAuto: %v", err)
	}
	if state, dev := m.State(); state != Connected || dev != "B" {
		t.Errorf("State() = %v %q, want connected B", state, dev)
	}
	if diff := cmp.Diff([]string{"A", "B"}, o.attempted()); diff != "" {
		t.Errorf("attempts (-want +got):\n%s", diff)
	}
	if got := o.device("B").written(); got != "0\n" {
		t.Errorf("probe wrote %q, want %q", got, "0\n")
	}
	want := []note{
		{"log", "Attempting auto-connect...", events.Info},
		{"log", "A failed: device busy", events.Error},
		{"connected", "B", events.Success},
		{"status", "Connected to B", events.Success},
		{"log", "Auto-connected to B", events.Success},
	}
	if diff := cmp.Diff(want, sink.all()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
	checkInvariants(t, m, o)
}

func TestConnectAutoProbeFailureClosesCandidate(t *testing.T) {
	o := newFakeOpener("A", "B")
	o.device("A").setDead(true)
	m, _ := newTestManager(o, "A", "B")

	if err := m.ConnectAuto(); err != nil {
		t.Fatalf("ConnectAuto: %v", err)
	}
	if !o.device("A").current.closed {
		t.Error("candidate that failed the probe was left open")
	}
	if _, dev := m.State(); dev != "B" {
		t.Errorf("device = %q, want B", dev)
	}
	checkInvariants(t, m, o)
}

func TestConnectAutoAllFail(t *testing.T) {
	o := newFakeOpener("A", "B")
	o.device("A").busy = true
	o.device("B").setDead(true)
	m, sink := newTestManager(o, "A", "B", "missing")

	if err := m.ConnectAuto(); !errors.Is(err, ErrNoResponse) {
		t.Fatalf("ConnectAuto() = %v, want ErrNoResponse", err)
	}
	if diff := cmp.Diff([]string{"A", "B", "missing"}, o.attempted()); diff != "" {
		t.Errorf("attempts (-want +got):\n%s", diff)
	}
	got := sink.all()
	last := got[len(got)-2:]
	want := []note{
		{"status", "Auto-connect failed", events.Error},
		{"log", "None of the ports responded. Use manual option.", events.Warning},
	}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("summary (-want +got):\n%s", diff)
	}
	if sink.count("connected") != 0 {
		t.Error("unexpected connected notification")
	}
	checkInvariants(t, m, o)
}

func TestConnectAutoNoCandidates(t *testing.T) {
	o := newFakeOpener("A")
	m, sink := newTestManager(o)
	if err := m.ConnectManual("A"); err != nil {
		t.Fatal(err)
	}
	sink.reset()

	if err := m.ConnectAuto(); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("ConnectAuto() = %v, want ErrNoCandidates", err)
	}
	if diff := cmp.Diff([]note{{"log", "No COM ports found.", events.Warning}}, sink.all()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
	if state, dev := m.State(); state != Connected || dev != "A" {
		t.Errorf("state changed to %v %q", state, dev)
	}
}

func TestSendWriteFailureDisconnectsOnce(t *testing.T) {
	o := newFakeOpener("X")
	m, sink := newTestManager(o)
	if err := m.ConnectManual("X"); err != nil {
		t.Fatal(err)
	}
	transport := o.device("X").current
	o.device("X").setDead(true)
	sink.reset()

	err := m.SendRaw(FormatAngle(30))
	if !link.IsWriteError(err) || !errors.Is(err, errReset) {
		t.Fatalf("SendRaw() = %v, want WriteError(device reset)", err)
	}
	if !transport.closed {
		t.Error("transport not closed after write failure")
	}
	if state, _ := m.State(); state != Disconnected {
		t.Errorf("state = %v, want disconnected", state)
	}
	want := []note{
		{"log", "Send error: device reset", events.Error},
		{"status", "Disconnected", events.Error},
		{"log", "Connection lost.", events.Error},
		{"disconnected", "", events.Info},
	}
	if diff := cmp.Diff(want, sink.all()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}

	m.HandleDisconnect()
	m.HandleDisconnect()
	if n := sink.count("disconnected"); n != 1 {
		t.Errorf("%d disconnected notifications, want exactly 1", n)
	}
	checkInvariants(t, m, o)
}

func TestTick(t *testing.T) {
	o := newFakeOpener("X")
	m, sink := newTestManager(o)

	m.Tick()
	if len(sink.all()) != 0 {
		t.Errorf("tick while disconnected notified: %v", sink.all())
	}

	if err := m.ConnectManual("X"); err != nil {
		t.Fatal(err)
	}
	sink.reset()
	m.Tick()
	if len(sink.all()) != 0 {
		t.Errorf("healthy tick notified: %v", sink.all())
	}

	o.device("X").setDead(true)
	m.Tick()
	if state, _ := m.State(); state != Disconnected {
		t.Errorf("state = %v, want disconnected", state)
	}
	want := []note{
		{"status", "Disconnected", events.Error},
		{"log", "Connection lost.", events.Error},
		{"disconnected", "", events.Info},
		{"log", "Disconnected: device reset", events.Error},
	}
	if diff := cmp.Diff(want, sink.all()); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}

	sink.reset()
	m.Tick()
	if len(sink.all()) != 0 {
		t.Errorf("tick after disconnect notified: %v", sink.all())
	}
	checkInvariants(t, m, o)
}

func TestDisconnect(t *testing.T) {
	o := newFakeOpener("X")
	m, sink := newTestManager(o)
	m.Disconnect()
	if len(sink.all()) != 0 {
		t.Error("disconnect while disconnected notified")
	}
	if err := m.ConnectManual("X"); err != nil {
		t.Fatal(err)
	}
	m.Disconnect()
	if state, _ := m.State(); state != Disconnected {
		t.Errorf("state = %v, want disconnected", state)
	}
	if n := sink.count("disconnected"); n != 1 {
		t.Errorf("%d disconnected notifications, want 1", n)
	}
	checkInvariants(t, m, o)
}

func TestClose(t *testing.T) {
	o := newFakeOpener("X")
	m, _ := newTestManager(o)
	if err := m.ConnectManual("X"); err != nil {
		t.Fatal(err)
	}
	m.Close()
	m.Close()
	checkInvariants(t, m, o)
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	names := []string{"A", "B", "C", "D"}
	for seed := int64(1); seed <= 20; seed++ {
		o := newFakeOpener(names...)
		m, _ := newTestManager(o, names...)
		r := rand.New(rand.NewSource(seed))
		for i := 0; i < 200; i++ {
			d := o.device(names[r.Intn(len(names))])
			switch r.Intn(9) {
			case 0:
				m.ConnectManual(names[r.Intn(len(names))])
			case 1:
				m.ConnectAuto()
			case 2:
				m.SendRaw(FormatAngle(r.Intn(200) - 50))
			case 3:
				m.HandleDisconnect()
			case 4:
				m.Disconnect()
			case 5:
				m.Tick()
			case 6:
				d.setDead(!d.failWrites())
			case 7:
				d.mu.Lock()
				d.busy = !d.busy
				d.mu.Unlock()
			case 8:
				NewPublisher(m, events.Discard{}).Send("4x")
			}
			checkInvariants(t, m, o)
		}
	}
}
