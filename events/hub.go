package events

import (
	"sync"
	"time"
)

// Snapshot is the display state a newly attached client needs to draw.
type Snapshot struct {
	Connected      bool      `json:"connected"`
	Device         string    `json:"device,omitempty"`
	Status         string    `json:"status"`
	StatusSeverity Severity  `json:"status_severity"`
	Angle          *int      `json:"angle,omitempty"`
	Ports          []string  `json:"ports"`
	Updated        time.Time `json:"updated"`
}

// Hub is a Sink that keeps a Snapshot and broadcasts every Event to its
// subscribers. A subscriber that falls behind loses events rather than
// stalling the sender.
type Hub struct {
	mu     sync.RWMutex
	state  Snapshot
	subs   map[chan Event]struct{}
	buffer int
	now    func() time.Time
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		state:  Snapshot{Status: "Select or auto-connect COM port", StatusSeverity: Warning},
		subs:   make(map[chan Event]struct{}),
		buffer: buffer,
		now:    time.Now,
	}
}

// Subscribe returns a channel of events and a function that releases it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.state
	s.Ports = append([]string(nil), h.state.Ports...)
	if h.state.Angle != nil {
		a := *h.state.Angle
		s.Angle = &a
	}
	return s
}

func (h *Hub) publish(ev Event, update func(*Snapshot)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(ev, update)
}

func (h *Hub) publishLocked(ev Event, update func(*Snapshot)) {
	ev.Time = h.now()
	if update != nil {
		update(&h.state)
		h.state.Updated = ev.Time
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) OnLog(msg string, sev Severity) {
	h.publish(Event{Type: TypeLog, Message: msg, Severity: sev}, nil)
}

func (h *Hub) OnStatus(msg string, sev Severity) {
	h.publish(Event{Type: TypeStatus, Message: msg, Severity: sev}, func(s *Snapshot) {
		s.Status = msg
		s.StatusSeverity = sev
	})
}

func (h *Hub) OnConnected(device string) {
	h.publish(Event{Type: TypeConnected, Device: device, Severity: Success}, func(s *Snapshot) {
		s.Connected = true
		s.Device = device
	})
}

func (h *Hub) OnDisconnected() {
	h.publish(Event{Type: TypeDisconnected, Severity: Error}, func(s *Snapshot) {
		s.Connected = false
		s.Device = ""
	})
}

// OnAngleConfirmed tags the event with the device connected at the time.
func (h *Hub) OnAngleConfirmed(angle int) {
	a := angle
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(Event{Type: TypeAngle, Angle: &a, Device: h.state.Device, Severity: Info}, func(s *Snapshot) {
		s.Angle = &a
	})
}

// OnPorts records a fresh port listing.
func (h *Hub) OnPorts(ports []string) {
	p := append([]string(nil), ports...)
	h.publish(Event{Type: TypePorts, Ports: p, Severity: Info}, func(s *Snapshot) {
		s.Ports = p
	})
}
