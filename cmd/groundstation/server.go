package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/w1xm/lisat_interface/events"
	"github.com/w1xm/lisat_interface/station"
)

type Server struct {
	panel *station.Panel
	hub   *events.Hub
	log   zerolog.Logger
}

func NewServer(panel *station.Panel, hub *events.Hub, log zerolog.Logger) *Server {
	return &Server{panel: panel, hub: hub, log: log}
}

// Router serves the API under /api and static files from staticDir.
func (s *Server) Router(staticDir string) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.StatusHandler).Methods(http.MethodGet)
	api.HandleFunc("/ports", s.PortsHandler).Methods(http.MethodGet)
	api.HandleFunc("/connect", s.ConnectHandler).Methods(http.MethodPost)
	api.HandleFunc("/connect/auto", s.AutoConnectHandler).Methods(http.MethodPost)
	api.HandleFunc("/disconnect", s.DisconnectHandler).Methods(http.MethodPost)
	api.HandleFunc("/angle", s.AngleHandler).Methods(http.MethodPost)
	api.HandleFunc("/ws", s.StatusSocketHandler)
	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}
	return r
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("writing response")
	}
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.hub.Snapshot())
}

// PortsHandler rescans the candidate devices.
func (s *Server) PortsHandler(w http.ResponseWriter, r *http.Request) {
	ports := s.panel.Ports()
	s.hub.OnPorts(ports)
	if ports == nil {
		ports = []string{}
	}
	s.writeJSON(w, http.StatusOK, ports)
}

type queued struct {
	Queued string `json:"queued,omitempty"`
	Error  string `json:"error,omitempty"`
}

// dispatched reports the outcome of handing a request to the panel. The
// result of the request itself arrives as events.
func (s *Server) dispatched(w http.ResponseWriter, op string, err error) {
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusAccepted, queued{Queued: op})
	case errors.Is(err, station.ErrBusy):
		s.writeJSON(w, http.StatusServiceUnavailable, queued{Error: err.Error()})
	default:
		s.writeJSON(w, http.StatusInternalServerError, queued{Error: err.Error()})
	}
}

func (s *Server) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Device string `json:"device"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, queued{Error: err.Error()})
		return
	}
	s.dispatched(w, "connect", s.panel.Connect(req.Device))
}

func (s *Server) AutoConnectHandler(w http.ResponseWriter, r *http.Request) {
	s.dispatched(w, "auto-connect", s.panel.AutoConnect())
}

func (s *Server) DisconnectHandler(w http.ResponseWriter, r *http.Request) {
	s.dispatched(w, "disconnect", s.panel.Disconnect())
}

func (s *Server) AngleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Angle string `json:"angle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, queued{Error: err.Error()})
		return
	}
	s.dispatched(w, "send", s.panel.SendAngle(req.Angle))
}

type Command struct {
	Command string `json:"command"`
	Device  string `json:"device"`
	Angle   string `json:"angle"`
}

type snapshotMessage struct {
	Type     string          `json:"type"`
	Snapshot events.Snapshot `json:"snapshot"`
}

func (s *Server) StatusSocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	evs, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	// Read and process incoming messages
	go func() {
		defer cancel()
		for {
			var msg Command
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Command {
			case "connect":
				s.panel.Connect(msg.Device)
			case "auto_connect":
				s.panel.AutoConnect()
			case "disconnect":
				s.panel.Disconnect()
			case "set_angle":
				s.panel.SendAngle(msg.Angle)
			case "refresh_ports":
				s.hub.OnPorts(s.panel.Ports())
			default:
				s.log.Debug().Str("command", msg.Command).Msg("unknown websocket command")
			}
		}
	}()

	if err := conn.WriteJSON(snapshotMessage{Type: "snapshot", Snapshot: s.hub.Snapshot()}); err != nil {
		s.log.Debug().Err(err).Msg("websocket write")
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}
