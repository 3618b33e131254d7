package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/w1xm/lisat_interface/station"
)

// ListenRotctld serves a subset of the hamlib rotctld protocol on addr until
// ctx is done. Elevation maps to panel tilt; azimuth is fixed at 0.
func (s *Server) ListenRotctld(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutdown; closing rotctld socket")
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Msg("failed to accept")
			continue
		}
		go s.handleRotctld(conn, conn.RemoteAddr().String())
	}
}

func (s *Server) handleRotctld(conn io.ReadWriteCloser, remote string) {
	defer conn.Close()
	log := s.log.With().Str("remote", remote).Logger()
	log.Info().Msg("accepted rotctld connection")
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		// Two forms of command: single character, or "+\" followed by command name.
		cmd := scanner.Text()
		var args []string
		var extended bool
		if len(cmd) == 0 {
			continue
		} else if len(cmd) > 2 && cmd[0:2] == `+\` {
			extended = true
			parts := strings.Fields(cmd)
			cmd = parts[0][2:]
			args = parts[1:]
			fmt.Fprintf(conn, "%s:\n", cmd)
		} else if len(cmd) > 1 && cmd[0] == '\\' {
			parts := strings.Fields(cmd)
			cmd = parts[0][1:]
			args = parts[1:]
		} else {
			// Space after command is optional.
			args = strings.Fields(cmd[1:])
			cmd = cmd[:1]
		}
		log.Debug().Str("command", cmd).Strs("args", args).Msg("rotctld")
		rprt := -1
		switch cmd {
		case "q", "Q", "quit":
			return
		case "1", "dump_caps":
			fmt.Fprintf(conn, `Model name: LiSat-1 tilt
Mfg name: LiSat
Rot type: Elevation
Min Azimuth: 0.00
Max Azimuth: 0.00
Min Elevation: %d.00
Max Elevation: %d.00
Can set Position: Y
Can get Position: Y
Can Stop: Y
Can Park: N
Can Reset: N
Can Move: N
Can get Info: N
`, station.MinAngle, station.MaxAngle)
			rprt = 0
		case "S", "stop":
			// Commands are absolute; there is no motion to interrupt.
			extended = true // always print RPRT
			rprt = 0
		case "P", "set_pos":
			extended = true // always print RPRT
			if len(args) != 2 {
				rprt = -22
				break
			}
			if _, err := strconv.ParseFloat(args[0], 64); err != nil {
				rprt = -22
				break
			}
			el, err := strconv.ParseFloat(args[1], 64)
			if err != nil || math.IsNaN(el) || math.IsInf(el, 0) {
				rprt = -22
				break
			}
			// Saturate in float space; converting an out-of-range float to int is implementation-defined.
			el = math.Max(station.MinAngle, math.Min(station.MaxAngle, math.Round(el)))
			err = s.panel.SendAngle(strconv.Itoa(int(el)))
			if errors.Is(err, station.ErrBusy) {
				rprt = -9
				break
			}
			rprt = 0
		case "p", "get_pos":
			el := 0
			if a := s.hub.Snapshot().Angle; a != nil {
				el = *a
			}
			if extended {
				fmt.Fprintf(conn, "Azimuth: %.6f\nElevation: %.6f\n", 0.0, float64(el))
			} else {
				fmt.Fprintf(conn, "%.6f\n%.6f\n", 0.0, float64(el))
			}
			rprt = 0
		}
		if extended || rprt != 0 {
			fmt.Fprintf(conn, "RPRT %d\n", rprt)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("reading rotctld connection")
	}
}
