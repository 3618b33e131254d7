package simulator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Status is the simulated actuator state.
type Status struct {
	// Target is the last accepted tilt command, in degrees.
	Target float64
	// Position is the current tilt, in degrees.
	Position float64
	// Commands counts accepted command lines.
	Commands int
	// Rejected counts malformed or out-of-range command lines.
	Rejected int
}

const (
	// Slew rate in degrees/second
	slewRate = 10
	// Discrete simulation step size
	stepSize = 25 * time.Millisecond
	// Longest command line accepted before the buffer is discarded
	maxLine = 64

	maxStep = slewRate * float64(stepSize) / float64(time.Second)
)

// Simulator is a panel tilt actuator on one end of an in-memory pipe.
type Simulator struct {
	conn io.ReadWriteCloser
	log  zerolog.Logger

	mu     sync.Mutex
	status Status
}

// New returns a simulator and the connection a driver should talk to.
func New(log zerolog.Logger) (*Simulator, net.Conn) {
	a, b := net.Pipe()
	return &Simulator{conn: a, log: log}, b
}

// Status returns a copy of the current state.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Run consumes commands and moves the panel until ctx is done or the
// driver closes its end.
func (s *Simulator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t := time.NewTicker(stepSize)
	defer t.Stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				// Unblocks the reader.
				s.conn.Close()
				return nil
			case <-t.C:
			}
			s.step()
		}
	})
	g.Go(func() error {
		defer cancel()
		return s.reader()
	})
	return g.Wait()
}

func (s *Simulator) reader() error {
	buf := make([]byte, maxLine)
	var line []byte
	for {
		n, err := s.conn.Read(buf)
		// Zero-length reads are the driver's liveness probes.
		for _, c := range buf[:n] {
			if c != '\n' {
				line = append(line, c)
				if len(line) > maxLine {
					s.reject(line, errors.New("line too long"))
					line = line[:0]
				}
				continue
			}
			s.handleLine(line)
			line = line[:0]
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
	}
}

func (s *Simulator) handleLine(line []byte) {
	input := string(bytes.TrimSpace(line))
	s.log.Debug().Str("input", input).Msg("drv->sim")
	n, err := strconv.Atoi(input)
	if err == nil && (n < 0 || n > 90) {
		err = errors.New("tilt out of range")
	}
	if err != nil {
		s.reject(line, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Target = float64(n)
	s.status.Commands++
}

func (s *Simulator) reject(line []byte, err error) {
	s.log.Warn().Err(err).Bytes("input", line).Msg("rejected command")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Rejected++
}

func (s *Simulator) step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	move := s.status.Target - s.status.Position
	delta := math.Min(math.Abs(move), maxStep)
	if move < 0 {
		delta = -delta
	}
	s.status.Position += delta
}
