package link

import (
	"io"
	"sync"
	"time"
)

// Config holds the transport parameters used for every open.
type Config struct {
	Baud         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns 9600 baud with one second read and write timeouts.
func DefaultConfig() Config {
	return Config{
		Baud:         9600,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// Opener acquires exclusive access to a named device.
type Opener interface {
	Open(device string, cfg Config) (io.ReadWriteCloser, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(device string, cfg Config) (io.ReadWriteCloser, error)

func (f OpenerFunc) Open(device string, cfg Config) (io.ReadWriteCloser, error) {
	return f(device, cfg)
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Link owns one open transport tied to a single device.
type Link struct {
	device       string
	writeTimeout time.Duration

	mu     sync.Mutex
	conn   io.ReadWriteCloser
	closed bool
}

// Open opens device through o. Failures are returned as *OpenError.
func Open(o Opener, device string, cfg Config) (*Link, error) {
	conn, err := o.Open(device, cfg)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, &OpenError{Device: device, Err: err}
	}
	if conn == nil {
		return nil, &OpenError{Device: device, Err: io.ErrUnexpectedEOF}
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Link{device: device, writeTimeout: cfg.WriteTimeout, conn: conn}, nil
}

// Device returns the device the link was opened on.
func (l *Link) Device() string {
	return l.device
}

// Write sends p, giving up after the configured write timeout.
func (l *Link) Write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return &WriteError{Device: l.device, Err: ErrClosed}
	}
	if err := l.write(p); err != nil {
		return &WriteError{Device: l.device, Err: err}
	}
	return nil
}

// Probe performs a zero-length write to check the transport is still alive.
func (l *Link) Probe() error {
	return l.Write(nil)
}

func (l *Link) write(p []byte) error {
	if p == nil {
		p = []byte{}
	}
	if d, ok := l.conn.(writeDeadliner); ok {
		if err := d.SetWriteDeadline(time.Now().Add(l.writeTimeout)); err == nil {
			_, err := l.conn.Write(p)
			if isTimeout(err) {
				return ErrWriteTimeout
			}
			return err
		}
	}

	// The transport has no write deadline; race the write against a timer.
	// A write that never returns leaves its goroutine parked until Close.
	done := make(chan error, 1)
	go func() {
		_, err := l.conn.Write(p)
		done <- err
	}()
	timer := time.NewTimer(l.writeTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrWriteTimeout
	}
}

// Close releases the transport. It is safe to call more than once.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conn := l.conn
	l.mu.Unlock()
	return conn.Close()
}

func isTimeout(err error) bool {
	t, ok := err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}
