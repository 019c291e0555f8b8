// Package transport defines the byte-oriented stream collaborator the SMB
// engine is built against, plus the one concrete implementation (plain
// TCP/445) this module ships. Spec treats the transport as an externally
// supplied dependency; this package keeps that boundary as a Go interface so
// tests can substitute an in-memory fake.
package transport

import (
	"fmt"
	"io"
	"net"
	"time"
)

// Transport is a reliable, ordered byte stream: connect once, then send and
// receive frames until Close. Implementations are not required to be safe
// for concurrent use — the SMB Connection above them never calls in from
// more than one goroutine at a time.
type Transport interface {
	io.ReadWriteCloser
}

// TCP is the default Transport: a plain net.Conn to host:port, dialed with
// an optional timeout.
type TCP struct {
	conn net.Conn
}

// DialTCP resolves host to an IPv4 address and connects to host:port. An
// empty host resolves through the system resolver same as any other
// net.Dial call; timeout <= 0 means no dial timeout.
func DialTCP(host string, port int, timeout time.Duration) (*TCP, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return &TCP{conn: conn}, nil
}

func (t *TCP) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *TCP) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *TCP) Close() error                { return t.conn.Close() }

// SetDeadline forwards to the underlying net.Conn, letting a caller bound an
// otherwise unbounded ECHO/read/write call. The SMB protocol has no
// built-in timeout (spec §5), so this is purely a transport-level escape
// hatch.
func (t *TCP) SetDeadline(d time.Time) error {
	return t.conn.SetDeadline(d)
}
