// Package netbios implements the minimal NetBIOS session service framing
// SMB1-over-445 still uses even though the actual NetBIOS session layer is
// skipped: every SMB message is preceded by a 4-byte header carrying a
// message type and a 16-bit big-endian payload length.
package netbios

import (
	"fmt"
	"io"
)

const (
	sessionMessage uint8 = 0x00

	headerLen = 4
	// MaxPayload is the largest payload length the 16-bit length field in
	// the NetBIOS session header can carry for a session message; SMB1 over
	// TCP/445 never needs more than this.
	MaxPayload = 0xFFFF
)

// Framer reads and writes NetBIOS session-service frames over an
// io.ReadWriter (normally a net.Conn, but any reliable byte stream works,
// which is what keeps the transport a swappable collaborator).
type Framer struct {
	rw io.ReadWriter
}

// New wraps rw in a Framer.
func New(rw io.ReadWriter) *Framer {
	return &Framer{rw: rw}
}

// WriteFrame prepends the 4-byte NetBIOS session header to payload and
// writes both in one call.
func (f *Framer) WriteFrame(payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("netbios: payload too large: %d bytes", len(payload))
	}
	header := [headerLen]byte{
		sessionMessage,
		0,
		byte(len(payload) >> 8),
		byte(len(payload)),
	}
	frame := make([]byte, 0, headerLen+len(payload))
	frame = append(frame, header[:]...)
	frame = append(frame, payload...)

	if err := writeFull(f.rw, frame); err != nil {
		return fmt.Errorf("netbios: write failed: %w", err)
	}
	return nil
}

// ReadFrame reads one NetBIOS session header and returns the payload it
// describes, looping over short reads on both the header and the body.
func (f *Framer) ReadFrame() ([]byte, error) {
	var header [headerLen]byte
	if err := readFull(f.rw, header[:]); err != nil {
		return nil, fmt.Errorf("netbios: reading frame header: %w", err)
	}

	if header[0] != sessionMessage {
		return nil, fmt.Errorf("netbios: unexpected message type 0x%02x", header[0])
	}

	length := int(header[2])<<8 | int(header[3])
	payload := make([]byte, length)
	if err := readFull(f.rw, payload); err != nil {
		return nil, fmt.Errorf("netbios: reading %d byte payload: %w", length, err)
	}
	return payload, nil
}

func readFull(r io.Reader, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			if err == io.EOF && total == len(buf) {
				break
			}
			return err
		}
	}
	return nil
}

func writeFull(w io.Writer, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			return err
		}
	}
	return nil
}
