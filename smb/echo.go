package smb

import (
	"bytes"

	"github.com/fenwick-labs/smb1/smb/encoder"
)

// echo sends one ECHO request whose payload is the single byte fill and
// whose EchoCount is count, then verifies the server sends count replies,
// each reproducing that payload (spec §4.5 ECHO).
func (c *Connection) echo(count uint16, fill byte) error {
	payload := bytes.Repeat([]byte{fill}, 1)

	hdr := c.newHeader(cmdEcho)
	headerBytes, err := encodeHeader(hdr)
	if err != nil {
		return newError(ErrorGeneralSystemError, "encoding ECHO: %v", err)
	}

	buf := encoder.NewBuffer(len(headerBytes) + 8 + len(payload))
	buf.PutBytes(headerBytes)
	buf.PutU8(1) // WordCount: EchoCount word
	buf.PutU16(count)
	buf.PutU16(uint16(len(payload)))
	buf.PutBytes(payload)

	if err := c.framer.WriteFrame(buf.Bytes()); err != nil {
		return newError(ErrorConnectionProblem, "sending ECHO: %v", err)
	}

	for i := uint16(0); i < count; i++ {
		frame, err := c.framer.ReadFrame()
		if err != nil {
			return newError(ErrorConnectionProblem, "receiving ECHO reply %d/%d: %v", i+1, count, err)
		}
		respHdr, err := decodeHeader(frame)
		if err != nil {
			return err
		}
		if respHdr.MID != hdr.MID {
			c.status = StatusDisconnected
			return newError(ErrorConnectionProblem, "ECHO reply MID mismatch: sent %d, got %d", hdr.MID, respHdr.MID)
		}
		if err := c.checkStatus(respHdr, "ECHO"); err != nil {
			return err
		}

		body := frame[HeaderLen:]
		r := encoder.NewBufferFrom(body)
		if _, err := r.GetU8(); err != nil { // WordCount
			return newError(ErrorConnectionProblem, "ECHO reply truncated: %v", err)
		}
		if _, err := r.GetU16(); err != nil { // SequenceNumber
			return newError(ErrorConnectionProblem, "ECHO reply truncated: %v", err)
		}
		byteCount, err := r.GetU16()
		if err != nil {
			return newError(ErrorConnectionProblem, "ECHO reply truncated: %v", err)
		}
		echoed, err := r.GetBytes(int(byteCount))
		if err != nil {
			return newError(ErrorConnectionProblem, "ECHO reply truncated: %v", err)
		}
		if !bytes.Equal(echoed, payload) {
			return newError(ErrorProtocolError, "ECHO reply %d/%d payload mismatch", i+1, count)
		}
	}
	return nil
}
