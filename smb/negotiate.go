package smb

import (
	"github.com/fenwick-labs/smb1/smb/encoder"
)

// negotiateDialect is the single dialect string this client offers — a
// constrained client has no need to offer the full SMB1 dialect ladder the
// way a full redirector would.
const negotiateDialect = "NT LM 0.12"

// requiredDialectIndex is the only DialectIndex this client accepts: the
// index of the single dialect string it sent.
const requiredDialectIndex = 0

type negotiateRequest struct {
	header Header
}

func (r negotiateRequest) marshal() ([]byte, error) {
	hdr, err := encodeHeader(r.header)
	if err != nil {
		return nil, err
	}

	buf := encoder.NewBuffer(len(hdr) + 16)
	buf.PutBytes(hdr)
	buf.PutU8(0) // WordCount: NEGOTIATE carries no parameter words.

	dialectBlock := encoder.NewBuffer(len(negotiateDialect) + 2)
	dialectBlock.PutU8(0x02) // BufferFormat: dialect string marker.
	dialectBlock.PutAsciiZ(negotiateDialect)

	buf.PutU16(uint16(dialectBlock.Len()))
	buf.PutBytes(dialectBlock.Bytes())
	return buf.Bytes(), nil
}

type negotiateResponse struct {
	header       Header
	DialectIndex uint16
	SecurityMode uint8
	MaxMpxCount  uint16
	MaxVcCount   uint16
	MaxBufSize   uint32
	MaxRawSize   uint32
	SessionKey   uint32
	Capabilities uint32
	SystemTime   uint64
	TimeZone     int16
	Challenge    [auth8]byte
}

const auth8 = 8

func parseNegotiateResponse(hdr Header, body []byte) (negotiateResponse, error) {
	var res negotiateResponse
	res.header = hdr

	buf := encoder.NewBufferFrom(body)
	wordCount, err := buf.GetU8()
	if err != nil {
		return res, newError(ErrorProtocolError, "negotiate response: %v", err)
	}
	if wordCount == 0 {
		return res, newError(ErrorProtocolError, "negotiate: no dialect accepted by server")
	}

	res.DialectIndex, _ = buf.GetU16()
	if res.DialectIndex != requiredDialectIndex {
		return res, newError(ErrorProtocolError, "negotiate: unexpected dialect index %d", res.DialectIndex)
	}

	secMode, err := buf.GetU8()
	if err != nil {
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}
	res.SecurityMode = secMode

	if res.MaxMpxCount, err = buf.GetU16(); err != nil {
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}
	if res.MaxVcCount, err = buf.GetU16(); err != nil {
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}
	if res.MaxBufSize, err = buf.GetU32(); err != nil {
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}
	if res.MaxRawSize, err = buf.GetU32(); err != nil {
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}
	if res.SessionKey, err = buf.GetU32(); err != nil {
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}
	if res.Capabilities, err = buf.GetU32(); err != nil {
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}
	if res.SystemTime, err = buf.GetU64(); err != nil {
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}
	tz, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}
	res.TimeZone = int16(tz)

	keyLength, err := buf.GetU8()
	if err != nil {
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}
	if keyLength != auth8 {
		return res, newError(ErrorProtocolError, "negotiate: challenge length %d != 8", keyLength)
	}

	if _, err := buf.GetU16(); err != nil { // ByteCount, unused: challenge length is authoritative.
		return res, newError(ErrorProtocolError, "negotiate response truncated: %v", err)
	}

	challenge, err := buf.GetBytes(auth8)
	if err != nil {
		return res, newError(ErrorProtocolError, "negotiate: reading challenge: %v", err)
	}
	copy(res.Challenge[:], challenge)

	return res, nil
}

func (c *Connection) negotiate() error {
	c.log().Debugln("NEGOTIATE")
	req := negotiateRequest{header: c.newHeader(cmdNegotiate)}
	body, err := req.marshal()
	if err != nil {
		return newError(ErrorGeneralSystemError, "encoding NEGOTIATE: %v", err)
	}

	hdr, respBody, err := c.roundTrip(req.header, body)
	if err != nil {
		return err
	}
	if err := c.checkStatus(hdr, "NEGOTIATE"); err != nil {
		return err
	}

	res, err := parseNegotiateResponse(hdr, respBody)
	if err != nil {
		return err
	}

	c.maxBufferSize = res.MaxBufSize
	c.maxMpxCount = res.MaxMpxCount
	c.securityMode = res.SecurityMode
	c.serverTimeZone = res.TimeZone
	c.challenge = res.Challenge

	c.status = StatusProtocolNegotiated
	return nil
}
