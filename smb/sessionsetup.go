package smb

import (
	"github.com/fenwick-labs/smb1/smb/auth"
	"github.com/fenwick-labs/smb1/smb/encoder"
)

// Capability bits this client advertises in SESSION_SETUP_ANDX (spec §4.5).
const (
	capUnicode      uint32 = 0x00000004
	capNTSMBs       uint32 = 0x00000010
	capNTStatus     uint32 = 0x00000040
	capLargeFiles   uint32 = 0x00000008
	clientCaps      = capNTSMBs | capNTStatus
	sessionFlagGuest uint16 = 0x0001
)

const nativeOS = "Unix"
const nativeLanMan = "smb1client"

type sessionSetupRequest struct {
	header Header
	andx   andxHeader

	MaxBufferSize uint32
	MaxMpxCount   uint16
	VcNumber      uint16
	SessionKey    uint32
	LMRespLen     uint16
	NTRespLen     uint16
	Reserved      uint32
	Capabilities  uint32

	lmResp   [24]byte
	ntResp   [24]byte
	username string
	domain   string
}

func (r sessionSetupRequest) marshal() ([]byte, error) {
	hdr, err := encodeHeader(r.header)
	if err != nil {
		return nil, err
	}

	params := encoder.NewBuffer(32)
	params.PutU8(r.andx.AndXCommand)
	params.PutU8(0) // andx reserved
	params.PutU16(r.andx.AndXOffset)
	params.PutU16(0xFFFF) // MaxBufferSize (advertise a large negotiated value)
	params.PutU16(2)      // MaxMpxCount
	params.PutU16(0)      // VcNumber
	params.PutU32(0)      // SessionKey
	params.PutU16(24)     // LM response length
	params.PutU16(24)     // NTLM response length
	params.PutU32(0)      // Reserved
	params.PutU32(clientCaps)

	data := encoder.NewBuffer(64)
	data.PutBytes(r.lmResp[:])
	data.PutBytes(r.ntResp[:])
	data.PutAsciiZ(r.username)
	data.PutAsciiZ(r.domain)
	data.PutAsciiZ(nativeOS)
	data.PutAsciiZ(nativeLanMan)

	buf := encoder.NewBuffer(len(hdr) + params.Len() + data.Len() + 4)
	buf.PutBytes(hdr)
	buf.PutU8(uint8(params.Len() / 2))
	buf.PutBytes(params.Bytes())
	buf.PutU16(uint16(data.Len()))
	buf.PutBytes(data.Bytes())
	return buf.Bytes(), nil
}

type sessionSetupResponse struct {
	action uint16
}

func parseSessionSetupResponse(body []byte) (sessionSetupResponse, error) {
	var res sessionSetupResponse
	buf := encoder.NewBufferFrom(body)

	wordCount, err := buf.GetU8()
	if err != nil {
		return res, newError(ErrorProtocolError, "session setup response: %v", err)
	}
	if wordCount < 3 {
		return res, newError(ErrorProtocolError, "session setup response: word count %d too small", wordCount)
	}

	if _, err := buf.GetU8(); err != nil { // AndXCommand
		return res, newError(ErrorProtocolError, "session setup response truncated: %v", err)
	}
	if _, err := buf.GetU8(); err != nil { // AndXReserved
		return res, newError(ErrorProtocolError, "session setup response truncated: %v", err)
	}
	if _, err := buf.GetU16(); err != nil { // AndXOffset
		return res, newError(ErrorProtocolError, "session setup response truncated: %v", err)
	}
	action, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "session setup response truncated: %v", err)
	}
	res.action = action
	return res, nil
}

func (c *Connection) sessionSetup() error {
	c.log().Debugln("SESSION_SETUP_ANDX")

	lmResp, err := auth.LMResponse(c.password, c.challenge)
	if err != nil {
		return newError(ErrorGeneralSystemError, "computing LM response: %v", err)
	}
	ntResp, err := auth.NTLMResponse(c.password, c.challenge)
	if err != nil {
		return newError(ErrorGeneralSystemError, "computing NTLM response: %v", err)
	}

	req := sessionSetupRequest{
		header:   c.newHeader(cmdSessionSetupX),
		andx:     noAndx(),
		lmResp:   lmResp,
		ntResp:   ntResp,
		username: c.username,
		domain:   c.domain,
	}

	body, err := req.marshal()
	if err != nil {
		return newError(ErrorGeneralSystemError, "encoding SESSION_SETUP_ANDX: %v", err)
	}

	hdr, respBody, err := c.roundTrip(req.header, body)
	if err != nil {
		return err
	}
	if err := c.checkStatus(hdr, "SESSION_SETUP_ANDX"); err != nil {
		return err
	}

	res, err := parseSessionSetupResponse(respBody)
	if err != nil {
		return err
	}

	c.uid = hdr.UID
	c.sessionFlags = res.action
	c.status = StatusLoggedIn
	return nil
}
