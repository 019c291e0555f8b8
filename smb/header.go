// Package smb implements a minimal SMB1/CIFS client: the session state
// machine, wire codecs for a small set of commands, and LM/NTLMv1
// authentication, built to talk to a single share over TCP/445 without a
// NetBIOS session layer.
package smb

import (
	"github.com/fenwick-labs/smb1/smb/encoder"
)

// ProtocolSmb is the 4-byte SMB magic every message starts with.
const ProtocolSmb = "\xFFSMB"

// SMB1 command codes (spec §1, §4.5).
const (
	cmdCreateDirectory byte = 0x00
	cmdClose           byte = 0x04
	cmdFindClose2      byte = 0x34
	cmdTreeDisconnect  byte = 0x71
	cmdNegotiate       byte = 0x72
	cmdSessionSetupX   byte = 0x73
	cmdLogoffX         byte = 0x74
	cmdTreeConnectX    byte = 0x75
	cmdTrans2          byte = 0x32
	cmdNTCreateX       byte = 0xA2
	cmdReadX           byte = 0x2E
	cmdWriteX          byte = 0x2F
	cmdEcho            byte = 0x2B
)

// TRANS2 subcommands (only FIND_FIRST2 is implemented).
const trans2FindFirst2 uint16 = 0x0001

// Flags (1 byte).
const (
	flagsCaseSensitive    uint8 = 0x08
	flagsCanonicalization uint8 = 0x10
	flagsClientResponse   uint8 = flagsCaseSensitive | flagsCanonicalization
)

// Flags2 (2 bytes). EXTENDED_SECURITY (0x0800) is always cleared: this
// client only speaks LM/NTLMv1 challenge-response, never SPNEGO/NTLMSSP.
const (
	flags2LongNames uint16 = 0x0001
	flags2NTStatus  uint16 = 0x4000
)

const defaultFlags2 = flags2LongNames | flags2NTStatus

// NT status codes this client distinguishes (everything else is just
// "nonzero ⇒ ProtocolError").
const (
	statusSuccess               uint32 = 0x00000000
	statusAccessDenied          uint32 = 0xC0000022
	statusLogonFailure          uint32 = 0xC000006D
	statusObjectNameNotFound    uint32 = 0xC0000034
	statusNoSuchFile            uint32 = 0xC000000F
	statusNoMoreFiles           uint32 = 0x80000006
)

// Header is the fixed 32-byte SMB1 header (spec §4.3), shared verbatim by
// every command's request and response.
type Header struct {
	Protocol         []byte `smb:"fixed:4"`
	Command          uint8
	Status           uint32
	Flags            uint8
	Flags2           uint16
	PIDHigh          uint16
	SecurityFeatures []byte `smb:"fixed:8"`
	Reserved         uint16
	TID              uint16
	PIDLow           uint16
	UID              uint16
	MID              uint16
}

const HeaderLen = 32

func newHeader(command byte, pid, mid, uid, tid uint16) Header {
	return Header{
		Protocol:         []byte(ProtocolSmb),
		Command:          command,
		Status:           statusSuccess,
		Flags:            flagsClientResponse,
		Flags2:           defaultFlags2,
		SecurityFeatures: make([]byte, 8),
		TID:              tid,
		PIDLow:           pid,
		UID:              uid,
		MID:              mid,
	}
}

func encodeHeader(h Header) ([]byte, error) {
	return encoder.Marshal(h)
}

func decodeHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderLen {
		return h, newError(ErrorConnectionProblem, "short SMB header: %d bytes", len(buf))
	}
	if err := encoder.Unmarshal(buf[:HeaderLen], &h); err != nil {
		return h, newError(ErrorConnectionProblem, "decoding SMB header: %v", err)
	}
	if len(h.Protocol) != 4 || string(h.Protocol) != ProtocolSmb {
		return h, newError(ErrorConnectionProblem, "bad SMB protocol magic: %x", h.Protocol)
	}
	return h, nil
}

// andxHeader is the first two words ("AndXCommand", "AndXOffset") shared by
// every AndX-capable parameter block (spec §4.3). AndXCommand 0xFF means
// "no further command chained".
type andxHeader struct {
	AndXCommand uint8
	AndXReserved uint8
	AndXOffset  uint16
}

const andxNone uint8 = 0xFF

func noAndx() andxHeader {
	return andxHeader{AndXCommand: andxNone}
}
