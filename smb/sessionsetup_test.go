package smb

import (
	"bytes"
	"testing"

	"github.com/fenwick-labs/smb1/smb/encoder"
)

func TestSessionSetupRequestMarshal(t *testing.T) {
	req := sessionSetupRequest{
		header:   newHeader(cmdSessionSetupX, defaultPID, 0, 0, 0),
		andx:     noAndx(),
		lmResp:   [24]byte{1, 2, 3},
		ntResp:   [24]byte{4, 5, 6},
		username: "alice",
		domain:   "WORKGROUP",
	}
	body, err := req.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(body, []byte("alice")) {
		t.Fatal("request does not contain the username")
	}
	if !bytes.Contains(body, []byte("WORKGROUP")) {
		t.Fatal("request does not contain the domain")
	}
	if !bytes.Contains(body, req.lmResp[:]) || !bytes.Contains(body, req.ntResp[:]) {
		t.Fatal("request does not contain both response blobs")
	}
}

func TestParseSessionSetupResponse(t *testing.T) {
	buf := encoder.NewBuffer(16)
	buf.PutU8(3)
	buf.PutU8(andxNone)
	buf.PutU8(0)
	buf.PutU16(0)
	buf.PutU16(sessionFlagGuest)
	buf.PutU16(0)

	res, err := parseSessionSetupResponse(buf.Bytes())
	if err != nil {
		t.Fatalf("parseSessionSetupResponse: %v", err)
	}
	if res.action != sessionFlagGuest {
		t.Errorf("action = %#x, want %#x", res.action, sessionFlagGuest)
	}
}

func TestParseSessionSetupResponseTooShort(t *testing.T) {
	buf := encoder.NewBuffer(4)
	buf.PutU8(1)
	if _, err := parseSessionSetupResponse(buf.Bytes()); err == nil {
		t.Fatal("expected an error for a too-small word count")
	}
}
