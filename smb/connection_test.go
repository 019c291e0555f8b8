package smb

import (
	"bytes"
	"testing"

	"github.com/fenwick-labs/smb1/smb/encoder"
)

// fakeTransport replays a fixed stream of server bytes and discards
// whatever the client writes, so the Connection state machine can be
// driven end to end without a real socket.
type fakeTransport struct {
	in *bytes.Buffer
}

func (f *fakeTransport) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fakeTransport) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeTransport) Close() error                { return nil }

func writeNetbiosFrame(w *bytes.Buffer, payload []byte) {
	var h [4]byte
	h[2] = byte(len(payload) >> 8)
	h[3] = byte(len(payload))
	w.Write(h[:])
	w.Write(payload)
}

func mustHeaderBytes(t *testing.T, command byte, mid, uid, tid uint16) []byte {
	t.Helper()
	b, err := encodeHeader(newHeader(command, defaultPID, mid, uid, tid))
	if err != nil {
		t.Fatalf("encodeHeader: %v", err)
	}
	return b
}

// TestConnectionLifecycle drives NewConnection -> Connect -> TestConnection
// -> Close against a scripted server, checking the status before Connect
// (Disconnected), after Connect (ConnectedToShare) and after Close
// (Disconnected).
func TestConnectionLifecycle(t *testing.T) {
	var wire bytes.Buffer

	// NEGOTIATE response, MID 0.
	{
		buf := encoder.NewBuffer(64)
		buf.PutBytes(mustHeaderBytes(t, cmdNegotiate, 0, 0, 0))
		buf.PutU8(17) // WordCount
		buf.PutU16(0) // DialectIndex
		buf.PutU8(0)  // SecurityMode
		buf.PutU16(50)
		buf.PutU16(1)
		buf.PutU32(16644) // MaxBufSize
		buf.PutU32(0)     // MaxRawSize
		buf.PutU32(0)     // SessionKey
		buf.PutU32(0)     // Capabilities
		buf.PutU64(0)     // SystemTime
		buf.PutU16(0)     // TimeZone
		buf.PutU8(8)      // KeyLength
		buf.PutU16(8)     // ByteCount
		buf.PutBytes(make([]byte, 8))
		writeNetbiosFrame(&wire, buf.Bytes())
	}

	// SESSION_SETUP_ANDX response, MID 1, UID 42.
	{
		buf := encoder.NewBuffer(16)
		buf.PutBytes(mustHeaderBytes(t, cmdSessionSetupX, 1, 42, 0))
		buf.PutU8(3)
		buf.PutU8(andxNone)
		buf.PutU8(0)
		buf.PutU16(0)
		buf.PutU16(0) // Action: non-guest
		buf.PutU16(0) // ByteCount
		writeNetbiosFrame(&wire, buf.Bytes())
	}

	// TREE_CONNECT_ANDX response, MID 2, TID 7.
	{
		buf := encoder.NewBuffer(8)
		buf.PutBytes(mustHeaderBytes(t, cmdTreeConnectX, 2, 42, 7))
		buf.PutU8(0)
		buf.PutU16(0)
		writeNetbiosFrame(&wire, buf.Bytes())
	}

	// ECHO responses, both MID 3, for TestConnection's count-2 echo.
	for i := 0; i < 2; i++ {
		buf := encoder.NewBuffer(16)
		buf.PutBytes(mustHeaderBytes(t, cmdEcho, 3, 42, 7))
		buf.PutU8(1)
		buf.PutU16(uint16(i))
		buf.PutU16(1)
		buf.PutU8('F')
		writeNetbiosFrame(&wire, buf.Bytes())
	}

	// TREE_DISCONNECT response, MID 4.
	{
		buf := encoder.NewBuffer(8)
		buf.PutBytes(mustHeaderBytes(t, cmdTreeDisconnect, 4, 42, 7))
		buf.PutU8(0)
		buf.PutU16(0)
		writeNetbiosFrame(&wire, buf.Bytes())
	}

	// LOGOFF_ANDX response, MID 5.
	{
		buf := encoder.NewBuffer(16)
		buf.PutBytes(mustHeaderBytes(t, cmdLogoffX, 5, 42, 7))
		buf.PutU8(2)
		buf.PutU8(andxNone)
		buf.PutU8(0)
		buf.PutU16(0)
		buf.PutU16(0)
		writeNetbiosFrame(&wire, buf.Bytes())
	}

	ft := &fakeTransport{in: bytes.NewBuffer(wire.Bytes())}

	conn, err := NewConnection(Options{
		Share:     `\\testhost\share`,
		Username:  "alice",
		Password:  "secret",
		Transport: ft,
	})
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	if conn.Status() != StatusDisconnected {
		t.Fatalf("initial status = %v, want Disconnected", conn.Status())
	}

	if err := conn.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if conn.Status() != StatusConnectedToShare {
		t.Fatalf("status after Connect = %v, want ConnectedToShare", conn.Status())
	}
	if !conn.IsAuthenticated() {
		t.Fatal("IsAuthenticated() = false after a non-guest SESSION_SETUP_ANDX")
	}

	if err := conn.TestConnection(); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}

	conn.Close()
	if conn.Status() != StatusDisconnected {
		t.Fatalf("status after Close = %v, want Disconnected", conn.Status())
	}
}

func TestParseUNC(t *testing.T) {
	cases := []struct {
		share       string
		wantHost    string
		wantPath    string
		wantErr     bool
	}{
		{share: `\\host\share`, wantHost: "host", wantPath: "share"},
		{share: `\\host\share\`, wantHost: "host", wantPath: "share"},
		{share: `\\host\share\sub\dir`, wantHost: "host", wantPath: `share\sub\dir`},
		{share: `\\host`, wantErr: true},
		{share: `host\share`, wantErr: true},
		{share: ``, wantErr: true},
		{share: `\\\share`, wantErr: true},
	}

	for _, tc := range cases {
		host, treePath, err := parseUNC(tc.share)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseUNC(%q): want error, got host=%q path=%q", tc.share, host, treePath)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseUNC(%q): unexpected error: %v", tc.share, err)
			continue
		}
		if host != tc.wantHost || treePath != tc.wantPath {
			t.Errorf("parseUNC(%q) = (%q, %q), want (%q, %q)", tc.share, host, treePath, tc.wantHost, tc.wantPath)
		}
	}
}

func TestFirstSegment(t *testing.T) {
	if got := firstSegment(`share`); got != "share" {
		t.Errorf("firstSegment(share) = %q, want %q", got, "share")
	}
	if got := firstSegment(`share\sub`); got != "share" {
		t.Errorf(`firstSegment(share\sub) = %q, want %q`, got, "share")
	}
}
