package smb

import (
	"bytes"
	"testing"

	"github.com/fenwick-labs/smb1/smb/encoder"
	"github.com/fenwick-labs/smb1/smb/netbios"
	"github.com/jfjallid/golog"
)

func newTestConnection(ct *capturingTransport) *Connection {
	return &Connection{
		transport:     ct,
		framer:        netbios.New(ct),
		status:        StatusConnectedToShare,
		maxBufferSize: 16644,
		logger:        golog.Get("smb-test"),
	}
}

// TestReadFileOpensReadsCloses verifies ReadFile's three-step sequence
// (NT_CREATE_ANDX, READ_ANDX, CLOSE) against scripted responses, in order.
func TestReadFileOpensReadsCloses(t *testing.T) {
	var reply bytes.Buffer

	// NT_CREATE_ANDX response (MID 0): FID 42, regular file, size 5.
	createBody := buildNTCreateResponseBody(42, false, 5)
	createHdr, err := encodeHeader(newHeader(cmdNTCreateX, defaultPID, 0, 0, 0))
	if err != nil {
		t.Fatalf("encodeHeader: %v", err)
	}
	writeNetbiosFrame(&reply, append(createHdr, createBody...))

	// READ_ANDX response (MID 1) carrying 5 bytes of data.
	want := []byte("hello")
	writeNetbiosFrame(&reply, buildReadResponseFrameMID(t, 1, want))

	// CLOSE response (MID 2).
	closeHdr, err := encodeHeader(newHeader(cmdClose, defaultPID, 2, 0, 0))
	if err != nil {
		t.Fatalf("encodeHeader: %v", err)
	}
	writeNetbiosFrame(&reply, append(closeHdr, 0, 0, 0))

	ct := &capturingTransport{reply: &reply}
	c := newTestConnection(ct)

	fi := CreateFileInfo(CreateRootFileInfo(), "greeting.txt", false)
	data, err := c.ReadFile(&fi, 0, 5)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("ReadFile data = %q, want %q", data, want)
	}
}

// TestWriteFileOpensWritesCloses verifies WriteFile's sequence
// (NT_CREATE_ANDX, WRITE_ANDX, CLOSE).
func TestWriteFileOpensWritesCloses(t *testing.T) {
	var reply bytes.Buffer

	createBody := buildNTCreateResponseBody(7, false, 0)
	createHdr, err := encodeHeader(newHeader(cmdNTCreateX, defaultPID, 0, 0, 0))
	if err != nil {
		t.Fatalf("encodeHeader: %v", err)
	}
	writeNetbiosFrame(&reply, append(createHdr, createBody...))

	writeRespHdr, err := encodeHeader(newHeader(cmdWriteX, defaultPID, 1, 0, 0))
	if err != nil {
		t.Fatalf("encodeHeader: %v", err)
	}
	wbuf := encoder.NewBuffer(16)
	wbuf.PutU8(6)
	wbuf.PutU8(andxNone)
	wbuf.PutU8(0)
	wbuf.PutU16(0)
	wbuf.PutU16(11) // Count: len("hello world")
	wbuf.PutU16(0)
	wbuf.PutU16(0)
	writeNetbiosFrame(&reply, append(writeRespHdr, wbuf.Bytes()...))

	closeHdr, err := encodeHeader(newHeader(cmdClose, defaultPID, 2, 0, 0))
	if err != nil {
		t.Fatalf("encodeHeader: %v", err)
	}
	writeNetbiosFrame(&reply, append(closeHdr, 0, 0, 0))

	ct := &capturingTransport{reply: &reply}
	c := newTestConnection(ct)

	fi := CreateFileInfo(CreateRootFileInfo(), "out.txt", false)
	n, err := c.WriteFile(&fi, 0, []byte("hello world"))
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if n != 11 {
		t.Fatalf("WriteFile n = %d, want 11", n)
	}
}

// TestListDirectoryRejectsNonFolder confirms ListDirectory refuses a
// FileInfo that was not constructed as a directory, without touching the
// network.
func TestListDirectoryRejectsNonFolder(t *testing.T) {
	c := newTestConnection(&capturingTransport{reply: &bytes.Buffer{}})
	file := CreateFileInfo(CreateRootFileInfo(), "not-a-dir.txt", false)
	if _, err := c.ListDirectory(file); err == nil {
		t.Fatal("ListDirectory on a non-folder FileInfo should fail")
	}
}

func TestListDirectoryBuildsChildFileInfo(t *testing.T) {
	var reply bytes.Buffer
	entry := buildFindEntry("report.pdf", false, 42, 0)
	writeNetbiosFrame(&reply, buildFindFirst2Frame(t, true, [][]byte{entry}))

	ct := &capturingTransport{reply: &reply}
	c := newTestConnection(ct)

	root := CreateRootFileInfo()
	entries, err := c.ListDirectory(root)
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Filename != "report.pdf" || entries[0].FileSize != 42 {
		t.Errorf("entry = %+v, want report.pdf/size 42", entries[0])
	}
	if fullPath(entries[0]) != `\report.pdf` {
		t.Errorf("fullPath = %q, want %q", fullPath(entries[0]), `\report.pdf`)
	}
}
