package smb

import (
	"bytes"
	"testing"

	"github.com/fenwick-labs/smb1/smb/encoder"
)

func TestReadRequestMarshalWordCount(t *testing.T) {
	req := readRequest{
		header:   newHeader(cmdReadX, defaultPID, 0, 0, 0),
		andx:     noAndx(),
		fid:      5,
		offset:   1024,
		maxCount: 4096,
	}
	body, err := req.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	wordCount := body[HeaderLen]
	if wordCount != 12 {
		t.Fatalf("READ_ANDX WordCount = %d, want 12", wordCount)
	}
	// WordCount*2 parameter bytes, plus the WordCount byte itself and the
	// trailing ByteCount word, should account for everything after the header.
	wantLen := HeaderLen + 1 + int(wordCount)*2 + 2
	if len(body) != wantLen {
		t.Fatalf("READ_ANDX request length = %d, want %d", len(body), wantLen)
	}
}

func buildReadResponseFrame(t *testing.T, data []byte) []byte {
	return buildReadResponseFrameMID(t, 0, data)
}

func buildReadResponseFrameMID(t *testing.T, mid uint16, data []byte) []byte {
	t.Helper()
	hdr, err := encodeHeader(newHeader(cmdReadX, defaultPID, mid, 0, 0))
	if err != nil {
		t.Fatalf("encodeHeader: %v", err)
	}

	params := encoder.NewBuffer(32)
	params.PutU8(andxNone)
	params.PutU8(0)
	params.PutU16(0) // AndXOffset
	params.PutU16(0) // Remaining
	params.PutU32(0) // DataCompactionMode + Reserved
	params.PutU16(uint16(len(data)))
	dataOffset := HeaderLen + 1 + 12*2
	params.PutU16(uint16(dataOffset))
	params.PutU32(0) // DataLengthHigh
	params.PutU32(0) // Reserved2 (first 4 of 6 padding bytes)
	params.PutU16(0) // Reserved2 (remaining 2 bytes), pads params to the full 12 words

	frame := encoder.NewBuffer(dataOffset + len(data))
	frame.PutBytes(hdr)
	frame.PutU8(12) // WordCount
	frame.PutBytes(params.Bytes())
	frame.PutBytes(data)
	return frame.Bytes()
}

func TestParseReadResponse(t *testing.T) {
	want := []byte("the quick brown fox")
	frame := buildReadResponseFrame(t, want)

	res, err := parseReadResponse(frame)
	if err != nil {
		t.Fatalf("parseReadResponse: %v", err)
	}
	if res.DataLength != uint32(len(want)) {
		t.Errorf("DataLength = %d, want %d", res.DataLength, len(want))
	}
	if !bytes.Equal(res.Data, want) {
		t.Errorf("Data = %q, want %q", res.Data, want)
	}
}

func TestParseReadResponseRejectsOverrun(t *testing.T) {
	frame := buildReadResponseFrame(t, []byte("abc"))
	// Corrupt DataLength to claim far more data than the frame actually holds.
	frame[HeaderLen+1+10] = 0xFF
	frame[HeaderLen+1+11] = 0xFF
	if _, err := parseReadResponse(frame); err == nil {
		t.Fatal("expected an error when DataLength extends past the frame")
	}
}

// TestWriteRequestDataOffsetIsAccurate pins the DataOffset arithmetic bug
// found during development: DataOffset must point exactly at the start of
// the data block that follows ByteCount, not 6 bytes short of it.
func TestWriteRequestDataOffsetIsAccurate(t *testing.T) {
	data := []byte("payload bytes")
	req := writeRequest{
		header: newHeader(cmdWriteX, defaultPID, 0, 0, 0),
		andx:   noAndx(),
		fid:    3,
		offset: 0,
		data:   data,
	}
	body, err := req.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	wordCount := int(body[HeaderLen])
	if wordCount != 14 {
		t.Fatalf("WRITE_ANDX WordCount = %d, want 14", wordCount)
	}

	params := body[HeaderLen+1 : HeaderLen+1+wordCount*2]
	dataOffset := int(params[len(params)-6]) | int(params[len(params)-5])<<8

	if dataOffset != HeaderLen+1+wordCount*2+2 {
		t.Fatalf("DataOffset = %d, want %d", dataOffset, HeaderLen+1+wordCount*2+2)
	}
	if !bytes.Equal(body[dataOffset:dataOffset+len(data)], data) {
		t.Fatalf("bytes at DataOffset = %q, want %q", body[dataOffset:dataOffset+len(data)], data)
	}
}

func TestParseWriteResponse(t *testing.T) {
	buf := encoder.NewBuffer(16)
	buf.PutU8(6) // WordCount
	buf.PutU8(andxNone)
	buf.PutU8(0)
	buf.PutU16(0)
	buf.PutU16(4096) // Count
	buf.PutU16(0)    // Remaining
	buf.PutU16(0)    // CountHigh

	res, err := parseWriteResponse(buf.Bytes())
	if err != nil {
		t.Fatalf("parseWriteResponse: %v", err)
	}
	if res.Count != 4096 {
		t.Errorf("Count = %d, want 4096", res.Count)
	}
}
