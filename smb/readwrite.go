package smb

import (
	"github.com/fenwick-labs/smb1/smb/encoder"
)

// readOverhead is the SMB header + READ_ANDX response parameter-block size
// subtracted from the server's negotiated max buffer size to get the
// largest payload it can actually carry in one response (spec §4.5
// READ_ANDX: "max count clamped to server max buffer size minus header
// overhead").
const readOverhead = 59

type readRequest struct {
	header Header
	andx   andxHeader

	fid      uint16
	offset   uint64
	maxCount uint32
}

func (r readRequest) marshal() ([]byte, error) {
	hdr, err := encodeHeader(r.header)
	if err != nil {
		return nil, err
	}

	params := encoder.NewBuffer(24)
	params.PutU8(r.andx.AndXCommand)
	params.PutU8(0)
	params.PutU16(r.andx.AndXOffset)
	params.PutU16(r.fid)
	params.PutU32(uint32(r.offset))
	params.PutU16(uint16(r.maxCount & 0xFFFF))
	params.PutU16(uint16(r.maxCount & 0xFFFF)) // MinCount: same as MaxCount, no partial-read preference
	params.PutU32(r.maxCount >> 16)            // MaxCountHigh/Timeout overlay, per MS-CIFS when WordCount==12
	params.PutU16(0)                           // Remaining
	params.PutU32(uint32(r.offset >> 32))       // OffsetHigh

	buf := encoder.NewBuffer(len(hdr) + params.Len() + 2)
	buf.PutBytes(hdr)
	buf.PutU8(uint8(params.Len() / 2))
	buf.PutBytes(params.Bytes())
	buf.PutU16(0) // ByteCount: READ_ANDX carries no request data block
	return buf.Bytes(), nil
}

type readResponse struct {
	DataLength uint32
	Data       []byte
}

func parseReadResponse(frame []byte) (readResponse, error) {
	var res readResponse
	body := frame[HeaderLen:]
	buf := encoder.NewBufferFrom(body)

	wordCount, err := buf.GetU8()
	if err != nil {
		return res, newError(ErrorProtocolError, "READ_ANDX response: %v", err)
	}
	if wordCount < 12 {
		return res, newError(ErrorProtocolError, "READ_ANDX response: word count %d too small", wordCount)
	}

	for i := 0; i < 2; i++ { // AndXCommand, AndXReserved folded into one word; AndXOffset
		if _, err := buf.GetU8(); err != nil {
			return res, newError(ErrorProtocolError, "READ_ANDX truncated: %v", err)
		}
	}
	if _, err := buf.GetU16(); err != nil { // AndXOffset
		return res, newError(ErrorProtocolError, "READ_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU16(); err != nil { // Remaining
		return res, newError(ErrorProtocolError, "READ_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU32(); err != nil { // DataCompactionMode + Reserved
		return res, newError(ErrorProtocolError, "READ_ANDX truncated: %v", err)
	}
	dataLen, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "READ_ANDX truncated: %v", err)
	}
	dataOffset, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "READ_ANDX truncated: %v", err)
	}
	dataLenHigh, err := buf.GetU32()
	if err != nil {
		return res, newError(ErrorProtocolError, "READ_ANDX truncated: %v", err)
	}

	res.DataLength = uint32(dataLen) | (dataLenHigh << 16)

	// DataOffset counts from the start of the SMB header, not from the
	// current parameter-block cursor (spec §4.5): seek the whole frame.
	if int(dataOffset)+int(res.DataLength) > len(frame) {
		return res, newError(ErrorProtocolError, "READ_ANDX: data extends past frame (offset %d len %d frame %d)", dataOffset, res.DataLength, len(frame))
	}
	res.Data = frame[dataOffset : int(dataOffset)+int(res.DataLength)]
	return res, nil
}

// read issues one READ_ANDX for up to len(out) bytes at offset, clamped to
// the server's negotiated buffer size, copying what came back into out and
// returning the number of bytes delivered.
func (c *Connection) read(fid uint16, offset uint64, out []byte) (int, error) {
	maxCount := uint32(len(out))
	if limit := c.maxBufferSize; limit > readOverhead {
		if clamped := limit - readOverhead; maxCount > clamped {
			maxCount = clamped
		}
	}

	c.log().Debugf("READ_ANDX fid=%d offset=%d maxCount=%d", fid, offset, maxCount)

	req := readRequest{
		header:   c.newHeader(cmdReadX),
		andx:     noAndx(),
		fid:      fid,
		offset:   offset,
		maxCount: maxCount,
	}
	body, err := req.marshal()
	if err != nil {
		return 0, newError(ErrorGeneralSystemError, "encoding READ_ANDX: %v", err)
	}

	if err := c.framer.WriteFrame(body); err != nil {
		return 0, newError(ErrorConnectionProblem, "sending READ_ANDX: %v", err)
	}
	frame, err := c.framer.ReadFrame()
	if err != nil {
		return 0, newError(ErrorConnectionProblem, "receiving READ_ANDX response: %v", err)
	}
	hdr, err := decodeHeader(frame)
	if err != nil {
		return 0, err
	}
	if hdr.MID != req.header.MID {
		c.status = StatusDisconnected
		return 0, newError(ErrorConnectionProblem, "READ_ANDX MID mismatch: sent %d, got %d", req.header.MID, hdr.MID)
	}
	if err := c.checkStatus(hdr, "READ_ANDX"); err != nil {
		return 0, err
	}

	res, err := parseReadResponse(frame)
	if err != nil {
		return 0, err
	}

	n := copy(out, res.Data)
	return n, nil
}

type writeRequest struct {
	header Header
	andx   andxHeader

	fid    uint16
	offset uint64
	data   []byte
}

func (r writeRequest) marshal() ([]byte, error) {
	hdr, err := encodeHeader(r.header)
	if err != nil {
		return nil, err
	}

	params := encoder.NewBuffer(28)
	params.PutU8(r.andx.AndXCommand)
	params.PutU8(0)
	params.PutU16(r.andx.AndXOffset)
	params.PutU16(r.fid)
	params.PutU32(uint32(r.offset))
	params.PutU32(0) // Reserved (Timeout)
	params.PutU16(0) // WriteMode
	params.PutU16(0) // Remaining
	params.PutU16(uint16(len(r.data) >> 16))
	params.PutU16(uint16(len(r.data) & 0xFFFF))

	// DataOffset is counted from the start of the SMB header. The two
	// remaining parameter fields (DataOffset itself, 2 bytes, and
	// OffsetHigh, 4 bytes) plus the ByteCount word still have to land
	// before the data block, so they count toward the offset too.
	const remainingParamBytes = 2 + 4
	dataOffset := HeaderLen + 1 + params.Len() + remainingParamBytes + 2
	params.PutU16(uint16(dataOffset))
	params.PutU32(uint32(r.offset >> 32))

	buf := encoder.NewBuffer(len(hdr) + params.Len() + len(r.data) + 2)
	buf.PutBytes(hdr)
	buf.PutU8(uint8(params.Len() / 2))
	buf.PutBytes(params.Bytes())
	buf.PutU16(uint16(len(r.data)))
	buf.PutBytes(r.data)
	return buf.Bytes(), nil
}

type writeResponse struct {
	Count uint32
}

func parseWriteResponse(body []byte) (writeResponse, error) {
	var res writeResponse
	buf := encoder.NewBufferFrom(body)

	wordCount, err := buf.GetU8()
	if err != nil {
		return res, newError(ErrorProtocolError, "WRITE_ANDX response: %v", err)
	}
	if wordCount < 6 {
		return res, newError(ErrorProtocolError, "WRITE_ANDX response: word count %d too small", wordCount)
	}

	if _, err := buf.GetU8(); err != nil { // AndXCommand
		return res, newError(ErrorProtocolError, "WRITE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU8(); err != nil { // AndXReserved
		return res, newError(ErrorProtocolError, "WRITE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU16(); err != nil { // AndXOffset
		return res, newError(ErrorProtocolError, "WRITE_ANDX truncated: %v", err)
	}
	count, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "WRITE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU16(); err != nil { // Remaining
		return res, newError(ErrorProtocolError, "WRITE_ANDX truncated: %v", err)
	}
	countHigh, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "WRITE_ANDX truncated: %v", err)
	}

	res.Count = uint32(count) | (uint32(countHigh) << 16)
	return res, nil
}

// write issues one WRITE_ANDX for data at offset, returning the number of
// bytes the server reports having written.
func (c *Connection) write(fid uint16, offset uint64, data []byte) (int, error) {
	c.log().Debugf("WRITE_ANDX fid=%d offset=%d len=%d", fid, offset, len(data))

	req := writeRequest{
		header: c.newHeader(cmdWriteX),
		andx:   noAndx(),
		fid:    fid,
		offset: offset,
		data:   data,
	}
	body, err := req.marshal()
	if err != nil {
		return 0, newError(ErrorGeneralSystemError, "encoding WRITE_ANDX: %v", err)
	}

	hdr, respBody, err := c.roundTrip(req.header, body)
	if err != nil {
		return 0, err
	}
	if err := c.checkStatus(hdr, "WRITE_ANDX"); err != nil {
		return 0, err
	}

	res, err := parseWriteResponse(respBody)
	if err != nil {
		return 0, err
	}
	return int(res.Count), nil
}
