package smb

import (
	"github.com/fenwick-labs/smb1/smb/encoder"
)

// FIND_FIRST2 request flags (spec §4.5 TRANS2/FIND_FIRST2): close the
// search handle as soon as this one response satisfies it (no FIND_NEXT2
// follow-up is ever issued by this client) and ask for resume keys so a
// truncated listing could in principle be continued.
const (
	trans2FlagCloseAfterRequest uint16 = 0x0001
	trans2FlagReturnResumeKeys  uint16 = 0x0004
)

// smbFindFileBothDirectoryInfo is the information level this client always
// requests: it carries both the long filename and an 8.3 short name, plus
// size and attribute fields, in one fixed-layout record.
const smbFindFileBothDirectoryInfo uint16 = 0x0104

const fileAttributeDirectoryBit uint32 = fileAttributeDirectory

// findFirst2FixedEntryLen is the size of a SMB_FIND_FILE_BOTH_DIRECTORY_INFO
// record up to but not including the variable-length filename.
const findFirst2FixedEntryLen = 94

type findFirst2Request struct {
	header Header

	searchAttributes uint16
	searchCount      uint16
	maxDataCount     uint16
	pattern          string
}

func (r findFirst2Request) marshal() ([]byte, error) {
	hdr, err := encodeHeader(r.header)
	if err != nil {
		return nil, err
	}

	tparams := encoder.NewBuffer(16 + len(r.pattern))
	tparams.PutU16(r.searchAttributes)
	tparams.PutU16(r.searchCount)
	tparams.PutU16(trans2FlagCloseAfterRequest | trans2FlagReturnResumeKeys)
	tparams.PutU16(smbFindFileBothDirectoryInfo)
	tparams.PutU32(0) // SearchStorageType
	tparams.PutAsciiZ(r.pattern)

	// Fixed SMB parameter words preceding Setup: TotalParameterCount,
	// TotalDataCount, MaxParameterCount, MaxDataCount, MaxSetupCount,
	// Reserved1, Flags, Timeout, Reserved2, ParameterCount, ParameterOffset,
	// DataCount, DataOffset, SetupCount, Reserved3 = 28 bytes, plus one
	// Setup word (the TRANS2 subcommand) = 30 bytes = 15 words.
	const fixedParamBytes = 28
	const setupBytes = 2
	wordCount := uint8((fixedParamBytes + setupBytes) / 2)

	const nameLen = 1 // empty Name field: just its null terminator
	paramOffset := HeaderLen + 1 + fixedParamBytes + setupBytes + 2 + nameLen
	dataOffset := paramOffset + tparams.Len()

	buf := encoder.NewBuffer(paramOffset + tparams.Len())
	buf.PutBytes(hdr)
	buf.PutU8(wordCount)
	buf.PutU16(uint16(tparams.Len())) // TotalParameterCount
	buf.PutU16(0)                     // TotalDataCount
	buf.PutU16(10)                    // MaxParameterCount: SearchID..LastNameOffset
	buf.PutU16(r.maxDataCount)        // MaxDataCount
	buf.PutU8(0)                      // MaxSetupCount
	buf.PutU8(0)                      // Reserved1
	buf.PutU16(0)                     // Flags
	buf.PutU32(0)                     // Timeout
	buf.PutU16(0)                     // Reserved2
	buf.PutU16(uint16(tparams.Len())) // ParameterCount
	buf.PutU16(uint16(paramOffset))  // ParameterOffset
	buf.PutU16(0)                     // DataCount
	buf.PutU16(uint16(dataOffset))   // DataOffset
	buf.PutU8(1)                      // SetupCount
	buf.PutU8(0)                      // Reserved3
	buf.PutU16(trans2FindFirst2)      // Setup[0]
	buf.PutU16(uint16(nameLen + tparams.Len())) // ByteCount
	buf.PutU8(0)                      // Name: empty, just the terminator
	buf.PutBytes(tparams.Bytes())
	return buf.Bytes(), nil
}

type findFirst2Entry struct {
	FileName    string
	IsDirectory bool
	EndOfFile   uint64
}

type findFirst2Response struct {
	EndOfSearch bool
	Entries     []findFirst2Entry
}

func parseFindFirst2Response(frame []byte) (findFirst2Response, error) {
	var res findFirst2Response
	body := frame[HeaderLen:]
	buf := encoder.NewBufferFrom(body)

	wordCount, err := buf.GetU8()
	if err != nil {
		return res, newError(ErrorProtocolError, "TRANS2 response: %v", err)
	}
	if wordCount < 10 {
		return res, newError(ErrorProtocolError, "TRANS2 response: word count %d too small", wordCount)
	}

	if _, err := buf.GetU16(); err != nil { // TotalParameterCount
		return res, newError(ErrorProtocolError, "TRANS2 truncated: %v", err)
	}
	if _, err := buf.GetU16(); err != nil { // TotalDataCount
		return res, newError(ErrorProtocolError, "TRANS2 truncated: %v", err)
	}
	if _, err := buf.GetU16(); err != nil { // Reserved
		return res, newError(ErrorProtocolError, "TRANS2 truncated: %v", err)
	}
	paramCount, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "TRANS2 truncated: %v", err)
	}
	paramOffset, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "TRANS2 truncated: %v", err)
	}
	if _, err := buf.GetU16(); err != nil { // ParameterDisplacement
		return res, newError(ErrorProtocolError, "TRANS2 truncated: %v", err)
	}
	dataCount, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "TRANS2 truncated: %v", err)
	}
	dataOffset, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "TRANS2 truncated: %v", err)
	}

	// ParameterOffset/DataOffset count from the start of the SMB header
	// (same convention as READ_ANDX), so index into the whole frame.
	if int(paramOffset)+int(paramCount) > len(frame) {
		return res, newError(ErrorProtocolError, "TRANS2: parameters extend past frame")
	}
	params := frame[paramOffset : int(paramOffset)+int(paramCount)]
	if len(params) < 10 {
		return res, newError(ErrorProtocolError, "TRANS2: FIND_FIRST2 parameters too short")
	}
	pbuf := encoder.NewBufferFrom(params)
	if _, err := pbuf.GetU16(); err != nil { // SearchID
		return res, newError(ErrorProtocolError, "TRANS2 parameters truncated: %v", err)
	}
	searchCount, err := pbuf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "TRANS2 parameters truncated: %v", err)
	}
	endOfSearch, err := pbuf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "TRANS2 parameters truncated: %v", err)
	}
	res.EndOfSearch = endOfSearch != 0

	if int(dataOffset)+int(dataCount) > len(frame) {
		return res, newError(ErrorProtocolError, "TRANS2: data extends past frame")
	}
	data := frame[dataOffset : int(dataOffset)+int(dataCount)]

	res.Entries = make([]findFirst2Entry, 0, searchCount)
	pos := 0
	for {
		if pos+findFirst2FixedEntryLen > len(data) {
			break
		}
		entry := data[pos:]
		ebuf := encoder.NewBufferFrom(entry)

		nextOffset, err := ebuf.GetU32()
		if err != nil {
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
		}
		if _, err := ebuf.GetU32(); err != nil { // FileIndex
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
		}
		for i := 0; i < 4; i++ { // CreationTime, LastAccessTime, LastWriteTime, ChangeTime
			if _, err := ebuf.GetU64(); err != nil {
				return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
			}
		}
		endOfFile, err := ebuf.GetU64()
		if err != nil {
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
		}
		if _, err := ebuf.GetU64(); err != nil { // AllocationSize
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
		}
		attrs, err := ebuf.GetU32()
		if err != nil {
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
		}
		nameLen, err := ebuf.GetU32()
		if err != nil {
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
		}
		if _, err := ebuf.GetU32(); err != nil { // EaSize
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
		}
		if _, err := ebuf.GetU8(); err != nil { // ShortNameLength
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
		}
		if _, err := ebuf.GetU8(); err != nil { // Reserved
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
		}
		if _, err := ebuf.GetBytes(24); err != nil { // ShortName
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry truncated: %v", err)
		}

		nameStart := findFirst2FixedEntryLen
		nameEnd := nameStart + int(nameLen)
		if nameEnd > len(entry) {
			return res, newError(ErrorProtocolError, "FIND_FIRST2 entry: filename extends past record")
		}
		name := trimNulString(entry[nameStart:nameEnd])

		if name != "." && name != ".." {
			res.Entries = append(res.Entries, findFirst2Entry{
				FileName:    name,
				IsDirectory: attrs&fileAttributeDirectoryBit != 0,
				EndOfFile:   endOfFile,
			})
		}

		if nextOffset == 0 {
			break
		}
		pos += int(nextOffset)
	}

	return res, nil
}

func trimNulString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// findFirst2 lists dir's contents in a single TRANS2/FIND_FIRST2 exchange
// (spec §4.5). CLOSE_AFTER_REQUEST is always set, so no FIND_NEXT2 is ever
// issued. STATUS_NO_MORE_FILES is a normal empty-directory result, not a
// failure.
func (c *Connection) findFirst2(pattern string, maxCount uint16) ([]findFirst2Entry, error) {
	c.log().Debugf("TRANS2/FIND_FIRST2 pattern=%q maxCount=%d", pattern, maxCount)

	maxDataCount := uint32(0xFFFF)
	if limit := c.maxBufferSize; limit > readOverhead {
		maxDataCount = limit - readOverhead
	}

	req := findFirst2Request{
		header:           c.newHeader(cmdTrans2),
		searchAttributes: uint16(fileAttributeDirectory) | 0x0002 | 0x0004, // directories + hidden + system files
		searchCount:      maxCount,
		maxDataCount:     uint16(maxDataCount & 0xFFFF),
		pattern:          pattern,
	}
	body, err := req.marshal()
	if err != nil {
		return nil, newError(ErrorGeneralSystemError, "encoding TRANS2/FIND_FIRST2: %v", err)
	}

	if err := c.framer.WriteFrame(body); err != nil {
		return nil, newError(ErrorConnectionProblem, "sending TRANS2/FIND_FIRST2: %v", err)
	}
	frame, err := c.framer.ReadFrame()
	if err != nil {
		return nil, newError(ErrorConnectionProblem, "receiving TRANS2/FIND_FIRST2 response: %v", err)
	}
	hdr, err := decodeHeader(frame)
	if err != nil {
		return nil, err
	}
	if hdr.MID != req.header.MID {
		c.status = StatusDisconnected
		return nil, newError(ErrorConnectionProblem, "TRANS2/FIND_FIRST2 MID mismatch: sent %d, got %d", req.header.MID, hdr.MID)
	}
	if hdr.Status == statusNoMoreFiles {
		return nil, nil
	}
	if err := c.checkStatus(hdr, "TRANS2/FIND_FIRST2"); err != nil {
		return nil, err
	}

	res, err := parseFindFirst2Response(frame)
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}
