package smb

import (
	"github.com/fenwick-labs/smb1/smb/encoder"
)

// Desired-access and create-disposition values this client uses (spec
// §4.5 NT_CREATE_ANDX). Only the two combinations read_file/write_file need
// are defined; a full redirector would expose many more.
const (
	genericRead  uint32 = 0x80000000
	genericWrite uint32 = 0x40000000

	fileAttributeNormal    uint32 = 0x00000080
	fileAttributeDirectory uint32 = 0x00000010

	shareAccessReadWriteDelete uint32 = 0x00000007

	createDispositionOpen         uint32 = 0x00000001
	createDispositionOverwriteIf  uint32 = 0x00000005

	impersonationImpersonation uint32 = 0x00000002
)

type ntCreateRequest struct {
	header Header
	andx   andxHeader

	desiredAccess     uint32
	fileAttributes    uint32
	shareAccess       uint32
	createDisposition uint32
	path              string
}

func (r ntCreateRequest) marshal() ([]byte, error) {
	hdr, err := encodeHeader(r.header)
	if err != nil {
		return nil, err
	}

	nameBuf := encoder.NewBuffer(len(r.path) + 1)
	nameBuf.PutAsciiZ(r.path)

	params := encoder.NewBuffer(44)
	params.PutU8(r.andx.AndXCommand)
	params.PutU8(0)
	params.PutU16(r.andx.AndXOffset)
	params.PutU8(0) // Reserved
	params.PutU16(uint16(len(r.path)))
	params.PutU32(0) // Flags
	params.PutU32(0) // RootFID
	params.PutU32(r.desiredAccess)
	params.PutU64(0) // AllocationSize
	params.PutU32(r.fileAttributes)
	params.PutU32(r.shareAccess)
	params.PutU32(r.createDisposition)
	params.PutU32(0) // CreateOptions
	params.PutU32(impersonationImpersonation)
	params.PutU8(0) // SecurityFlags

	buf := encoder.NewBuffer(len(hdr) + params.Len() + nameBuf.Len() + 4)
	buf.PutBytes(hdr)
	buf.PutU8(uint8(params.Len() / 2))
	buf.PutBytes(params.Bytes())
	buf.PutU16(uint16(nameBuf.Len()))
	buf.PutBytes(nameBuf.Bytes())
	return buf.Bytes(), nil
}

type ntCreateResponse struct {
	Fid         uint16
	IsDirectory bool
	EndOfFile   uint64
}

func parseNTCreateResponse(body []byte) (ntCreateResponse, error) {
	var res ntCreateResponse
	buf := encoder.NewBufferFrom(body)

	wordCount, err := buf.GetU8()
	if err != nil {
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX response: %v", err)
	}
	if wordCount < 26 {
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX response: word count %d too small", wordCount)
	}

	if _, err := buf.GetU8(); err != nil { // AndXCommand
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU8(); err != nil { // AndXReserved
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU16(); err != nil { // AndXOffset
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	oplockLevel, err := buf.GetU8()
	_ = oplockLevel
	if err != nil {
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	fid, err := buf.GetU16()
	if err != nil {
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	res.Fid = fid

	if _, err := buf.GetU32(); err != nil { // CreateAction
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU64(); err != nil { // CreationTime
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU64(); err != nil { // LastAccessTime
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU64(); err != nil { // LastWriteTime
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU64(); err != nil { // ChangeTime
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU32(); err != nil { // FileAttributes
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU64(); err != nil { // AllocationSize
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	eof, err := buf.GetU64()
	if err != nil {
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	res.EndOfFile = eof

	if _, err := buf.GetU16(); err != nil { // FileType
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	if _, err := buf.GetU16(); err != nil { // IPCState
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	isDir, err := buf.GetU8()
	if err != nil {
		return res, newError(ErrorProtocolError, "NT_CREATE_ANDX truncated: %v", err)
	}
	res.IsDirectory = isDir != 0

	return res, nil
}

// ntCreate opens fi, storing the returned FID/size/mode into fi.
func (c *Connection) ntCreate(fi *FileInfo, mode OpenMode) error {
	var access, disposition uint32
	switch mode {
	case OpenModeRead:
		access, disposition = genericRead, createDispositionOpen
	case OpenModeWrite:
		access, disposition = genericWrite, createDispositionOverwriteIf
	default:
		return newError(ErrorParameterInvalid, "ntCreate: invalid open mode %v", mode)
	}

	c.log().Debugf("NT_CREATE_ANDX %s mode=%v", fullPath(*fi), mode)

	req := ntCreateRequest{
		header:            c.newHeader(cmdNTCreateX),
		andx:              noAndx(),
		desiredAccess:     access,
		fileAttributes:    fileAttributeNormal,
		shareAccess:       shareAccessReadWriteDelete,
		createDisposition: disposition,
		path:              fullPath(*fi),
	}

	body, err := req.marshal()
	if err != nil {
		return newError(ErrorGeneralSystemError, "encoding NT_CREATE_ANDX: %v", err)
	}

	hdr, respBody, err := c.roundTrip(req.header, body)
	if err != nil {
		return err
	}
	if err := c.checkStatus(hdr, "NT_CREATE_ANDX"); err != nil {
		return err
	}

	res, err := parseNTCreateResponse(respBody)
	if err != nil {
		return err
	}

	fi.Fid = res.Fid
	fi.Mode = mode
	fi.IsFolder = res.IsDirectory
	fi.FileSize = res.EndOfFile
	return nil
}
