package smb

import (
	"fmt"

	"github.com/fenwick-labs/smb1/smb/encoder"
)

const treeConnectService = "?????"

type treeConnectRequest struct {
	header Header
	andx   andxHeader

	password []byte
	path     string
}

func (r treeConnectRequest) marshal() ([]byte, error) {
	hdr, err := encodeHeader(r.header)
	if err != nil {
		return nil, err
	}

	params := encoder.NewBuffer(8)
	params.PutU8(r.andx.AndXCommand)
	params.PutU8(0)
	params.PutU16(r.andx.AndXOffset)
	params.PutU16(0) // Flags
	params.PutU16(uint16(len(r.password)))

	data := encoder.NewBuffer(64)
	data.PutBytes(r.password)
	data.PutAsciiZ(r.path)
	data.PutAsciiZ(treeConnectService)

	buf := encoder.NewBuffer(len(hdr) + params.Len() + data.Len() + 4)
	buf.PutBytes(hdr)
	buf.PutU8(uint8(params.Len() / 2))
	buf.PutBytes(params.Bytes())
	buf.PutU16(uint16(data.Len()))
	buf.PutBytes(data.Bytes())
	return buf.Bytes(), nil
}

func (c *Connection) treeConnect() error {
	wirePath := fmt.Sprintf(`\\%s\%s`, c.host, c.share)
	c.log().Debugf("TREE_CONNECT_ANDX %s", wirePath)

	req := treeConnectRequest{
		header:   c.newHeader(cmdTreeConnectX),
		andx:     noAndx(),
		password: nil, // share-level auth not used; user-level security already authenticated SESSION_SETUP
		path:     wirePath,
	}

	body, err := req.marshal()
	if err != nil {
		return newError(ErrorGeneralSystemError, "encoding TREE_CONNECT_ANDX: %v", err)
	}

	hdr, _, err := c.roundTrip(req.header, body)
	if err != nil {
		return err
	}
	if err := c.checkStatus(hdr, "TREE_CONNECT_ANDX"); err != nil {
		return err
	}

	c.tid = hdr.TID
	c.status = StatusConnectedToShare
	return nil
}

func (c *Connection) treeDisconnect() error {
	c.log().Debugln("TREE_DISCONNECT")

	hdr := c.newHeader(cmdTreeDisconnect)
	body, err := encodeHeader(hdr)
	if err != nil {
		return newError(ErrorGeneralSystemError, "encoding TREE_DISCONNECT: %v", err)
	}
	body = append(body, 0, 0, 0) // WordCount=0, ByteCount=0

	respHdr, _, err := c.roundTrip(hdr, body)
	if err != nil {
		return err
	}
	return c.checkStatus(respHdr, "TREE_DISCONNECT")
}

func (c *Connection) logoff() error {
	c.log().Debugln("LOGOFF_ANDX")

	hdr := c.newHeader(cmdLogoffX)
	headerBytes, err := encodeHeader(hdr)
	if err != nil {
		return newError(ErrorGeneralSystemError, "encoding LOGOFF_ANDX: %v", err)
	}

	buf := encoder.NewBuffer(len(headerBytes) + 8)
	buf.PutBytes(headerBytes)
	buf.PutU8(2) // WordCount: AndXCommand(1) + AndXReserved(1) + AndXOffset(2) = 4 bytes = 2 words
	buf.PutU8(andxNone)
	buf.PutU8(0)
	buf.PutU16(0)
	buf.PutU16(0) // ByteCount

	respHdr, _, err := c.roundTrip(hdr, buf.Bytes())
	if err != nil {
		return err
	}
	return c.checkStatus(respHdr, "LOGOFF_ANDX")
}
