package smb

import (
	"github.com/fenwick-labs/smb1/smb/encoder"
)

// utimeNow tells the server to use the current time for the file's last
// write time on close, rather than leaving it untouched.
const utimeNow uint32 = 0xFFFFFFFF

// closeFile sends CLOSE for fid. A non-zero NT status is logged but does
// not fail the call (spec §4.5 CLOSE: "non-zero NT status logs but does
// not re-throw"), since by this point the caller has already gotten what
// it needed out of the handle.
func (c *Connection) closeFile(fid uint16) {
	c.log().Debugf("CLOSE fid=%d", fid)

	hdr := c.newHeader(cmdClose)
	headerBytes, err := encodeHeader(hdr)
	if err != nil {
		c.log().Errorln("encoding CLOSE:", err)
		return
	}

	buf := encoder.NewBuffer(len(headerBytes) + 8)
	buf.PutBytes(headerBytes)
	buf.PutU8(3) // WordCount: FID word + LastWriteTime (2 words)
	buf.PutU16(fid)
	buf.PutU32(utimeNow)
	buf.PutU16(0) // ByteCount

	respHdr, _, err := c.roundTrip(hdr, buf.Bytes())
	if err != nil {
		c.log().Errorln("CLOSE round trip:", err)
		return
	}
	if err := c.checkStatus(respHdr, "CLOSE"); err != nil {
		c.log().Errorln("CLOSE:", err)
	}
}
