// Package encoder provides the positional, little-endian byte codec used to
// build and parse SMB1 wire messages, plus a small reflection-based helper
// for the fixed-size struct fields (header, parameter blocks) that every
// command shares.
package encoder

import (
	"encoding/binary"
	"fmt"
)

// ErrShortBuffer is returned by any Get* call that would read past the end
// of the underlying buffer.
type ErrShortBuffer struct {
	Want int
	Have int
}

func (e *ErrShortBuffer) Error() string {
	return fmt.Sprintf("encoder: short buffer: need %d bytes, have %d", e.Want, e.Have)
}

// Buffer is a cursor over a mutable byte slice. Every Put* call appends to
// the end of the underlying slice, whatever the cursor position; every Get*
// call reads from the cursor and advances it. A freshly constructed Buffer
// can be used purely for writing (NewBuffer(n)) or purely for reading
// (NewBufferFrom(data)) by using only one side of the API, but nothing stops
// mixing both on the same instance.
type Buffer struct {
	buf []byte
	pos int
}

// NewBuffer returns an empty, write-oriented Buffer.
func NewBuffer(cap int) *Buffer {
	return &Buffer{buf: make([]byte, 0, cap)}
}

// NewBufferFrom wraps an existing slice for reading. The read cursor starts
// at 0.
func NewBufferFrom(data []byte) *Buffer {
	return &Buffer{buf: data}
}

// Bytes returns the full underlying buffer (not just the unread remainder).
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len returns the number of unread bytes remaining.
func (b *Buffer) Len() int {
	return len(b.buf) - b.pos
}

// Pos returns the current cursor offset.
func (b *Buffer) Pos() int {
	return b.pos
}

// Seek repositions the read cursor to an absolute offset. Put* calls are
// unaffected and still append at the end.
func (b *Buffer) Seek(pos int) error {
	if pos < 0 || pos > len(b.buf) {
		return &ErrShortBuffer{Want: pos, Have: len(b.buf)}
	}
	b.pos = pos
	return nil
}

func (b *Buffer) need(n int) error {
	if b.Len() < n {
		return &ErrShortBuffer{Want: n, Have: b.Len()}
	}
	return nil
}

// PutU8 appends a single byte.
func (b *Buffer) PutU8(v uint8) {
	b.buf = append(b.buf, v)
}

// PutU16 appends a little-endian uint16.
func (b *Buffer) PutU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// PutU32 appends a little-endian uint32.
func (b *Buffer) PutU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// PutU64 appends a little-endian uint64.
func (b *Buffer) PutU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// PutBytes appends a raw byte slice verbatim.
func (b *Buffer) PutBytes(p []byte) {
	b.buf = append(b.buf, p...)
}

// PutAsciiZ appends an OEM/ASCII string followed by a single NUL terminator.
func (b *Buffer) PutAsciiZ(s string) {
	b.buf = append(b.buf, []byte(s)...)
	b.buf = append(b.buf, 0)
}

// GetU8 reads and consumes one byte.
func (b *Buffer) GetU8() (uint8, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	v := b.buf[b.pos]
	b.pos++
	return v, nil
}

// GetU16 reads and consumes a little-endian uint16.
func (b *Buffer) GetU16() (uint16, error) {
	if err := b.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(b.buf[b.pos : b.pos+2])
	b.pos += 2
	return v, nil
}

// GetU32 reads and consumes a little-endian uint32.
func (b *Buffer) GetU32() (uint32, error) {
	if err := b.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(b.buf[b.pos : b.pos+4])
	b.pos += 4
	return v, nil
}

// GetU64 reads and consumes a little-endian uint64.
func (b *Buffer) GetU64() (uint64, error) {
	if err := b.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(b.buf[b.pos : b.pos+8])
	b.pos += 8
	return v, nil
}

// GetBytes reads and consumes n raw bytes.
func (b *Buffer) GetBytes(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	v := b.buf[b.pos : b.pos+n]
	b.pos += n
	return v, nil
}

// GetAsciiZ reads a NUL-terminated OEM/ASCII string and consumes the
// terminator.
func (b *Buffer) GetAsciiZ() (string, error) {
	start := b.pos
	for b.pos < len(b.buf) {
		if b.buf[b.pos] == 0 {
			s := string(b.buf[start:b.pos])
			b.pos++
			return s, nil
		}
		b.pos++
	}
	return "", fmt.Errorf("encoder: unterminated ascii string")
}
