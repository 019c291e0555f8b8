// Package auth computes the LM and NTLMv1 challenge-response blobs SMB1
// SESSION_SETUP_ANDX sends to authenticate a user.
//
// LM/NTLMv1 is cryptographically broken (the LM half is trivially
// bruteforced, and NTLMv1 itself is vulnerable to precomputation attacks)
// and is implemented here only because the target protocol is legacy SMB1;
// callers embedding this package should restrict it to servers that
// genuinely require it and should not present it as a secure default.
package auth

import (
	"crypto/des"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/md4"
)

// ChallengeLen is the fixed size of the server's NEGOTIATE challenge.
const ChallengeLen = 8

const responseLen = 24

var lmMagic = []byte("KGS!@#$%")

// LMResponse computes the 24-byte LAN Manager response to challenge for
// password, per spec §4.4.
func LMResponse(password string, challenge [ChallengeLen]byte) ([responseLen]byte, error) {
	var out [responseLen]byte

	hash, err := lmHash(password)
	if err != nil {
		return out, err
	}
	resp, err := desResponse(hash, challenge)
	if err != nil {
		return out, err
	}
	copy(out[:], resp[:])
	return out, nil
}

// NTLMResponse computes the 24-byte NTLMv1 response to challenge for
// password, per spec §4.4.
func NTLMResponse(password string, challenge [ChallengeLen]byte) ([responseLen]byte, error) {
	var out [responseLen]byte

	hash := ntlmHash(password)
	resp, err := desResponse(hash, challenge)
	if err != nil {
		return out, err
	}
	copy(out[:], resp[:])
	return out, nil
}

// lmHash upper-cases and truncates/pads password to 14 bytes, splits it into
// two 7-byte halves, and DES-ECB-encrypts the fixed "KGS!@#$%" string under
// each half's expanded 8-byte key, yielding the 16-byte LM password hash.
//
// The empty password is a fixed vector (spec §8): its LM hash is defined as
// all-zero rather than the result of running the DES schedule on a key
// expanded from 14 zero bytes.
func lmHash(password string) ([16]byte, error) {
	var hash [16]byte

	if password == "" {
		return hash, nil
	}

	upper := strings.ToUpper(password)
	padded := make([]byte, 14)
	copy(padded, []byte(upper))

	for half := 0; half < 2; half++ {
		key := expandDESKey(padded[half*7 : half*7+7])
		block, err := des.NewCipher(key[:])
		if err != nil {
			return hash, err
		}
		block.Encrypt(hash[half*8:half*8+8], lmMagic)
	}
	return hash, nil
}

// ntlmHash is the MD4 digest of password encoded as little-endian UTF-16.
func ntlmHash(password string) [16]byte {
	var hash [16]byte
	u16 := utf16.Encode([]rune(password))
	buf := make([]byte, len(u16)*2)
	for i, c := range u16 {
		buf[i*2] = byte(c)
		buf[i*2+1] = byte(c >> 8)
	}
	h := md4.New()
	h.Write(buf)
	copy(hash[:], h.Sum(nil))
	return hash
}

// desResponse pads a 16-byte hash to 21 bytes, splits it into three 7-byte
// keys, and DES-ECB-encrypts the 8-byte challenge under each, concatenating
// the three 8-byte blocks into the 24-byte response.
func desResponse(hash [16]byte, challenge [ChallengeLen]byte) ([responseLen]byte, error) {
	var resp [responseLen]byte

	padded := make([]byte, 21)
	copy(padded, hash[:])

	for i := 0; i < 3; i++ {
		key := expandDESKey(padded[i*7 : i*7+7])
		block, err := des.NewCipher(key[:])
		if err != nil {
			return resp, err
		}
		block.Encrypt(resp[i*8:i*8+8], challenge[:])
	}
	return resp, nil
}

// expandDESKey turns 7 bytes (56 bits) into an 8-byte DES key by splitting
// the 56-bit stream into eight 7-bit groups and inserting an odd-parity bit
// after each, the classic LM/NTLMv1 key schedule.
func expandDESKey(k7 []byte) [8]byte {
	var bits uint64
	for _, b := range k7 {
		bits = bits<<8 | uint64(b)
	}

	var key [8]byte
	for i := 0; i < 8; i++ {
		shift := uint(56 - 7*(i+1))
		group := uint8(bits>>shift) & 0x7F
		key[i] = group << 1
		key[i] |= oddParityBit(group)
	}
	return key
}

// oddParityBit returns the bit needed to make popcount(group<<1 | bit) odd.
func oddParityBit(group uint8) uint8 {
	parity := uint8(0)
	for i := 0; i < 7; i++ {
		parity ^= (group >> i) & 1
	}
	return 1 - parity
}
