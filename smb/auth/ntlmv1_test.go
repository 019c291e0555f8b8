package auth

import (
	"bytes"
	"encoding/hex"
	"testing"

	"golang.org/x/crypto/md4"
)

func TestNTLMHashKnownVector(t *testing.T) {
	// password "password" -> MD4 8846F7EAEE8FB117AD06BDD830B7586C (spec §8).
	want, err := hex.DecodeString("8846F7EAEE8FB117AD06BDD830B7586C")
	if err != nil {
		t.Fatal(err)
	}
	got := ntlmHash("password")
	if !bytes.Equal(got[:], want) {
		t.Errorf("ntlmHash(%q) = %x, want %x", "password", got, want)
	}
}

func TestNTLMHashMatchesStdlibMD4(t *testing.T) {
	// Sanity check the UTF-16LE encoding step against a manual md4.Sum of
	// the same bytes, independent of the fixed-vector test above.
	password := "S3cr3t!"
	h := md4.New()
	for _, r := range password {
		h.Write([]byte{byte(r), 0})
	}
	want := h.Sum(nil)

	got := ntlmHash(password)
	if !bytes.Equal(got[:], want) {
		t.Errorf("ntlmHash(%q) = %x, want %x", password, got, want)
	}
}

func TestLMResponseEmptyPasswordKnownChallenge(t *testing.T) {
	// LM response of the empty password with challenge C equals
	// DES-ECB-encrypt(C) under three keys derived from [0]*21 (spec §8).
	var challenge [ChallengeLen]byte
	copy(challenge[:], []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef})

	hash, err := lmHash("")
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range hash {
		if b != 0 {
			t.Fatalf("lmHash(\"\") = %x, want all zero", hash)
		}
	}

	got, err := desResponse(hash, challenge)
	if err != nil {
		t.Fatal(err)
	}

	var zero [16]byte
	want, err := desResponse(zero, challenge)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("LM response of empty password != desResponse([0]*16, C)")
	}
}

func TestLMResponseLength(t *testing.T) {
	var challenge [ChallengeLen]byte
	resp, err := LMResponse("hunter2", challenge)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp) != responseLen {
		t.Fatalf("len(resp) = %d, want %d", len(resp), responseLen)
	}
}

func TestNTLMResponseLength(t *testing.T) {
	var challenge [ChallengeLen]byte
	resp, err := NTLMResponse("hunter2", challenge)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp) != responseLen {
		t.Fatalf("len(resp) = %d, want %d", len(resp), responseLen)
	}
}

func TestExpandDESKeyParity(t *testing.T) {
	// Every expanded key byte must have odd parity: popcount(byte) is odd.
	in := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd}
	key := expandDESKey(in)
	for _, b := range key {
		count := 0
		for i := 0; i < 8; i++ {
			if b&(1<<uint(i)) != 0 {
				count++
			}
		}
		if count%2 != 1 {
			t.Errorf("key byte %08b has even parity", b)
		}
	}
}

func TestDESResponseDeterministic(t *testing.T) {
	var challenge [ChallengeLen]byte
	copy(challenge[:], []byte("ABCDEFGH"))
	hash := ntlmHash("hunter2")

	r1, err := desResponse(hash, challenge)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := desResponse(hash, challenge)
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Errorf("desResponse is not deterministic for identical inputs")
	}
}
