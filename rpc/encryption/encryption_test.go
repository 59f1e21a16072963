package encryption

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	pair, err := NewKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	// the peer only ever sees the DER form of the key
	der, err := pair.PublicKeyDER()
	if err != nil {
		t.Fatalf("failed to encode public key: %v", err)
	}
	pub, err := ParsePublicKeyDER(der)
	if err != nil {
		t.Fatalf("failed to parse public key: %v", err)
	}

	cases := [][]byte{
		[]byte("short"),
		bytes.Repeat([]byte("x"), encryptChunkSize),     // exactly one block
		bytes.Repeat([]byte("y"), encryptChunkSize+1),   // spills into a second block
		bytes.Repeat([]byte("z"), 4*encryptChunkSize+7), // several blocks
		{},
	}

	for _, plaintext := range cases {
		ciphertext, err := Encrypt(pub, plaintext)
		if err != nil {
			t.Fatalf("failed to encrypt %d bytes: %v", len(plaintext), err)
		}
		if len(plaintext) > 0 && bytes.Contains(ciphertext, plaintext) {
			t.Error("ciphertext contains the plaintext")
		}

		back, err := pair.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("failed to decrypt %d bytes: %v", len(plaintext), err)
		}
		if !bytes.Equal(plaintext, back) {
			t.Errorf("round trip mismatch for %d bytes", len(plaintext))
		}
	}
}

func TestDecryptRejectsCorruptCiphertext(t *testing.T) {
	pair, err := NewKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	if _, err := pair.Decrypt([]byte("not a whole block")); err == nil {
		t.Error("expected error for truncated ciphertext")
	}

	corrupt := make([]byte, decryptChunkSize)
	if _, err := pair.Decrypt(corrupt); err == nil {
		t.Error("expected error for corrupt ciphertext")
	}
}

func TestKeysAreDistinct(t *testing.T) {
	a, err := NewKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}
	b, err := NewKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	derA, _ := a.PublicKeyDER()
	derB, _ := b.PublicKeyDER()
	if bytes.Equal(derA, derB) {
		t.Error("two generated key pairs share a public key")
	}

	// a ciphertext for one key must not open with another
	pubA, _ := ParsePublicKeyDER(derA)
	ciphertext, err := Encrypt(pubA, []byte("secret"))
	if err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}
	if _, err := b.Decrypt(ciphertext); err == nil {
		t.Error("decrypting with the wrong key must fail")
	}
}
