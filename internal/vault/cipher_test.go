package vault

import (
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestCipherRoundTrip(t *testing.T) {
	cipher, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	for _, plaintext := range []string{"", "hunter2", "pässwörd with ünïcode", strings.Repeat("x", 4096)} {
		sealed, errEncrypt := cipher.Encrypt(plaintext)
		if errEncrypt != nil {
			t.Fatalf("encrypt: %v", errEncrypt)
		}
		opened, errDecrypt := cipher.Decrypt(sealed)
		if errDecrypt != nil {
			t.Fatalf("decrypt: %v", errDecrypt)
		}
		if opened != plaintext {
			t.Fatalf("expected round trip %q, got %q", plaintext, opened)
		}
	}
}

func TestCipherFreshNoncePerEncryption(t *testing.T) {
	cipher, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	first, errFirst := cipher.Encrypt("same-plaintext")
	if errFirst != nil {
		t.Fatalf("encrypt first: %v", errFirst)
	}
	second, errSecond := cipher.Encrypt("same-plaintext")
	if errSecond != nil {
		t.Fatalf("encrypt second: %v", errSecond)
	}
	if first == second {
		t.Fatalf("expected distinct ciphertexts for repeated plaintext")
	}

	for _, sealed := range []string{first, second} {
		opened, errDecrypt := cipher.Decrypt(sealed)
		if errDecrypt != nil {
			t.Fatalf("decrypt: %v", errDecrypt)
		}
		if opened != "same-plaintext" {
			t.Fatalf("expected both ciphertexts to decrypt, got %q", opened)
		}
	}
}

func TestNewCipherRejectsShortKey(t *testing.T) {
	if _, err := NewCipher("too-short"); err != ErrKeyTooShort {
		t.Fatalf("expected ErrKeyTooShort, got %v", err)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	cipher, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	for _, bad := range []string{"not-base64!!!", "", "aGVsbG8="} {
		if _, errDecrypt := cipher.Decrypt(bad); errDecrypt == nil {
			t.Fatalf("expected decrypt of %q to fail", bad)
		}
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	cipher, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	sealed, errEncrypt := cipher.Encrypt("hunter2")
	if errEncrypt != nil {
		t.Fatalf("encrypt: %v", errEncrypt)
	}
	tampered := []byte(sealed)
	if tampered[len(tampered)-2] == 'A' {
		tampered[len(tampered)-2] = 'B'
	} else {
		tampered[len(tampered)-2] = 'A'
	}
	if _, errDecrypt := cipher.Decrypt(string(tampered)); errDecrypt == nil {
		t.Fatalf("expected tampered ciphertext to fail authentication")
	}
}
