package envelope

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func testKey(b byte) []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = b
	}
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(0x42)

	tests := []struct {
		name      string
		plaintext string
	}{
		{
			name:      "empty string",
			plaintext: "",
		},
		{
			name:      "simple text",
			plaintext: "hello world",
		},
		{
			name:      "unicode with combining marks",
			plaintext: "café ​zero-width​ \U0001F512",
		},
		{
			name:      "multiline markdown",
			plaintext: "# Context\n\n- decision one\n- decision two\n",
		},
		{
			name:      "large content",
			plaintext: strings.Repeat("0123456789abcdef", 256*1024), // 4 MiB
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := Encrypt([]byte(tt.plaintext), key)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if !IsEnvelope(sealed) {
				t.Errorf("Encrypt() output does not start with envelope tag")
			}

			got, err := Decrypt(sealed, key)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(got, []byte(tt.plaintext)) {
				t.Errorf("Decrypt() did not round-trip plaintext")
			}
		})
	}
}

func TestEncrypt_FreshNonce(t *testing.T) {
	key := testKey(0x01)
	plaintext := []byte("same input")

	first, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	second, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if first == second {
		t.Error("Encrypt() produced identical envelopes for two calls; nonce is not fresh")
	}

	for _, sealed := range []string{first, second} {
		got, err := Decrypt(sealed, key)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Error("Decrypt() did not recover plaintext")
		}
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), testKey(0x11))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	got, err := Decrypt(sealed, testKey(0x22))
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("Decrypt() with wrong key: error = %v, want ErrAuthenticationFailed", err)
	}
	if got != nil {
		t.Errorf("Decrypt() with wrong key returned plaintext %q", got)
	}
}

func TestDecrypt_TamperedSegments(t *testing.T) {
	key := testKey(0x33)
	sealed, err := Encrypt([]byte("do not touch"), key)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	parts := strings.Split(sealed, ":")

	// Flip one byte inside each binary segment in turn.
	for i, name := range map[int]string{2: "nonce", 3: "authTag", 4: "ciphertext"} {
		t.Run(name, func(t *testing.T) {
			raw, err := base64.StdEncoding.DecodeString(parts[i])
			if err != nil {
				t.Fatalf("segment %d is not base64: %v", i, err)
			}
			raw[0] ^= 0x01

			tampered := make([]string, len(parts))
			copy(tampered, parts)
			tampered[i] = base64.StdEncoding.EncodeToString(raw)

			got, err := Decrypt(strings.Join(tampered, ":"), key)
			if !errors.Is(err, ErrAuthenticationFailed) {
				t.Errorf("Decrypt() tampered %s: error = %v, want ErrAuthenticationFailed", name, err)
			}
			if got != nil {
				t.Errorf("Decrypt() tampered %s returned plaintext %q", name, got)
			}
		})
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	key := testKey(0x44)
	valid, err := Encrypt([]byte("x"), key)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	parts := strings.Split(valid, ":")

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "wrong tag",
			raw:  strings.Join(append([]string{"OTHER_TAG"}, parts[1:]...), ":"),
		},
		{
			name: "unknown version",
			raw:  strings.Join([]string{parts[0], "v2", parts[2], parts[3], parts[4]}, ":"),
		},
		{
			name: "too few segments",
			raw:  strings.Join(parts[:4], ":"),
		},
		{
			name: "too many segments",
			raw:  valid + ":extra",
		},
		{
			name: "non-base64 nonce",
			raw:  strings.Join([]string{parts[0], parts[1], "!!!", parts[3], parts[4]}, ":"),
		},
		{
			name: "plaintext file",
			raw:  "# Just some markdown\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decrypt(tt.raw, key)
			var malformed *MalformedError
			if !errors.As(err, &malformed) {
				t.Errorf("Decrypt() error = %v, want MalformedError", err)
			}
			if got != nil {
				t.Errorf("Decrypt() returned plaintext %q for malformed input", got)
			}
		})
	}
}

func TestDecrypt_InvalidKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := Encrypt([]byte("x"), make([]byte, n)); err == nil {
			t.Errorf("Encrypt() accepted %d-byte key", n)
		}
		if _, err := Decrypt("ignored", make([]byte, n)); err == nil {
			t.Errorf("Decrypt() accepted %d-byte key", n)
		}
	}

	var keyErr *InvalidKeyLengthError
	_, err := Encrypt([]byte("x"), make([]byte, 16))
	if !errors.As(err, &keyErr) {
		t.Errorf("Encrypt() error = %v, want InvalidKeyLengthError", err)
	}
}

func TestIsEnvelope(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"encrypted file", Tag + ":v1:a:b:c", true},
		{"plaintext markdown", "# notes\n", false},
		{"tag without delimiter", Tag, false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEnvelope(tt.raw); got != tt.want {
				t.Errorf("IsEnvelope(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
