package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// Tag is the leading marker of every encrypted file. A file that does not
// start with it is treated as legacy plaintext by callers.
const Tag = "RECALL_ENCRYPTED"

// Version is the only envelope version this codec reads or writes.
const Version = "v1"

const (
	// KeySize is the required key length in bytes (AES-256).
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// AuthTagSize is the GCM authentication tag length in bytes.
	AuthTagSize = 16

	segmentCount = 5
)

// Envelope is the parsed form of one encrypted file. The delimited wire
// string is parsed into this struct at the boundary so nothing downstream
// manipulates raw segments.
type Envelope struct {
	Version    string
	Nonce      []byte
	AuthTag    []byte
	Ciphertext []byte
}

// Encrypt seals plaintext under a 32-byte key with AES-256-GCM and a fresh
// random nonce, returning the serialized envelope string.
func Encrypt(plaintext []byte, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", &InvalidKeyLengthError{Got: len(key)}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to initialize GCM: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	// GCM appends the auth tag to the ciphertext; the wire format carries
	// them as separate segments.
	ciphertext := sealed[:len(sealed)-AuthTagSize]
	authTag := sealed[len(sealed)-AuthTagSize:]

	env := &Envelope{
		Version:    Version,
		Nonce:      nonce,
		AuthTag:    authTag,
		Ciphertext: ciphertext,
	}
	return env.String(), nil
}

// Decrypt parses an envelope string and returns the verified plaintext.
// Any parse or authentication failure returns zero bytes of plaintext.
func Decrypt(raw string, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, &InvalidKeyLengthError{Got: len(key)}
	}

	env, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.AuthTag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.AuthTag...)

	plaintext, err := gcm.Open(nil, env.Nonce, sealed, nil)
	if err != nil {
		// GCM does not distinguish wrong key from tampering; neither do we.
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Parse splits a wire-format envelope string into its parsed form,
// validating the tag, version, segment count, and segment lengths.
func Parse(raw string) (*Envelope, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != segmentCount {
		return nil, &MalformedError{Reason: fmt.Sprintf("expected %d segments, got %d", segmentCount, len(parts))}
	}
	if parts[0] != Tag {
		return nil, &MalformedError{Reason: fmt.Sprintf("unknown tag %q", parts[0])}
	}
	if parts[1] != Version {
		return nil, &MalformedError{Reason: fmt.Sprintf("unsupported version %q", parts[1])}
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, &MalformedError{Reason: "nonce is not valid base64"}
	}
	if len(nonce) != NonceSize {
		return nil, &MalformedError{Reason: fmt.Sprintf("nonce is %d bytes, want %d", len(nonce), NonceSize)}
	}

	authTag, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, &MalformedError{Reason: "auth tag is not valid base64"}
	}
	if len(authTag) != AuthTagSize {
		return nil, &MalformedError{Reason: fmt.Sprintf("auth tag is %d bytes, want %d", len(authTag), AuthTagSize)}
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, &MalformedError{Reason: "ciphertext is not valid base64"}
	}

	return &Envelope{
		Version:    parts[1],
		Nonce:      nonce,
		AuthTag:    authTag,
		Ciphertext: ciphertext,
	}, nil
}

// String serializes the envelope back to its wire format.
func (e *Envelope) String() string {
	return strings.Join([]string{
		Tag,
		e.Version,
		base64.StdEncoding.EncodeToString(e.Nonce),
		base64.StdEncoding.EncodeToString(e.AuthTag),
		base64.StdEncoding.EncodeToString(e.Ciphertext),
	}, ":")
}

// IsEnvelope reports whether raw content starts with the envelope tag.
func IsEnvelope(raw string) bool {
	return strings.HasPrefix(raw, Tag+":")
}
