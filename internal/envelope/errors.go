package envelope

import (
	"errors"
	"fmt"
)

// ErrAuthenticationFailed covers both a wrong key and any tampering with the
// nonce, tag, or ciphertext. The cipher cannot tell these apart.
var ErrAuthenticationFailed = errors.New("envelope authentication failed")

// MalformedError represents an envelope that could not be parsed
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed envelope: %s", e.Reason)
}

// InvalidKeyLengthError represents a key that is not exactly 32 bytes
type InvalidKeyLengthError struct {
	Got int
}

func (e *InvalidKeyLengthError) Error() string {
	return fmt.Sprintf("invalid key length: got %d bytes, want %d", e.Got, KeySize)
}
