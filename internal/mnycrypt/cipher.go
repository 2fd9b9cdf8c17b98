// Package mnycrypt implements the stream-cipher layer of the encrypted
// container format: per-page RC4 application and the candidate-key recovery
// recipes for the blank-password variant.
package mnycrypt

import (
	"crypto/rc4"

	"github.com/mnybridge/mnybridge/internal/errors"
)

// Apply XORs a fresh RC4 keystream into page[start:], mutating in place.
// The keystream never carries across pages: each call builds a new cipher
// state from the key, consumes it, and discards it. RC4 is its own inverse,
// so the same call both enciphers and deciphers.
func Apply(key []byte, page []byte, start int) error {
	if len(key) == 0 {
		return errors.New(errors.ErrCategoryCrypto, errors.CodeEmptyKey, "cipher key must not be empty")
	}
	if start < 0 || start > len(page) {
		return errors.NewInvalidFormat("cipher start offset outside page")
	}
	c, err := rc4.NewCipher(key)
	if err != nil {
		return errors.Wrap(errors.ErrCategoryCrypto, errors.CodeEmptyKey, "build cipher", err)
	}
	c.XORKeyStream(page[start:], page[start:])
	return nil
}
