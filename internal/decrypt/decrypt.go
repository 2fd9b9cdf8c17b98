// Package decrypt turns an encrypted container image into a plaintext one.
// A decrypt attempt moves through shape checks, then a derived-key candidate
// search, and ends either with a validated plaintext container or with
// exhaustion. Nothing here mutates the caller's bytes; every candidate works
// on a clone.
package decrypt

import (
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/mnybridge/mnybridge/internal/catalog"
	"github.com/mnybridge/mnybridge/internal/container"
	"github.com/mnybridge/mnybridge/internal/errors"
	"github.com/mnybridge/mnybridge/internal/mnycrypt"
	"github.com/mnybridge/mnybridge/internal/observability"
)

// Decryptor runs candidate searches. It remembers which derived key opened
// which container image, so re-opening the same file skips the search. Not
// safe for concurrent use.
type Decryptor struct {
	accepted map[uint64][]byte
	stats    *observability.DecryptStats
}

// New returns a Decryptor with an empty accepted-key cache.
func New() *Decryptor {
	return &Decryptor{accepted: make(map[uint64][]byte)}
}

// NewWithStats returns a Decryptor that records candidate attempts into
// stats. Cache hits bypass the search and are not recorded.
func NewWithStats(stats *observability.DecryptStats) *Decryptor {
	d := New()
	d.stats = stats
	return d
}

// Result is a successful decrypt: the plaintext clone plus everything needed
// to re-cipher a mutated copy back into the original's encrypted form.
type Result struct {
	// Plain is the decrypted working copy
	Plain *container.Container

	// Key is the accepted derived key
	Key []byte

	// Salt and Flags are the source header values, zeroed in Plain
	Salt  [4]byte
	Flags uint32
}

// Decrypt is Open reduced to the plaintext container.
func (d *Decryptor) Decrypt(raw []byte, password string) (*container.Container, error) {
	res, err := d.Open(raw, password)
	if err != nil {
		return nil, err
	}
	return res.Plain, nil
}

// Open validates the container shape, then tries derived key candidates
// until one yields a plaintext image whose signature and catalog check out.
// The result holds a decrypted clone; raw is left untouched.
//
// The key derivation only covers blank-password files. A caller-supplied
// password changes nothing about the search, only how exhaustion is
// classified: BadPassword (retryable) instead of UnsupportedFormat.
func (d *Decryptor) Open(raw []byte, password string) (*Result, error) {
	if len(raw) == 0 || len(raw)%container.PageSize != 0 {
		return nil, errors.NewUnsupportedFormat(
			fmt.Sprintf("file length %d is not a multiple of the %d-byte page", len(raw), container.PageSize))
	}
	c, err := container.New(raw)
	if err != nil {
		return nil, err
	}
	if c.PageCount() < container.EncryptedPageCount {
		return nil, errors.NewUnsupportedFormat(
			fmt.Sprintf("file has %d pages, the encrypted prefix needs %d", c.PageCount(), container.EncryptedPageCount))
	}

	flags := c.EncFlags()
	if flags&container.FlagDerivationSupported == 0 {
		if flags&container.FlagAlternateVariant != 0 {
			return nil, errors.NewUnsupportedFormat(
				fmt.Sprintf("encryption flags 0x%X mark the alternate cipher variant", flags))
		}
		return nil, errors.NewUnsupportedFormat(
			fmt.Sprintf("encryption flags 0x%X do not request the supported derivation mode", flags))
	}

	salt := c.Salt()
	result := func(plain *container.Container, key []byte) *Result {
		return &Result{Plain: plain, Key: key, Salt: salt, Flags: flags}
	}

	fp := murmur3.Sum64(raw)
	if key, ok := d.accepted[fp]; ok {
		if plain, err := tryKey(c, key); err == nil {
			return result(plain, key), nil
		}
		delete(d.accepted, fp)
	}

	for i, key := range mnycrypt.Candidates(salt) {
		plain, err := tryKey(c, key)
		if d.stats != nil {
			d.stats.RecordAttempt(i, err == nil)
		}
		if err != nil {
			continue
		}
		d.accepted[fp] = key
		return result(plain, key), nil
	}

	if password == "" {
		return nil, errors.NewUnsupportedFormat("no derived key yields a valid plaintext image")
	}
	return nil, errors.NewBadPassword("password-protected file, or wrong password")
}

// tryKey deciphers a clone with one candidate and validates the result.
func tryKey(c *container.Container, key []byte) (*container.Container, error) {
	plain := c.Clone()
	for id := 0; id < container.EncryptedPageCount; id++ {
		p, err := plain.Page(id)
		if err != nil {
			return nil, err
		}
		if err := mnycrypt.Apply(key, p.Bytes(), container.CipherStartOffset); err != nil {
			return nil, err
		}
	}
	plain.MarkDecrypted()
	if err := validate(plain); err != nil {
		return nil, err
	}
	return plain, nil
}

// validate accepts a plaintext image when the page-0 signature is present
// and the catalog parses and exposes the primary table.
func validate(plain *container.Container) error {
	if !plain.HasSignature() {
		return errors.NewUnsupportedFormat("plaintext signature missing")
	}
	cat, err := catalog.Open(plain)
	if err != nil {
		return err
	}
	if _, err := cat.Table(catalog.PrimaryTable); err != nil {
		return err
	}
	return nil
}
