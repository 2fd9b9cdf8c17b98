// Package container provides the byte-level view of one database file: the
// fixed page grid, the header fields the codec reads and writes, and the
// atomic persistence path. It knows layout, not meaning; catalog and row
// semantics live above it.
package container

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mnybridge/mnybridge/internal/errors"
)

const (
	// PageSize is the fixed page width; the file length is always an exact
	// multiple of it.
	PageSize = 4096

	// SaltOffset is the byte offset of the 4-byte header salt.
	SaltOffset = 114

	// EncFlagsOffset is the byte offset of the 32-bit LE encryption flags.
	EncFlagsOffset = 664

	// DBFlagsOffset is the byte offset of the 32-bit LE database flags.
	DBFlagsOffset = 0x3C

	// EncryptedPageCount is the number of leading pages the cipher covers
	// (pages 0 through 14 inclusive).
	EncryptedPageCount = 15

	// CipherStartOffset is the intra-page offset the cipher starts at;
	// bytes before it, including the page-0 signature, are never ciphered.
	CipherStartOffset = 745

	// SignatureOffset is where the plaintext format signature sits in page 0.
	SignatureOffset = 4
)

// Encryption flag bits at EncFlagsOffset.
const (
	// FlagDerivationSupported marks the key-derivation mode this codec
	// understands.
	FlagDerivationSupported = 0x20

	// FlagAlternateVariant marks the alternate encryption variant, which is
	// detected and rejected.
	FlagAlternateVariant = 0x06
)

// DBFlagNeedsRebuild tells the desktop application to regenerate indexes
// before trusting queries.
const DBFlagNeedsRebuild = 0x02

// Signature returns the expected plaintext signature bytes of page 0.
func Signature() []byte {
	return []byte("MSISAM Database\x00")
}

// Container is the in-memory byte image of one database file.
type Container struct {
	buf []byte
}

// New wraps raw file bytes. The length must be a non-zero multiple of the
// page size; anything else is InvalidFormat.
func New(raw []byte) (*Container, error) {
	if len(raw) == 0 || len(raw)%PageSize != 0 {
		return nil, errors.NewInvalidFormat(
			fmt.Sprintf("container length %d is not a multiple of %d", len(raw), PageSize))
	}
	return &Container{buf: raw}, nil
}

// Bytes returns the live backing buffer. Mutations through Page views are
// visible here.
func (c *Container) Bytes() []byte {
	return c.buf
}

// Clone returns a deep copy of the container.
func (c *Container) Clone() *Container {
	dup := make([]byte, len(c.buf))
	copy(dup, c.buf)
	return &Container{buf: dup}
}

// PageCount returns the number of pages in the container.
func (c *Container) PageCount() int {
	return len(c.buf) / PageSize
}

// Page returns a mutable view of page id.
func (c *Container) Page(id int) (Page, error) {
	if id < 0 || id >= c.PageCount() {
		return Page{}, errors.NewInvalidFormat(
			fmt.Sprintf("page %d outside container of %d pages", id, c.PageCount()))
	}
	return Page{id: id, buf: c.buf[id*PageSize : (id+1)*PageSize]}, nil
}

// Salt returns the 4-byte header salt.
func (c *Container) Salt() [4]byte {
	var s [4]byte
	copy(s[:], c.buf[SaltOffset:SaltOffset+4])
	return s
}

// SetSalt writes the header salt.
func (c *Container) SetSalt(s [4]byte) {
	copy(c.buf[SaltOffset:SaltOffset+4], s[:])
}

// EncFlags returns the 32-bit encryption flags field.
func (c *Container) EncFlags() uint32 {
	return binary.LittleEndian.Uint32(c.buf[EncFlagsOffset:])
}

// SetEncFlags writes the encryption flags field.
func (c *Container) SetEncFlags(v uint32) {
	binary.LittleEndian.PutUint32(c.buf[EncFlagsOffset:], v)
}

// DBFlags returns the 32-bit database flags field.
func (c *Container) DBFlags() uint32 {
	return binary.LittleEndian.Uint32(c.buf[DBFlagsOffset:])
}

// SetDBFlags writes the database flags field.
func (c *Container) SetDBFlags(v uint32) {
	binary.LittleEndian.PutUint32(c.buf[DBFlagsOffset:], v)
}

// HasSignature reports whether page 0 carries the plaintext signature.
func (c *Container) HasSignature() bool {
	sig := Signature()
	return string(c.buf[SignatureOffset:SignatureOffset+len(sig)]) == string(sig)
}

// WriteSignature stamps the plaintext signature into page 0.
func (c *Container) WriteSignature() {
	copy(c.buf[SignatureOffset:], Signature())
}

// MarkDecrypted zeroes the encryption flags and salt, marking the container
// as no longer encrypted.
func (c *Container) MarkDecrypted() {
	c.SetEncFlags(0)
	c.SetSalt([4]byte{})
}

// SaveAtomic persists the container with a single whole-file replace: the
// bytes land in a temp file in the target directory, then rename over the
// destination. No partial write is ever observable at path.
func (c *Container) SaveAtomic(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".mny-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(c.buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Load reads a container from disk.
func Load(path string) (*Container, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return New(raw)
}
