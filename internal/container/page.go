package container

import (
	"encoding/binary"
	"fmt"

	"github.com/mnybridge/mnybridge/internal/errors"
)

// PageType is the discriminator byte at offset 0 of every page.
type PageType byte

const (
	PageTypeFree     PageType = 0
	PageTypeData     PageType = 1
	PageTypeTableDef PageType = 2
)

// Page header layout. The row-offset directory grows backward from the
// final byte of the page, one LE16 entry per row, toward the free region.
const (
	PageHeaderSize = 8

	pageTypeOffset  = 0
	freePtrOffset   = 1 // LE16
	ownerOffset     = 3 // LE16, definition-page id of the owning table
	rowCountOffset  = 5 // LE16
)

// Page is a mutable view over one page of a container. The zero Page is
// invalid; obtain pages through Container.Page.
type Page struct {
	id  int
	buf []byte
}

// ID returns the page id within the container.
func (p Page) ID() int { return p.id }

// Bytes returns the live 4096-byte slice backing the page.
func (p Page) Bytes() []byte { return p.buf }

// Type returns the page type byte.
func (p Page) Type() PageType { return PageType(p.buf[pageTypeOffset]) }

// SetType writes the page type byte.
func (p Page) SetType(t PageType) { p.buf[pageTypeOffset] = byte(t) }

// FreePtr returns the free-space pointer: the offset at which the next row
// payload would be written.
func (p Page) FreePtr() uint16 {
	return binary.LittleEndian.Uint16(p.buf[freePtrOffset:])
}

// SetFreePtr writes the free-space pointer.
func (p Page) SetFreePtr(v uint16) {
	binary.LittleEndian.PutUint16(p.buf[freePtrOffset:], v)
}

// Owner returns the definition-page id of the table owning this data page.
func (p Page) Owner() uint16 {
	return binary.LittleEndian.Uint16(p.buf[ownerOffset:])
}

// SetOwner writes the owning definition-page id.
func (p Page) SetOwner(v uint16) {
	binary.LittleEndian.PutUint16(p.buf[ownerOffset:], v)
}

// RowCount returns the number of rows stored on the page.
func (p Page) RowCount() uint16 {
	return binary.LittleEndian.Uint16(p.buf[rowCountOffset:])
}

// SetRowCount writes the row count.
func (p Page) SetRowCount(v uint16) {
	binary.LittleEndian.PutUint16(p.buf[rowCountOffset:], v)
}

// DirectoryEntry returns the row-start offset recorded for row i. Entry i
// lives at PageSize-(i+1)*2.
func (p Page) DirectoryEntry(i int) uint16 {
	return binary.LittleEndian.Uint16(p.buf[PageSize-(i+1)*2:])
}

// SetDirectoryEntry records the row-start offset for row i.
func (p Page) SetDirectoryEntry(i int, off uint16) {
	binary.LittleEndian.PutUint16(p.buf[PageSize-(i+1)*2:], off)
}

// DirectoryStart returns the lowest byte offset occupied by the directory.
func (p Page) DirectoryStart() int {
	return PageSize - int(p.RowCount())*2
}

// RowBytes returns the payload of row i. Rows are laid out contiguously
// from the header toward the directory, so row i ends where row i+1 starts,
// and the last row ends at the free-space pointer.
func (p Page) RowBytes(i int) ([]byte, error) {
	count := int(p.RowCount())
	if i < 0 || i >= count {
		return nil, errors.NewInvalidFormat(
			fmt.Sprintf("row %d outside page %d with %d rows", i, p.id, count))
	}
	start := int(p.DirectoryEntry(i))
	end := int(p.FreePtr())
	if i+1 < count {
		end = int(p.DirectoryEntry(i + 1))
	}
	if start < PageHeaderSize || end < start || end > p.DirectoryStart() {
		return nil, errors.NewInvalidFormat(
			fmt.Sprintf("page %d row %d spans [%d,%d), directory starts at %d",
				p.id, i, start, end, p.DirectoryStart()))
	}
	return p.buf[start:end], nil
}

// InitData formats the page as an empty data page owned by the given
// definition page.
func (p Page) InitData(owner uint16) {
	for i := range p.buf {
		p.buf[i] = 0
	}
	p.SetType(PageTypeData)
	p.SetOwner(owner)
	p.SetFreePtr(PageHeaderSize)
	p.SetRowCount(0)
}
