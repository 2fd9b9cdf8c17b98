// Package pagewriter appends encoded rows to slotted data pages and keeps
// the table-definition bookkeeping in step. It only ever mutates in-memory
// container bytes; persisting the result is the caller's concern.
package pagewriter

import (
	"encoding/binary"

	"github.com/mnybridge/mnybridge/internal/catalog"
	"github.com/mnybridge/mnybridge/internal/container"
	"github.com/mnybridge/mnybridge/internal/errors"
)

// Bookkeeping offsets in a table-definition page.
const (
	rowCountOffset   = 16 // LE32
	autoNumberOffset = 20 // LE32
)

// Available returns the number of payload bytes an append could claim on the
// page: the gap between the free-space pointer and the directory, less the
// new directory entry and a two-byte guard so the regions never touch.
func Available(p container.Page) int {
	dirStart := container.PageSize - (int(p.RowCount())+1)*2
	return dirStart - int(p.FreePtr()) - 2
}

// FindPageWithSpace walks the table's data pages in container order and
// returns the first that can hold a row of the given size. Existing pages
// only; the writer never grows the file.
func FindPageWithSpace(c *container.Container, def *catalog.TableDefinition, needed int) (container.Page, error) {
	for _, id := range def.DataPages {
		p, err := c.Page(id)
		if err != nil {
			return container.Page{}, err
		}
		if Available(p) >= needed {
			return p, nil
		}
	}
	return container.Page{}, errors.NewOutOfSpace(def.Name, needed)
}

// AppendRow writes the encoded row at the free-space pointer and registers
// it in the directory. The caller has already sized the page via
// FindPageWithSpace.
func AppendRow(p container.Page, row []byte) error {
	if len(row) > Available(p) {
		return errors.New(errors.ErrCategoryPage, errors.CodeRowTooBig,
			"row does not fit the page it was placed on")
	}
	start := p.FreePtr()
	copy(p.Bytes()[start:], row)

	count := int(p.RowCount())
	p.SetDirectoryEntry(count, start)
	p.SetRowCount(uint16(count + 1))
	p.SetFreePtr(start + uint16(len(row)))
	return nil
}

// IncrementRowCount bumps the row counter on the table's definition page.
func IncrementRowCount(c *container.Container, def *catalog.TableDefinition) error {
	p, err := c.Page(def.DefPage)
	if err != nil {
		return err
	}
	buf := p.Bytes()
	n := binary.LittleEndian.Uint32(buf[rowCountOffset:]) + 1
	binary.LittleEndian.PutUint32(buf[rowCountOffset:], n)
	def.RowCount = n
	return nil
}

// BumpAutoNumber returns the table's next unused record id and advances the
// counter on the definition page.
func BumpAutoNumber(c *container.Container, def *catalog.TableDefinition) (int32, error) {
	p, err := c.Page(def.DefPage)
	if err != nil {
		return 0, err
	}
	buf := p.Bytes()
	id := int32(binary.LittleEndian.Uint32(buf[autoNumberOffset:]))
	binary.LittleEndian.PutUint32(buf[autoNumberOffset:], uint32(id+1))
	def.NextAutoNumber = id + 1
	return id, nil
}

// SetAutoNumber overwrites the table's next unused record id. Used when the
// stored counter has fallen behind the ids actually present.
func SetAutoNumber(c *container.Container, def *catalog.TableDefinition, next int32) error {
	p, err := c.Page(def.DefPage)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(p.Bytes()[autoNumberOffset:], uint32(next))
	def.NextAutoNumber = next
	return nil
}

// SetNeedsRebuild flags the database so the desktop application regenerates
// its indexes before trusting queries. Set after every append; the codec
// writes rows but never maintains index pages.
func SetNeedsRebuild(c *container.Container) {
	c.SetDBFlags(c.DBFlags() | container.DBFlagNeedsRebuild)
}
