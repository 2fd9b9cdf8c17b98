package catalog

import (
	"encoding/binary"
	"fmt"

	"github.com/mnybridge/mnybridge/internal/container"
	"github.com/mnybridge/mnybridge/internal/errors"
	"github.com/mnybridge/mnybridge/internal/rowcodec"
	"github.com/mnybridge/mnybridge/pkg/types"
)

// Table definition page layout. The page type byte is
// container.PageTypeTableDef; bookkeeping fields sit at fixed offsets and
// the column list follows the table name.
const (
	tdefRowCountOffset   = 16 // LE32
	tdefAutoNumberOffset = 20 // LE32
	tdefColCountOffset   = 24 // LE16
	tdefNameOffset       = 26 // u8 length + bytes, columns follow
)

// TableDefinition is the schema plus bookkeeping of one table, read once at
// lookup time and cached as a value. Data-page membership is derived from
// the page scan, never from hard-coded page lists.
type TableDefinition struct {
	// Name is the table name from the definition page
	Name string

	// DefPage is the definition page id
	DefPage int

	// Columns is the declared column list in schema order
	Columns []types.ColumnDef

	// RowCount is the bookkeeping row counter from the definition page
	RowCount uint32

	// NextAutoNumber is the next unused record id
	NextAutoNumber int32

	// DataPages lists the ids of data pages owned by this table, in
	// container order
	DataPages []int
}

// Column returns the named column definition.
func (d *TableDefinition) Column(name string) (types.ColumnDef, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return types.ColumnDef{}, false
}

// FixedRowSize returns the encoded size of one row of this table: the null
// bitmap plus the fixed region.
func (d *TableDefinition) FixedRowSize() int {
	width := 0
	for _, c := range d.Columns {
		if c.IsFixed() {
			if end := int(c.Offset) + int(c.Size); end > width {
				width = end
			}
		}
	}
	return rowcodec.BitmapSize + width
}

// readTableDef parses the definition page at the given id.
func readTableDef(c *container.Container, pageID int) (*TableDefinition, error) {
	p, err := c.Page(pageID)
	if err != nil {
		return nil, err
	}
	if p.Type() != container.PageTypeTableDef {
		return nil, errors.NewInvalidFormat(
			fmt.Sprintf("page %d has type %d, want table definition", pageID, p.Type()))
	}
	buf := p.Bytes()

	def := &TableDefinition{
		DefPage:        pageID,
		RowCount:       binary.LittleEndian.Uint32(buf[tdefRowCountOffset:]),
		NextAutoNumber: int32(binary.LittleEndian.Uint32(buf[tdefAutoNumberOffset:])),
	}

	colCount := int(binary.LittleEndian.Uint16(buf[tdefColCountOffset:]))
	pos := tdefNameOffset

	name, pos, err := readString(buf, pos, pageID)
	if err != nil {
		return nil, err
	}
	def.Name = name

	for i := 0; i < colCount; i++ {
		colName, next, err := readString(buf, pos, pageID)
		if err != nil {
			return nil, err
		}
		pos = next
		if pos+6 > len(buf) {
			return nil, errors.NewInvalidFormat(
				fmt.Sprintf("page %d: column %q spec truncated", pageID, colName))
		}
		def.Columns = append(def.Columns, types.ColumnDef{
			Name:     colName,
			Type:     types.TypeTag(buf[pos]),
			Nullable: buf[pos+1]&colFlagNullable != 0,
			Variable: buf[pos+1]&colFlagVariable != 0,
			Offset:   binary.LittleEndian.Uint16(buf[pos+2:]),
			Size:     binary.LittleEndian.Uint16(buf[pos+4:]),
		})
		pos += 6
	}

	return def, nil
}

// Column flag bits in the definition entry.
const (
	colFlagNullable = 0x01
	colFlagVariable = 0x02
)

func readString(buf []byte, pos, pageID int) (string, int, error) {
	if pos >= len(buf) {
		return "", 0, errors.NewInvalidFormat(
			fmt.Sprintf("page %d: definition truncated at %d", pageID, pos))
	}
	n := int(buf[pos])
	pos++
	if pos+n > len(buf) {
		return "", 0, errors.NewInvalidFormat(
			fmt.Sprintf("page %d: string of %d bytes truncated at %d", pageID, n, pos))
	}
	return string(buf[pos : pos+n]), pos + n, nil
}

// WriteTableDef serializes a definition onto its page, replacing whatever
// was there. Used when constructing containers; the read path never calls
// it.
func WriteTableDef(c *container.Container, def *TableDefinition) error {
	p, err := c.Page(def.DefPage)
	if err != nil {
		return err
	}
	buf := p.Bytes()
	for i := range buf {
		buf[i] = 0
	}
	p.SetType(container.PageTypeTableDef)
	binary.LittleEndian.PutUint32(buf[tdefRowCountOffset:], def.RowCount)
	binary.LittleEndian.PutUint32(buf[tdefAutoNumberOffset:], uint32(def.NextAutoNumber))
	binary.LittleEndian.PutUint16(buf[tdefColCountOffset:], uint16(len(def.Columns)))

	pos := tdefNameOffset
	pos, err = writeString(buf, pos, def.Name)
	if err != nil {
		return err
	}
	for _, col := range def.Columns {
		pos, err = writeString(buf, pos, col.Name)
		if err != nil {
			return err
		}
		if pos+6 > len(buf) {
			return errors.NewInvalidFormat("table definition does not fit its page")
		}
		buf[pos] = byte(col.Type)
		var flags byte
		if col.Nullable {
			flags |= colFlagNullable
		}
		if col.Variable {
			flags |= colFlagVariable
		}
		buf[pos+1] = flags
		binary.LittleEndian.PutUint16(buf[pos+2:], col.Offset)
		binary.LittleEndian.PutUint16(buf[pos+4:], col.Size)
		pos += 6
	}
	return nil
}

func writeString(buf []byte, pos int, s string) (int, error) {
	if len(s) > 255 || pos+1+len(s) > len(buf) {
		return 0, errors.NewInvalidFormat(fmt.Sprintf("string %q does not fit definition page", s))
	}
	buf[pos] = byte(len(s))
	copy(buf[pos+1:], s)
	return pos + 1 + len(s), nil
}
