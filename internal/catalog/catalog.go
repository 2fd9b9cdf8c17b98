// Package catalog resolves table names to table definitions. The catalog is
// itself a table: its definition lives on a well-known page and its rows name
// every other table in the file together with the page its definition sits
// on. Data-page membership is discovered by scanning the container rather
// than trusting stored page lists, which go stale in practice.
package catalog

import (
	"fmt"

	"github.com/mnybridge/mnybridge/internal/container"
	"github.com/mnybridge/mnybridge/internal/errors"
	"github.com/mnybridge/mnybridge/internal/rowcodec"
	"github.com/mnybridge/mnybridge/pkg/types"
)

// CatalogPage is the page id the catalog's own definition lives on.
const CatalogPage = 2

// CatalogName is the name the catalog table gives itself.
const CatalogName = "MSysObjects"

// PrimaryTable is the table whose presence validates a decrypt attempt:
// every well-formed file has an account table.
const PrimaryTable = "ACCT"

// Entry type values in the catalog's Type column.
const (
	EntryTypeTable int32 = 1
)

// Catalog column names.
const (
	colName   = "Name"
	colType   = "Type"
	colPageID = "PageID"
)

// Entry is one catalog row: a named object and the page its definition
// occupies.
type Entry struct {
	Name   string
	Type   int32
	PageID int
}

// Catalog reads table definitions out of a plaintext container. Lookups are
// cached for the life of the catalog; reopen after structural writes.
type Catalog struct {
	c       *container.Container
	entries []Entry
	defs    map[string]*TableDefinition
}

// Open parses the catalog table and returns a resolver over it. The
// container must already be decrypted.
func Open(c *container.Container) (*Catalog, error) {
	self, err := readTableDef(c, CatalogPage)
	if err != nil {
		return nil, err
	}
	if self.Name != CatalogName {
		return nil, errors.NewInvalidFormat(
			fmt.Sprintf("catalog page names itself %q, want %q", self.Name, CatalogName))
	}
	self.DataPages = scanDataPages(c, CatalogPage)

	cat := &Catalog{c: c, defs: make(map[string]*TableDefinition)}
	// The catalog is not one of its own entries, but it resolves by name
	// like any other table.
	cat.defs[CatalogName] = self
	cd := rowcodec.Codec{} // the catalog has no datetime columns

	for _, pageID := range self.DataPages {
		p, err := c.Page(pageID)
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(p.RowCount()); i++ {
			raw, err := p.RowBytes(i)
			if err != nil {
				return nil, err
			}
			fields, err := cd.Decode(self.Columns, raw)
			if err != nil {
				return nil, err
			}
			cat.entries = append(cat.entries, Entry{
				Name:   fields.String(colName),
				Type:   fields.Int32(colType),
				PageID: int(fields.Int32(colPageID)),
			})
		}
	}
	return cat, nil
}

// Entries returns every catalog row in file order.
func (cat *Catalog) Entries() []Entry {
	return cat.entries
}

// Table resolves a table by name. The definition and its data-page list are
// read on first use and cached.
func (cat *Catalog) Table(name string) (*TableDefinition, error) {
	if def, ok := cat.defs[name]; ok {
		return def, nil
	}
	for _, e := range cat.entries {
		if e.Type != EntryTypeTable || e.Name != name {
			continue
		}
		def, err := readTableDef(cat.c, e.PageID)
		if err != nil {
			return nil, err
		}
		if def.Name != name {
			return nil, errors.NewInvalidFormat(
				fmt.Sprintf("catalog points %q at page %d, which names itself %q", name, e.PageID, def.Name))
		}
		def.DataPages = scanDataPages(cat.c, e.PageID)
		cat.defs[name] = def
		return def, nil
	}
	return nil, errors.NewTableNotFound(name)
}

// scanDataPages walks the whole container collecting data pages whose owner
// field points back at the given definition page.
func scanDataPages(c *container.Container, defPage int) []int {
	var pages []int
	for id := 0; id < c.PageCount(); id++ {
		p, err := c.Page(id)
		if err != nil {
			continue
		}
		if p.Type() == container.PageTypeData && int(p.Owner()) == defPage {
			pages = append(pages, id)
		}
	}
	return pages
}

// CatalogColumns is the fixed schema of the catalog table itself.
func CatalogColumns() []types.ColumnDef {
	return []types.ColumnDef{
		{Name: colName, Type: types.TypeText, Offset: 0, Size: 32},
		{Name: colType, Type: types.TypeInt32, Offset: 32, Size: 4},
		{Name: colPageID, Type: types.TypeInt32, Offset: 36, Size: 4},
	}
}

// EncodeEntry serializes one catalog row. Used when constructing containers.
func EncodeEntry(e Entry) ([]byte, error) {
	cd := rowcodec.Codec{}
	return cd.Encode(CatalogColumns(), rowcodec.Fields{
		colName:   e.Name,
		colType:   e.Type,
		colPageID: int32(e.PageID),
	})
}
