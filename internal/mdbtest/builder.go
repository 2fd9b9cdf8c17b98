// Package mdbtest builds small but structurally complete database images for
// tests: signature, catalog, table definitions, slotted data pages, and an
// optional encrypted rendering. Tests construct a Builder, add records, and
// take either the plaintext or the ciphered bytes.
package mdbtest

import (
	"fmt"
	"time"

	"github.com/mnybridge/mnybridge/internal/catalog"
	"github.com/mnybridge/mnybridge/internal/container"
	"github.com/mnybridge/mnybridge/internal/ledger"
	"github.com/mnybridge/mnybridge/internal/mnycrypt"
	"github.com/mnybridge/mnybridge/internal/pagewriter"
	"github.com/mnybridge/mnybridge/internal/rowcodec"
	"github.com/mnybridge/mnybridge/pkg/types"
)

// Fixture page assignments. Pages 0 and 1 stay header-only, page 2 is the
// catalog by contract, and data pages for the domain tables sit past the
// encrypted prefix so plaintext fixtures and their ciphered renderings share
// row bytes there.
const (
	CatalogDataPage = 3

	AccountDefPage     = 4
	TransactionDefPage = 5
	CategoryDefPage    = 6
	PayeeDefPage       = 7

	AccountDataPage      = 15
	TransactionDataPage  = 16
	TransactionSparePage = 17
	CategoryDataPage     = 18
	PayeeDataPage        = 19

	FixturePages = 20
)

// Domain table names, re-exported for fixtures.
const (
	TransactionTable = ledger.TransactionTable
	CategoryTable    = ledger.CategoryTable
	PayeeTable       = ledger.PayeeTable
)

// AccountColumns is the fixture schema of the account table.
func AccountColumns() []types.ColumnDef {
	return []types.ColumnDef{
		{Name: "hacct", Type: types.TypeInt32, Offset: 0, Size: 4},
		{Name: "szFull", Type: types.TypeText, Offset: 4, Size: 32},
		{Name: "at", Type: types.TypeInt32, Offset: 36, Size: 4},
		{Name: "fClosed", Type: types.TypeBool, Offset: 40, Size: 1},
		{Name: "amtOpen", Type: types.TypeCurrency, Offset: 41, Size: 8},
		{Name: "hcrnc", Type: types.TypeInt32, Nullable: true, Offset: 49, Size: 4},
		{Name: "sguid", Type: types.TypeGUID, Offset: 53, Size: 16},
	}
}

// TransactionColumns is the fixture schema of the transaction table.
func TransactionColumns() []types.ColumnDef {
	return []types.ColumnDef{
		{Name: "htrn", Type: types.TypeInt32, Offset: 0, Size: 4},
		{Name: "hacct", Type: types.TypeInt32, Offset: 4, Size: 4},
		{Name: "dt", Type: types.TypeDateTime, Offset: 8, Size: 8},
		{Name: "amt", Type: types.TypeCurrency, Offset: 16, Size: 8},
		{Name: "hcat", Type: types.TypeInt32, Nullable: true, Offset: 24, Size: 4},
		{Name: "lHpay", Type: types.TypeInt32, Nullable: true, Offset: 28, Size: 4},
		{Name: "frq", Type: types.TypeInt32, Offset: 32, Size: 4},
		{Name: "grftt", Type: types.TypeInt32, Offset: 36, Size: 4},
		{Name: "cFrqInst", Type: types.TypeInt32, Nullable: true, Offset: 40, Size: 4},
		{Name: "szMemo", Type: types.TypeText, Nullable: true, Offset: 44, Size: 32},
		{Name: "sguid", Type: types.TypeGUID, Offset: 76, Size: 16},
		{Name: "mMemo", Type: types.TypeMemo, Nullable: true, Variable: true},
	}
}

// CategoryColumns is the fixture schema of the category table.
func CategoryColumns() []types.ColumnDef {
	return []types.ColumnDef{
		{Name: "hcat", Type: types.TypeInt32, Offset: 0, Size: 4},
		{Name: "szFull", Type: types.TypeText, Offset: 4, Size: 32},
		{Name: "hcatParent", Type: types.TypeInt32, Nullable: true, Offset: 36, Size: 4},
	}
}

// PayeeColumns is the fixture schema of the payee table.
func PayeeColumns() []types.ColumnDef {
	return []types.ColumnDef{
		{Name: "hpay", Type: types.TypeInt32, Offset: 0, Size: 4},
		{Name: "szFull", Type: types.TypeText, Offset: 4, Size: 32},
	}
}

// Builder accumulates records into a plaintext container.
type Builder struct {
	c    *container.Container
	loc  *time.Location
	defs map[string]*catalog.TableDefinition
}

// NewBuilder lays out an empty fixture: plaintext signature, catalog table
// on its well-known page, the four domain tables, and formatted data pages.
// Row datetimes are encoded in loc.
func NewBuilder(loc *time.Location) *Builder {
	c, err := container.New(make([]byte, FixturePages*container.PageSize))
	if err != nil {
		panic(err)
	}
	c.WriteSignature()

	b := &Builder{c: c, loc: loc, defs: make(map[string]*catalog.TableDefinition)}

	b.defineTable(&catalog.TableDefinition{
		Name: catalog.CatalogName, DefPage: catalog.CatalogPage,
		Columns: catalog.CatalogColumns(), NextAutoNumber: 1,
	}, CatalogDataPage)
	b.defineTable(&catalog.TableDefinition{
		Name: catalog.PrimaryTable, DefPage: AccountDefPage,
		Columns: AccountColumns(), NextAutoNumber: 1,
	}, AccountDataPage)
	b.defineTable(&catalog.TableDefinition{
		Name: TransactionTable, DefPage: TransactionDefPage,
		Columns: TransactionColumns(), NextAutoNumber: 1,
	}, TransactionDataPage, TransactionSparePage)
	b.defineTable(&catalog.TableDefinition{
		Name: CategoryTable, DefPage: CategoryDefPage,
		Columns: CategoryColumns(), NextAutoNumber: 1,
	}, CategoryDataPage)
	b.defineTable(&catalog.TableDefinition{
		Name: PayeeTable, DefPage: PayeeDefPage,
		Columns: PayeeColumns(), NextAutoNumber: 1,
	}, PayeeDataPage)

	for _, name := range []string{catalog.PrimaryTable, TransactionTable, CategoryTable, PayeeTable} {
		row, err := catalog.EncodeEntry(catalog.Entry{
			Name: name, Type: catalog.EntryTypeTable, PageID: b.defs[name].DefPage,
		})
		if err != nil {
			panic(err)
		}
		b.appendRaw(catalog.CatalogName, row)
	}
	return b
}

func (b *Builder) defineTable(def *catalog.TableDefinition, dataPages ...int) {
	if err := catalog.WriteTableDef(b.c, def); err != nil {
		panic(err)
	}
	for _, id := range dataPages {
		p, err := b.c.Page(id)
		if err != nil {
			panic(err)
		}
		p.InitData(uint16(def.DefPage))
	}
	def.DataPages = dataPages
	b.defs[def.Name] = def
}

func (b *Builder) appendRaw(table string, row []byte) {
	def := b.defs[table]
	p, err := pagewriter.FindPageWithSpace(b.c, def, len(row))
	if err != nil {
		panic(err)
	}
	if err := pagewriter.AppendRow(p, row); err != nil {
		panic(err)
	}
	if err := pagewriter.IncrementRowCount(b.c, def); err != nil {
		panic(err)
	}
}

func (b *Builder) append(table string, fields rowcodec.Fields, id int32) {
	def := b.defs[table]
	cd := rowcodec.Codec{Location: b.loc}
	row, err := cd.Encode(def.Columns, fields)
	if err != nil {
		panic(fmt.Sprintf("encode %s row: %v", table, err))
	}
	b.appendRaw(table, row)
	if id >= def.NextAutoNumber {
		def.NextAutoNumber = id + 1
		if err := catalog.WriteTableDef(b.c, def); err != nil {
			panic(err)
		}
	}
}

// AddAccount appends one account row.
func (b *Builder) AddAccount(a types.Account) {
	b.append(catalog.PrimaryTable, ledger.AccountFields(a), a.ID)
}

// AddTransaction appends one transaction row.
func (b *Builder) AddTransaction(t types.Transaction) {
	b.append(TransactionTable, ledger.TransactionFields(t), t.ID)
}

// AddCategory appends one category row.
func (b *Builder) AddCategory(c types.Category) {
	b.append(CategoryTable, ledger.CategoryFields(c), c.ID)
}

// AddPayee appends one payee row.
func (b *Builder) AddPayee(p types.Payee) {
	b.append(PayeeTable, ledger.PayeeFields(p), p.ID)
}

// Container returns the live plaintext container.
func (b *Builder) Container() *container.Container {
	return b.c
}

// Bytes returns a copy of the plaintext image.
func (b *Builder) Bytes() []byte {
	return b.c.Clone().Bytes()
}

// EncryptedBytes returns a copy of the image ciphered with the first derived
// key candidate for the given salt.
func (b *Builder) EncryptedBytes(salt [4]byte) []byte {
	return b.EncryptedBytesWithCandidate(salt, 0)
}

// EncryptedBytesWithCandidate ciphers with the n-th derived key candidate,
// for exercising the candidate search past its first guess.
func (b *Builder) EncryptedBytesWithCandidate(salt [4]byte, n int) []byte {
	dup := b.c.Clone()
	dup.SetSalt(salt)
	dup.SetEncFlags(container.FlagDerivationSupported)

	key := mnycrypt.Candidates(salt)[n]
	for id := 0; id < container.EncryptedPageCount; id++ {
		p, err := dup.Page(id)
		if err != nil {
			panic(err)
		}
		if err := mnycrypt.Apply(key, p.Bytes(), container.CipherStartOffset); err != nil {
			panic(err)
		}
	}
	return dup.Bytes()
}
