// Package ledger maps decoded rows onto the domain records and implements
// the arithmetic over them: account balances and category paths. It reads
// through the catalog and never touches page bytes directly.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/mnybridge/mnybridge/internal/catalog"
	"github.com/mnybridge/mnybridge/internal/container"
	"github.com/mnybridge/mnybridge/internal/errors"
	"github.com/mnybridge/mnybridge/internal/rowcodec"
	"github.com/mnybridge/mnybridge/pkg/types"
)

// Domain table names. The account table name lives in catalog because the
// decryptor validates against it.
const (
	TransactionTable = "TRN"
	CategoryTable    = "CAT"
	PayeeTable       = "PAY"
)

// Ledger reads domain records out of a plaintext container. Row datetimes
// are interpreted in the location given at open time.
type Ledger struct {
	c   *container.Container
	cat *catalog.Catalog
	cd  rowcodec.Codec
}

// Open parses the catalog and returns a reader over the domain tables.
func Open(c *container.Container, loc *time.Location) (*Ledger, error) {
	if loc == nil {
		return nil, errors.NewInvalidFormat("a timezone is required to interpret row datetimes")
	}
	cat, err := catalog.Open(c)
	if err != nil {
		return nil, err
	}
	return &Ledger{c: c, cat: cat, cd: rowcodec.Codec{Location: loc}}, nil
}

// Catalog exposes the underlying resolver.
func (l *Ledger) Catalog() *catalog.Catalog {
	return l.cat
}

// rows decodes every row of the named table in page order.
func (l *Ledger) rows(table string) ([]rowcodec.Fields, *catalog.TableDefinition, error) {
	def, err := l.cat.Table(table)
	if err != nil {
		return nil, nil, err
	}
	var out []rowcodec.Fields
	for _, id := range def.DataPages {
		p, err := l.c.Page(id)
		if err != nil {
			return nil, nil, err
		}
		for i := 0; i < int(p.RowCount()); i++ {
			raw, err := p.RowBytes(i)
			if err != nil {
				return nil, nil, err
			}
			fields, err := l.cd.Decode(def.Columns, raw)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, fields)
		}
	}
	return out, def, nil
}

// Accounts returns every account row.
func (l *Ledger) Accounts() ([]types.Account, error) {
	rows, _, err := l.rows(catalog.PrimaryTable)
	if err != nil {
		return nil, err
	}
	out := make([]types.Account, 0, len(rows))
	for _, f := range rows {
		out = append(out, types.Account{
			ID:             f.Int32("hacct"),
			Name:           f.String("szFull"),
			Type:           f.Int32("at"),
			Closed:         f.Bool("fClosed"),
			OpeningBalance: f.Amount("amtOpen"),
			Currency:       f.Int32("hcrnc"),
			GUID:           f.GUID("sguid"),
		})
	}
	return out, nil
}

// Transactions returns every transaction row, posted and scheduled alike.
func (l *Ledger) Transactions() ([]types.Transaction, error) {
	rows, _, err := l.rows(TransactionTable)
	if err != nil {
		return nil, err
	}
	out := make([]types.Transaction, 0, len(rows))
	for _, f := range rows {
		out = append(out, types.Transaction{
			ID:                 f.Int32("htrn"),
			Account:            f.Int32("hacct"),
			Date:               f.Time("dt"),
			Amount:             f.Amount("amt"),
			Category:           f.Int32Ptr("hcat"),
			Payee:              f.Int32Ptr("lHpay"),
			Frequency:          f.Int32("frq"),
			SplitFlag:          f.Int32("grftt"),
			RecurrenceInstance: f.Int32Ptr("cFrqInst"),
			Memo:               f.String("szMemo"),
			GUID:               f.GUID("sguid"),
		})
	}
	return out, nil
}

// Categories returns every category row.
func (l *Ledger) Categories() ([]types.Category, error) {
	rows, _, err := l.rows(CategoryTable)
	if err != nil {
		return nil, err
	}
	out := make([]types.Category, 0, len(rows))
	for _, f := range rows {
		out = append(out, types.Category{
			ID:     f.Int32("hcat"),
			Name:   f.String("szFull"),
			Parent: f.Int32("hcatParent"),
		})
	}
	return out, nil
}

// Payees returns every payee row.
func (l *Ledger) Payees() ([]types.Payee, error) {
	rows, _, err := l.rows(PayeeTable)
	if err != nil {
		return nil, err
	}
	out := make([]types.Payee, 0, len(rows))
	for _, f := range rows {
		out = append(out, types.Payee{ID: f.Int32("hpay"), Name: f.String("szFull")})
	}
	return out, nil
}

// Counted reports whether a transaction contributes to its account balance:
// it must be posted, and must not be a split-detail sub-row unless it is a
// materialized recurrence instance.
func Counted(t types.Transaction) bool {
	if !t.Posted() {
		return false
	}
	return t.SplitFlag < types.SplitDetailThreshold || t.RecurrenceInstance != nil
}

// CurrentBalance folds the counted transactions of one account over its
// opening balance.
func CurrentBalance(acct types.Account, txns []types.Transaction) types.Amount {
	balance := acct.OpeningBalance
	for _, t := range txns {
		if t.Account != acct.ID {
			continue
		}
		if Counted(t) {
			balance += t.Amount
		}
	}
	return balance
}

// CategoryPath renders the ancestry of a category as "Parent : Child",
// walking parent handles up to, and excluding, the reserved income and
// expense roots. A cycle or a dangling parent handle is InvalidFormat.
func CategoryPath(id int32, all []types.Category) (string, error) {
	byID := make(map[int32]types.Category, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}

	var parts []string
	seen := make(map[int32]bool)
	for cur := id; cur != 0 && cur != types.RootCategoryIncome && cur != types.RootCategoryExpense; {
		if seen[cur] {
			return "", errors.NewInvalidFormat(
				fmt.Sprintf("category %d is part of a parent cycle", id))
		}
		seen[cur] = true
		c, ok := byID[cur]
		if !ok {
			return "", errors.NewInvalidFormat(
				fmt.Sprintf("category %d references missing category %d", id, cur))
		}
		parts = append([]string{c.Name}, parts...)
		cur = c.Parent
	}
	return strings.Join(parts, " : "), nil
}
