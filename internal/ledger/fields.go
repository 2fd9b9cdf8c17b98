package ledger

import (
	"github.com/mnybridge/mnybridge/internal/rowcodec"
	"github.com/mnybridge/mnybridge/pkg/types"
)

// Encode-direction mappers: domain records to row fields under the column
// names the tables declare. Zero handles map to null; the GUID is always
// emitted, so callers assign one before encoding.

// AccountFields maps an account onto its row fields.
func AccountFields(a types.Account) rowcodec.Fields {
	f := rowcodec.Fields{
		"hacct":   a.ID,
		"szFull":  a.Name,
		"at":      a.Type,
		"fClosed": a.Closed,
		"amtOpen": a.OpeningBalance,
		"sguid":   a.GUID,
	}
	if a.Currency != 0 {
		f["hcrnc"] = a.Currency
	}
	return f
}

// TransactionFields maps a transaction onto its row fields.
func TransactionFields(t types.Transaction) rowcodec.Fields {
	f := rowcodec.Fields{
		"htrn":  t.ID,
		"hacct": t.Account,
		"dt":    t.Date,
		"amt":   t.Amount,
		"frq":   t.Frequency,
		"grftt": t.SplitFlag,
		"sguid": t.GUID,
	}
	if t.Category != nil {
		f["hcat"] = *t.Category
	}
	if t.Payee != nil {
		f["lHpay"] = *t.Payee
	}
	if t.RecurrenceInstance != nil {
		f["cFrqInst"] = *t.RecurrenceInstance
	}
	if t.Memo != "" {
		f["szMemo"] = t.Memo
	}
	return f
}

// CategoryFields maps a category onto its row fields.
func CategoryFields(c types.Category) rowcodec.Fields {
	f := rowcodec.Fields{"hcat": c.ID, "szFull": c.Name}
	if c.Parent != 0 {
		f["hcatParent"] = c.Parent
	}
	return f
}

// PayeeFields maps a payee onto its row fields.
func PayeeFields(p types.Payee) rowcodec.Fields {
	return rowcodec.Fields{"hpay": p.ID, "szFull": p.Name}
}
