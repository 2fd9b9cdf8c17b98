package types

import "time"

// FrequencyPosted is the frequency value of a posted (non-scheduled)
// transaction. Any other value marks a future scheduled instance.
const FrequencyPosted = -1

// SplitDetailThreshold is the transaction-type flag value at and above which
// a row is a split-detail sub-row rather than a top-level transaction.
const SplitDetailThreshold = 64

// Reserved category roots. The two well-known roots anchor the category
// tree and are excluded from rendered paths.
const (
	RootCategoryIncome  int32 = 130
	RootCategoryExpense int32 = 131
)

// Account is one account row (ACCT).
type Account struct {
	// ID is the account handle (hacct)
	ID int32

	// Name is the full account name (szFull)
	Name string

	// Type is the account type code (at)
	Type int32

	// Closed reports whether the account has been closed (fClosed)
	Closed bool

	// OpeningBalance is the balance before any recorded transaction (amtOpen)
	OpeningBalance Amount

	// Currency is the currency handle (hcrnc)
	Currency int32

	// GUID is the stable record identifier (sguid)
	GUID GUID
}

// Transaction is one transaction row (TRN).
type Transaction struct {
	// ID is the transaction handle (htrn)
	ID int32

	// Account is the owning account handle (hacct)
	Account int32

	// Date is the transaction date (dt), wall-clock in the file's zone
	Date time.Time

	// Amount is the signed transaction amount (amt)
	Amount Amount

	// Category is the category handle (hcat); nil when uncategorized
	Category *int32

	// Payee is the payee handle (lHpay); nil when absent
	Payee *int32

	// Frequency is the recurrence frequency (frq); FrequencyPosted for
	// posted transactions
	Frequency int32

	// SplitFlag is the transaction-type bit set (grftt); values at or above
	// SplitDetailThreshold mark split-detail sub-rows
	SplitFlag int32

	// RecurrenceInstance is the instance number of a posted recurrence
	// (cFrqInst); nil for ordinary rows
	RecurrenceInstance *int32

	// Memo is the free-text memo (mMemo); best-effort, empty when the
	// column is variable-length in the source file
	Memo string

	// GUID is the stable record identifier (sguid)
	GUID GUID
}

// Posted reports whether the transaction has actually occurred, as opposed
// to being an unposted template of a scheduled recurrence.
func (t Transaction) Posted() bool {
	return t.Frequency == FrequencyPosted
}

// Category is one category row (CAT).
type Category struct {
	// ID is the category handle (hcat)
	ID int32

	// Name is the category display name (szFull)
	Name string

	// Parent is the parent category handle (hcatParent); a reserved root id
	// terminates the chain
	Parent int32
}

// Payee is one payee row (PAY).
type Payee struct {
	// ID is the payee handle (hpay)
	ID int32

	// Name is the payee display name (szFull)
	Name string
}
