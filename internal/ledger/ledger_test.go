package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnybridge/mnybridge/internal/errors"
	"github.com/mnybridge/mnybridge/internal/ledger"
	"github.com/mnybridge/mnybridge/internal/mdbtest"
	"github.com/mnybridge/mnybridge/pkg/types"
)

func i32(v int32) *int32 { return &v }

func amount(t *testing.T, s float64) types.Amount {
	t.Helper()
	a, err := types.AmountFromFloat(s)
	require.NoError(t, err)
	return a
}

func fixtureLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	loc := time.FixedZone("CST", -6*3600)
	b := mdbtest.NewBuilder(loc)

	b.AddAccount(types.Account{
		ID: 1, Name: "Checking", OpeningBalance: amount(t, 1000), GUID: types.NewGUID(),
	})
	b.AddAccount(types.Account{
		ID: 2, Name: "Savings", OpeningBalance: amount(t, 50), Closed: true, GUID: types.NewGUID(),
	})

	day := func(d int) time.Time { return time.Date(2007, time.March, d, 0, 0, 0, 0, loc) }

	// Posted deposit: counted.
	b.AddTransaction(types.Transaction{
		ID: 10, Account: 1, Date: day(1), Amount: amount(t, 100),
		Frequency: types.FrequencyPosted, Payee: i32(301), GUID: types.NewGUID(),
	})
	// Scheduled template: not counted.
	b.AddTransaction(types.Transaction{
		ID: 11, Account: 1, Date: day(2), Amount: amount(t, -500),
		Frequency: 3, GUID: types.NewGUID(),
	})
	// Split detail with no recurrence instance: not counted.
	b.AddTransaction(types.Transaction{
		ID: 12, Account: 1, Date: day(3), Amount: amount(t, -75),
		Frequency: types.FrequencyPosted, SplitFlag: types.SplitDetailThreshold,
		Category: i32(201), GUID: types.NewGUID(),
	})
	// Other account: ignored for account 1.
	b.AddTransaction(types.Transaction{
		ID: 13, Account: 2, Date: day(4), Amount: amount(t, 25),
		Frequency: types.FrequencyPosted, GUID: types.NewGUID(),
	})

	b.AddCategory(types.Category{ID: 200, Name: "Automobile", Parent: types.RootCategoryExpense})
	b.AddCategory(types.Category{ID: 201, Name: "Gasoline", Parent: 200})
	b.AddCategory(types.Category{ID: 210, Name: "Wages", Parent: types.RootCategoryIncome})
	b.AddPayee(types.Payee{ID: 301, Name: "Gas Station"})

	l, err := ledger.Open(b.Container(), loc)
	require.NoError(t, err)
	return l
}

func TestAccounts(t *testing.T) {
	l := fixtureLedger(t)
	accts, err := l.Accounts()
	require.NoError(t, err)
	require.Len(t, accts, 2)

	assert.Equal(t, "Checking", accts[0].Name)
	assert.Equal(t, amount(t, 1000), accts[0].OpeningBalance)
	assert.False(t, accts[0].Closed)
	assert.True(t, accts[1].Closed)
	assert.False(t, accts[0].GUID.IsZero())
}

func TestTransactions(t *testing.T) {
	l := fixtureLedger(t)
	txns, err := l.Transactions()
	require.NoError(t, err)
	require.Len(t, txns, 4)

	first := txns[0]
	assert.Equal(t, int32(10), first.ID)
	assert.True(t, first.Posted())
	assert.Nil(t, first.Category)
	require.NotNil(t, first.Payee)
	assert.Equal(t, int32(301), *first.Payee)
	assert.True(t, first.Date.Equal(time.Date(2007, time.March, 1, 0, 0, 0, 0, first.Date.Location())))

	assert.False(t, txns[1].Posted())
	require.NotNil(t, txns[2].Category)
	assert.Equal(t, int32(201), *txns[2].Category)
}

func TestCurrentBalance(t *testing.T) {
	l := fixtureLedger(t)
	accts, err := l.Accounts()
	require.NoError(t, err)
	txns, err := l.Transactions()
	require.NoError(t, err)

	// Opening 1000 plus the single counted deposit of 100. The scheduled
	// template and the bare split detail contribute nothing.
	assert.Equal(t, amount(t, 1100), ledger.CurrentBalance(accts[0], txns))
	assert.Equal(t, amount(t, 75), ledger.CurrentBalance(accts[1], txns))
}

func TestCounted_SplitDetailWithInstance(t *testing.T) {
	txn := types.Transaction{
		Frequency: types.FrequencyPosted,
		SplitFlag: types.SplitDetailThreshold,
	}
	assert.False(t, ledger.Counted(txn))

	txn.RecurrenceInstance = i32(1)
	assert.True(t, ledger.Counted(txn), "a materialized recurrence instance counts")
}

func TestCategoryPath(t *testing.T) {
	l := fixtureLedger(t)
	cats, err := l.Categories()
	require.NoError(t, err)

	path, err := ledger.CategoryPath(201, cats)
	require.NoError(t, err)
	assert.Equal(t, "Automobile : Gasoline", path)

	path, err = ledger.CategoryPath(210, cats)
	require.NoError(t, err)
	assert.Equal(t, "Wages", path, "income root is excluded")
}

func TestCategoryPath_CycleGuard(t *testing.T) {
	cats := []types.Category{
		{ID: 1, Name: "A", Parent: 2},
		{ID: 2, Name: "B", Parent: 1},
	}
	_, err := ledger.CategoryPath(1, cats)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidFormat, errors.GetCode(err))
}

func TestCategoryPath_MissingParent(t *testing.T) {
	cats := []types.Category{{ID: 1, Name: "A", Parent: 99}}
	_, err := ledger.CategoryPath(1, cats)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidFormat, errors.GetCode(err))
}

func TestPayees(t *testing.T) {
	l := fixtureLedger(t)
	pays, err := l.Payees()
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.Equal(t, "Gas Station", pays[0].Name)
}

func TestOpen_RequiresLocation(t *testing.T) {
	b := mdbtest.NewBuilder(time.UTC)
	_, err := ledger.Open(b.Container(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidFormat, errors.GetCode(err))
}
