package moneyfile_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnybridge/mnybridge/internal/backup"
	"github.com/mnybridge/mnybridge/internal/errors"
	"github.com/mnybridge/mnybridge/internal/mdbtest"
	"github.com/mnybridge/mnybridge/internal/moneyfile"
	"github.com/mnybridge/mnybridge/pkg/types"
)

var testSalt = [4]byte{0x12, 0x34, 0x56, 0x78}

func testLoc() *time.Location {
	return time.FixedZone("CST", -6*3600)
}

func amount(t *testing.T, v float64) types.Amount {
	t.Helper()
	a, err := types.AmountFromFloat(v)
	require.NoError(t, err)
	return a
}

func encryptedFixture(t *testing.T) []byte {
	t.Helper()
	loc := testLoc()
	b := mdbtest.NewBuilder(loc)
	b.AddAccount(types.Account{ID: 1, Name: "Checking", OpeningBalance: amount(t, 1000), GUID: types.NewGUID()})
	b.AddTransaction(types.Transaction{
		ID: 5, Account: 1, Date: time.Date(2007, time.March, 1, 0, 0, 0, 0, loc),
		Amount: amount(t, 100), Frequency: types.FrequencyPosted, GUID: types.NewGUID(),
	})
	b.AddCategory(types.Category{ID: 200, Name: "Automobile", Parent: types.RootCategoryExpense})
	b.AddCategory(types.Category{ID: 201, Name: "Gasoline", Parent: 200})
	b.AddPayee(types.Payee{ID: 301, Name: "Gas Station"})
	return b.EncryptedBytes(testSalt)
}

func TestOpen_EncryptedImage(t *testing.T) {
	s, err := moneyfile.Open(encryptedFixture(t), "", testLoc())
	require.NoError(t, err)

	accts, err := s.Accounts()
	require.NoError(t, err)
	require.Len(t, accts, 1)
	assert.Equal(t, "Checking", accts[0].Name)
}

func TestBalanceAndCategoryPath(t *testing.T) {
	s, err := moneyfile.Open(encryptedFixture(t), "", testLoc())
	require.NoError(t, err)

	bal, err := s.Balance(1)
	require.NoError(t, err)
	assert.Equal(t, amount(t, 1100), bal)

	path, err := s.CategoryPath(201)
	require.NoError(t, err)
	assert.Equal(t, "Automobile : Gasoline", path)

	_, err = s.Balance(99)
	require.Error(t, err)
	assert.Equal(t, errors.CodeAccountNotFound, errors.GetCode(err))
}

func TestAppendTransaction_AssignsIDAndGUID(t *testing.T) {
	s, err := moneyfile.Open(encryptedFixture(t), "", testLoc())
	require.NoError(t, err)

	txn, err := s.AppendTransaction(types.Transaction{
		Account: 1,
		Date:    time.Date(2007, time.April, 2, 0, 0, 0, 0, testLoc()),
		Amount:  amount(t, -42.50),
		// deliberately scheduled-looking; the session posts it
		Frequency: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(6), txn.ID, "max existing id is 5")
	assert.False(t, txn.GUID.IsZero())
	assert.True(t, txn.Posted())

	txns, err := s.Transactions()
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, txn.GUID, txns[1].GUID)

	bal, err := s.Balance(1)
	require.NoError(t, err)
	assert.Equal(t, amount(t, 1057.50), bal)
}

func TestAppendTransaction_RoundTripsThroughEncryptedBytes(t *testing.T) {
	s, err := moneyfile.Open(encryptedFixture(t), "", testLoc())
	require.NoError(t, err)

	_, err = s.AppendTransaction(types.Transaction{
		Account: 1,
		Date:    time.Date(2007, time.April, 2, 0, 0, 0, 0, testLoc()),
		Amount:  amount(t, 10),
	})
	require.NoError(t, err)

	out, err := s.Bytes()
	require.NoError(t, err)

	// The rendered image is ciphered and reopens through the same path.
	reopened, err := moneyfile.Open(out, "", testLoc())
	require.NoError(t, err)

	bal, err := reopened.Balance(1)
	require.NoError(t, err)
	assert.Equal(t, amount(t, 1110), bal)

	txns, err := reopened.Transactions()
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestBytes_WithoutWritesMatchesSource(t *testing.T) {
	enc := encryptedFixture(t)
	s, err := moneyfile.Open(enc, "", testLoc())
	require.NoError(t, err)

	out, err := s.Bytes()
	require.NoError(t, err)
	assert.Equal(t, enc, out)
}

func TestSave_BacksUpAndReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.mny")
	enc := encryptedFixture(t)
	require.NoError(t, os.WriteFile(path, enc, 0o644))

	store, err := backup.NewStore(filepath.Join(dir, "backups"))
	require.NoError(t, err)

	s, err := moneyfile.Open(enc, "", testLoc())
	require.NoError(t, err)
	_, err = s.AppendTransaction(types.Transaction{
		Account: 1,
		Date:    time.Date(2007, time.May, 1, 0, 0, 0, 0, testLoc()),
		Amount:  amount(t, 1),
	})
	require.NoError(t, err)
	require.NoError(t, s.Save(path, store))

	// The saved file reopens with the new row.
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	reopened, err := moneyfile.Open(saved, "", testLoc())
	require.NoError(t, err)
	txns, err := reopened.Transactions()
	require.NoError(t, err)
	assert.Len(t, txns, 2)

	// The backup restores to the pre-write image.
	backups, err := store.List(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	prior, err := store.Restore(backups[0])
	require.NoError(t, err)
	assert.Equal(t, enc, prior)

	// No temp files left beside the target.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"ledger.mny", "backups"}, names)
}

func TestAppendTransaction_FailedAppendLeavesImageUntouched(t *testing.T) {
	s, err := moneyfile.Open(encryptedFixture(t), "", testLoc())
	require.NoError(t, err)

	txn := types.Transaction{
		Account: 1,
		Date:    time.Date(2007, time.June, 1, 0, 0, 0, 0, testLoc()),
		Amount:  amount(t, -1),
	}

	// Fill the table's data pages; snapshot before each attempt so the
	// first failure can be compared against the state it started from.
	var failed error
	var before []byte
	for i := 0; i < 200 && failed == nil; i++ {
		snap, err := s.Bytes()
		require.NoError(t, err)
		if _, err := s.AppendTransaction(txn); err != nil {
			failed = err
			before = snap
		}
	}
	require.Error(t, failed, "the fixture's data pages must eventually fill")
	assert.Equal(t, errors.CodeOutOfSpace, errors.GetCode(failed))

	after, err := s.Bytes()
	require.NoError(t, err)
	assert.Equal(t, before, after,
		"a failed append must not change the image, the definition page included")

	// The ids that landed are contiguous: the counter never ran ahead of
	// the rows, failed attempts included.
	reopened, err := moneyfile.Open(after, "", testLoc())
	require.NoError(t, err)
	txns, err := reopened.Transactions()
	require.NoError(t, err)
	for i, tx := range txns {
		assert.Equal(t, int32(5+i), tx.ID)
	}
}

func TestOpen_WrongShapeSurfacesUnsupported(t *testing.T) {
	_, err := moneyfile.Open(make([]byte, 100), "", testLoc())
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
}

func TestAppendTransaction_NeedsRebuildFlagInSavedImage(t *testing.T) {
	loc := testLoc()
	b := mdbtest.NewBuilder(loc)
	b.AddAccount(types.Account{ID: 1, Name: "Checking", GUID: types.NewGUID()})
	enc := b.EncryptedBytes(testSalt)

	s, err := moneyfile.Open(enc, "", loc)
	require.NoError(t, err)
	_, err = s.AppendTransaction(types.Transaction{
		Account: 1, Date: time.Date(2007, time.May, 1, 0, 0, 0, 0, loc), Amount: amount(t, 2),
	})
	require.NoError(t, err)

	out, err := s.Bytes()
	require.NoError(t, err)
	// db flags LE32 at 0x3C carry the rebuild bit
	assert.Equal(t, byte(0x02), out[0x3C]&0x02)
}
