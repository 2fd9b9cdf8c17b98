package export

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnybridge/mnybridge/internal/mdbtest"
	"github.com/mnybridge/mnybridge/pkg/types"
)

func TestToSQLite(t *testing.T) {
	loc := time.UTC
	b := mdbtest.NewBuilder(loc)
	b.AddAccount(types.Account{ID: 1, Name: "Checking", OpeningBalance: types.Amount(10000000), GUID: types.NewGUID()})
	b.AddTransaction(types.Transaction{
		ID: 5, Account: 1, Date: time.Date(2007, time.March, 1, 0, 0, 0, 0, loc),
		Amount: types.Amount(-123450), Frequency: types.FrequencyPosted, GUID: types.NewGUID(),
	})
	b.AddCategory(types.Category{ID: 200, Name: "Automobile", Parent: types.RootCategoryExpense})
	b.AddPayee(types.Payee{ID: 301, Name: "Gas Station"})

	path := filepath.Join(t.TempDir(), "export.db")
	require.NoError(t, ToSQLite(context.Background(), b.Container(), loc, path))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var name string
	var opening int64
	require.NoError(t, db.QueryRow(`SELECT "szFull", "amtOpen" FROM "ACCT"`).Scan(&name, &opening))
	assert.Equal(t, "Checking", name)
	assert.Equal(t, int64(10000000), opening, "currency exports in scaled units")

	var amt int64
	var dt string
	require.NoError(t, db.QueryRow(`SELECT "amt", "dt" FROM "TRN"`).Scan(&amt, &dt))
	assert.Equal(t, int64(-123450), amt)
	assert.Contains(t, dt, "2007-03-01")

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "CAT"`).Scan(&count))
	assert.Equal(t, 1, count)

	// The catalog itself is a table and exports too.
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "MSysObjects"`).Scan(&count))
	assert.Equal(t, 4, count)
}

func TestToSQLite_NullColumns(t *testing.T) {
	loc := time.UTC
	b := mdbtest.NewBuilder(loc)
	b.AddTransaction(types.Transaction{
		ID: 1, Account: 1, Date: time.Date(2007, time.March, 1, 0, 0, 0, 0, loc),
		Amount: types.Amount(100), Frequency: types.FrequencyPosted, GUID: types.NewGUID(),
	})

	path := filepath.Join(t.TempDir(), "export.db")
	require.NoError(t, ToSQLite(context.Background(), b.Container(), loc, path))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var hcat sql.NullInt64
	require.NoError(t, db.QueryRow(`SELECT "hcat" FROM "TRN"`).Scan(&hcat))
	assert.False(t, hcat.Valid, "null handles export as NULL")
}
