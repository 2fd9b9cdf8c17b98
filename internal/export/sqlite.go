// Package export materializes a decoded database into SQLite, one table per
// catalog entry, for inspection with ordinary SQL tooling. The export is a
// one-way snapshot; nothing reads it back.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mnybridge/mnybridge/internal/catalog"
	"github.com/mnybridge/mnybridge/internal/container"
	"github.com/mnybridge/mnybridge/internal/errors"
	"github.com/mnybridge/mnybridge/internal/rowcodec"
	"github.com/mnybridge/mnybridge/pkg/types"
)

// ToSQLite writes every catalog table of the plaintext container into a
// SQLite database at path. An existing database is appended to; callers
// wanting a fresh snapshot pass a fresh path.
func ToSQLite(ctx context.Context, c *container.Container, loc *time.Location, path string) error {
	cat, err := catalog.Open(c)
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errors.NewStorageError(errors.CodePutFailed, "open export database", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError(errors.CodePutFailed, "begin export transaction", err)
	}
	defer tx.Rollback()

	cd := rowcodec.Codec{Location: loc}

	self, err := cat.Table(catalog.CatalogName)
	if err != nil {
		return err
	}
	if err := exportTable(ctx, tx, c, cd, self); err != nil {
		return err
	}

	for _, entry := range cat.Entries() {
		if entry.Type != catalog.EntryTypeTable {
			continue
		}
		def, err := cat.Table(entry.Name)
		if err != nil {
			return err
		}
		if err := exportTable(ctx, tx, c, cd, def); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError(errors.CodePutFailed, "commit export transaction", err)
	}
	return nil
}

func exportTable(ctx context.Context, tx *sql.Tx, c *container.Container, cd rowcodec.Codec, def *catalog.TableDefinition) error {
	cols := fixedColumns(def)
	if len(cols) == 0 {
		return nil
	}

	decls := make([]string, 0, len(cols))
	names := make([]string, 0, len(cols))
	marks := make([]string, 0, len(cols))
	for _, col := range cols {
		decls = append(decls, fmt.Sprintf("%q %s", col.Name, sqliteType(col.Type)))
		names = append(names, fmt.Sprintf("%q", col.Name))
		marks = append(marks, "?")
	}

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)", def.Name, strings.Join(decls, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return errors.NewStorageError(errors.CodePutFailed, "create export table", err)
	}

	insert := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		def.Name, strings.Join(names, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return errors.NewStorageError(errors.CodePutFailed, "prepare export insert", err)
	}
	defer stmt.Close()

	for _, pageID := range def.DataPages {
		p, err := c.Page(pageID)
		if err != nil {
			return err
		}
		for i := 0; i < int(p.RowCount()); i++ {
			raw, err := p.RowBytes(i)
			if err != nil {
				return err
			}
			fields, err := cd.Decode(def.Columns, raw)
			if err != nil {
				return err
			}
			args := make([]any, 0, len(cols))
			for _, col := range cols {
				args = append(args, sqliteValue(fields, col))
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return errors.NewStorageError(errors.CodePutFailed, "insert export row", err)
			}
		}
	}
	return nil
}

func fixedColumns(def *catalog.TableDefinition) []types.ColumnDef {
	out := make([]types.ColumnDef, 0, len(def.Columns))
	for _, col := range def.Columns {
		if col.IsFixed() {
			out = append(out, col)
		}
	}
	return out
}

// sqliteType maps a column tag onto a SQLite affinity. Currency stays in
// scaled integer units; datetimes and GUIDs export as text.
func sqliteType(tag types.TypeTag) string {
	switch tag {
	case types.TypeBool, types.TypeByte, types.TypeInt16, types.TypeInt32, types.TypeCurrency:
		return "INTEGER"
	case types.TypeFloat32, types.TypeFloat64:
		return "REAL"
	case types.TypeBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func sqliteValue(fields rowcodec.Fields, col types.ColumnDef) any {
	v, ok := fields[col.Name]
	if !ok {
		return nil
	}
	switch val := v.(type) {
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case byte:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case types.Amount:
		return int64(val)
	case float32:
		return float64(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case types.GUID:
		return val.String()
	default:
		return val
	}
}
