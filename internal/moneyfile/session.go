// Package moneyfile is the top of the codec: one session per database image.
// Opening a session decrypts the file into a working copy; reads go through
// the ledger; appends mutate the working copy; Bytes and Save re-cipher the
// session back into the form the file arrived in.
package moneyfile

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mnybridge/mnybridge/internal/backup"
	"github.com/mnybridge/mnybridge/internal/catalog"
	"github.com/mnybridge/mnybridge/internal/container"
	"github.com/mnybridge/mnybridge/internal/decrypt"
	"github.com/mnybridge/mnybridge/internal/errors"
	"github.com/mnybridge/mnybridge/internal/ledger"
	"github.com/mnybridge/mnybridge/internal/mnycrypt"
	"github.com/mnybridge/mnybridge/internal/pagewriter"
	"github.com/mnybridge/mnybridge/internal/rowcodec"
	"github.com/mnybridge/mnybridge/pkg/types"
)

// Session is an open database image. Not safe for concurrent use; a session
// serves one caller at a time.
type Session struct {
	log *zap.Logger
	res *decrypt.Result
	led *ledger.Ledger
	loc *time.Location
}

// Option configures a session at open time.
type Option func(*Session)

// WithLogger attaches a logger; the default is a nop.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// Open decrypts raw and parses its catalog. The location interprets the
// file's wall-clock datetimes and is required; there is no default zone.
func Open(raw []byte, password string, loc *time.Location, opts ...Option) (*Session, error) {
	s := &Session{log: zap.NewNop(), loc: loc}
	for _, opt := range opts {
		opt(s)
	}

	res, err := decrypt.New().Open(raw, password)
	if err != nil {
		return nil, err
	}
	led, err := ledger.Open(res.Plain, loc)
	if err != nil {
		return nil, err
	}
	s.res = res
	s.led = led

	s.log.Info("opened database image",
		zap.Int("pages", res.Plain.PageCount()))
	return s, nil
}

// Accounts returns every account row.
func (s *Session) Accounts() ([]types.Account, error) { return s.led.Accounts() }

// Transactions returns every transaction row.
func (s *Session) Transactions() ([]types.Transaction, error) { return s.led.Transactions() }

// Categories returns every category row.
func (s *Session) Categories() ([]types.Category, error) { return s.led.Categories() }

// Payees returns every payee row.
func (s *Session) Payees() ([]types.Payee, error) { return s.led.Payees() }

// Balance computes the current balance of one account.
func (s *Session) Balance(accountID int32) (types.Amount, error) {
	accts, err := s.led.Accounts()
	if err != nil {
		return 0, err
	}
	for _, a := range accts {
		if a.ID != accountID {
			continue
		}
		txns, err := s.led.Transactions()
		if err != nil {
			return 0, err
		}
		return ledger.CurrentBalance(a, txns), nil
	}
	return 0, errors.NewAccountNotFound(accountID)
}

// CategoryPath renders the ancestry of one category.
func (s *Session) CategoryPath(categoryID int32) (string, error) {
	cats, err := s.led.Categories()
	if err != nil {
		return "", err
	}
	return ledger.CategoryPath(categoryID, cats)
}

// AppendTransaction inserts a posted transaction into the working copy and
// returns it with its assigned id and GUID. The insert claims space on an
// existing data page; the file never grows. Indexes are not maintained, so
// the needs-rebuild flag is set for the desktop product.
func (s *Session) AppendTransaction(t types.Transaction) (types.Transaction, error) {
	def, err := s.led.Catalog().Table(ledger.TransactionTable)
	if err != nil {
		return types.Transaction{}, err
	}

	assigned := false
	if t.ID == 0 {
		id, err := s.nextTransactionID(def)
		if err != nil {
			return types.Transaction{}, err
		}
		t.ID = id
		assigned = true
	}
	if t.GUID.IsZero() {
		t.GUID = types.NewGUID()
	}
	// An appended row is a posted fact, whatever the caller put in the
	// recurrence field.
	t.Frequency = types.FrequencyPosted

	cd := rowcodec.Codec{Location: s.loc}
	row, err := cd.Encode(def.Columns, ledger.TransactionFields(t))
	if err != nil {
		return types.Transaction{}, err
	}

	// The page search is the last step that can fail before any byte of the
	// working copy changes; an append that errors out leaves the container
	// exactly as it was.
	c := s.res.Plain
	page, err := pagewriter.FindPageWithSpace(c, def, len(row))
	if err != nil {
		return types.Transaction{}, err
	}
	if err := pagewriter.AppendRow(page, row); err != nil {
		return types.Transaction{}, err
	}
	if err := pagewriter.IncrementRowCount(c, def); err != nil {
		return types.Transaction{}, err
	}
	if assigned {
		if err := pagewriter.SetAutoNumber(c, def, t.ID+1); err != nil {
			return types.Transaction{}, err
		}
	}
	pagewriter.SetNeedsRebuild(c)

	s.log.Info("appended transaction",
		zap.Int32("id", t.ID),
		zap.Int32("account", t.Account),
		zap.String("amount", t.Amount.String()),
		zap.Int("page", page.ID()))
	return t, nil
}

// nextTransactionID picks the next unused record id without touching the
// definition page: the stored auto-number, or max+1 when the stored counter
// lags the rows actually present. The counter is written back only once the
// row has landed.
func (s *Session) nextTransactionID(def *catalog.TableDefinition) (int32, error) {
	txns, err := s.led.Transactions()
	if err != nil {
		return 0, err
	}
	var max int32
	for _, t := range txns {
		if t.ID > max {
			max = t.ID
		}
	}
	if id := def.NextAutoNumber; id > max {
		return id, nil
	}
	return max + 1, nil
}

// Bytes renders the session's current state in the source form: the header
// salt and flags restored and the encrypted prefix re-ciphered with the
// accepted key. With no writes in between, the output equals the input.
func (s *Session) Bytes() ([]byte, error) {
	dup := s.res.Plain.Clone()
	dup.SetSalt(s.res.Salt)
	dup.SetEncFlags(s.res.Flags)
	for id := 0; id < container.EncryptedPageCount; id++ {
		p, err := dup.Page(id)
		if err != nil {
			return nil, err
		}
		if err := mnycrypt.Apply(s.res.Key, p.Bytes(), container.CipherStartOffset); err != nil {
			return nil, err
		}
	}
	return dup.Bytes(), nil
}

// Save writes the rendered image over path in one atomic replace. When a
// backup store is given and path already holds a file, its bytes are backed
// up first.
func (s *Session) Save(path string, backups *backup.Store) error {
	if backups != nil {
		if prior, err := os.ReadFile(path); err == nil {
			bpath, err := backups.Write(path, prior)
			if err != nil {
				return err
			}
			s.log.Info("backed up previous image", zap.String("backup", bpath))
		}
	}

	out, err := s.Bytes()
	if err != nil {
		return err
	}
	c, err := container.New(out)
	if err != nil {
		return err
	}
	if err := c.SaveAtomic(path); err != nil {
		return errors.NewStorageError(errors.CodePutFailed, "save database image", err)
	}
	s.log.Info("saved database image", zap.String("path", path), zap.Int("bytes", len(out)))
	return nil
}
