package decrypt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnybridge/mnybridge/internal/container"
	"github.com/mnybridge/mnybridge/internal/decrypt"
	"github.com/mnybridge/mnybridge/internal/errors"
	"github.com/mnybridge/mnybridge/internal/mdbtest"
	"github.com/mnybridge/mnybridge/internal/observability"
	"github.com/mnybridge/mnybridge/pkg/types"
)

var fixtureSalt = [4]byte{0xA1, 0xB2, 0xC3, 0xD4}

func fixture(t *testing.T) *mdbtest.Builder {
	t.Helper()
	b := mdbtest.NewBuilder(time.UTC)
	b.AddAccount(types.Account{ID: 1, Name: "Checking", OpeningBalance: types.Amount(5000000)})
	return b
}

func TestDecrypt_FirstCandidate(t *testing.T) {
	b := fixture(t)
	enc := b.EncryptedBytes(fixtureSalt)

	plain, err := decrypt.New().Decrypt(enc, "")
	require.NoError(t, err)

	assert.True(t, plain.HasSignature())
	assert.Equal(t, uint32(0), plain.EncFlags(), "flags are zeroed after decrypt")
	assert.Equal(t, [4]byte{}, plain.Salt(), "salt is zeroed after decrypt")
	assert.Equal(t, b.Bytes()[container.PageSize:], plain.Bytes()[container.PageSize:],
		"all pages past the header match the plaintext fixture")
}

func TestDecrypt_LaterCandidate(t *testing.T) {
	b := fixture(t)
	enc := b.EncryptedBytesWithCandidate(fixtureSalt, 5)

	plain, err := decrypt.New().Decrypt(enc, "")
	require.NoError(t, err)
	assert.Equal(t, b.Bytes()[container.PageSize:], plain.Bytes()[container.PageSize:])
}

func TestDecrypt_DoesNotMutateInput(t *testing.T) {
	b := fixture(t)
	enc := b.EncryptedBytes(fixtureSalt)
	before := append([]byte(nil), enc...)

	_, err := decrypt.New().Decrypt(enc, "")
	require.NoError(t, err)
	assert.Equal(t, before, enc)
}

func TestDecrypt_TwiceIsIdentical(t *testing.T) {
	b := fixture(t)
	enc := b.EncryptedBytes(fixtureSalt)
	d := decrypt.New()

	first, err := d.Decrypt(enc, "")
	require.NoError(t, err)
	second, err := d.Decrypt(enc, "")
	require.NoError(t, err)
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestDecrypt_ShapeRejection(t *testing.T) {
	b := fixture(t)

	cases := map[string][]byte{
		"empty file":          {},
		"ragged length":       make([]byte, container.PageSize+100),
		"too few pages":       make([]byte, 10*container.PageSize),
		"derivation flag off": b.Bytes(),
		"alternate variant":   nil, // filled below
		"no valid candidate":  nil,
	}

	alt := b.Bytes()
	c, err := container.New(alt)
	require.NoError(t, err)
	c.SetEncFlags(container.FlagAlternateVariant)
	cases["alternate variant"] = alt

	// Supported flag set but ciphertext from a salt the header does not
	// carry, so no derived candidate matches.
	wrong := b.EncryptedBytes(fixtureSalt)
	c, err = container.New(wrong)
	require.NoError(t, err)
	c.SetSalt([4]byte{9, 9, 9, 9})
	cases["no valid candidate"] = wrong

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decrypt.New().Decrypt(raw, "")
			require.Error(t, err)
			assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
			assert.False(t, errors.IsRetryable(err))
		})
	}
}

func TestDecrypt_ExhaustionWithPasswordIsBadPassword(t *testing.T) {
	b := fixture(t)
	enc := b.EncryptedBytes(fixtureSalt)
	c, err := container.New(enc)
	require.NoError(t, err)
	c.SetSalt([4]byte{9, 9, 9, 9})

	_, err = decrypt.New().Decrypt(enc, "hunter2")
	require.Error(t, err)
	assert.Equal(t, errors.CodeBadPassword, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err), "the caller may re-prompt")
}

func TestOpen_ResultCarriesRecipherState(t *testing.T) {
	b := fixture(t)
	enc := b.EncryptedBytes(fixtureSalt)

	res, err := decrypt.New().Open(enc, "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Key)
	assert.Equal(t, fixtureSalt, res.Salt)
	assert.Equal(t, uint32(container.FlagDerivationSupported), res.Flags)
}

func TestDecrypt_MissingPrimaryTable(t *testing.T) {
	// A catalog without the account table is not a database this codec
	// accepts, whatever the cipher did.
	b := mdbtest.NewBuilder(time.UTC)
	enc := b.EncryptedBytes(fixtureSalt)
	// The stored table name sits before the cipher start, so it is in the
	// clear; breaking it makes every candidate fail validation.
	enc[mdbtest.AccountDefPage*container.PageSize+27] = 'X'

	_, err := decrypt.New().Decrypt(enc, "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
}

func TestNewWithStats_RecordsCandidateAttempts(t *testing.T) {
	b := fixture(t)
	enc := b.EncryptedBytesWithCandidate(fixtureSalt, 2)

	stats := observability.NewDecryptStats()
	d := decrypt.NewWithStats(stats)

	_, err := d.Decrypt(enc, "")
	require.NoError(t, err)

	// Candidates 0 and 1 fail, 2 opens the file.
	assert.Equal(t, int64(3), stats.TotalAttempts())
	top := stats.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, 2, top[0].Index)
	assert.Equal(t, int64(1), top[0].Successes)

	// A cache hit skips the search entirely.
	_, err = d.Decrypt(enc, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalAttempts())
}
