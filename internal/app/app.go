// Package app wires configuration into the concrete collaborators the
// mnybridge binaries share: the image store, the secret store, the backup
// store, and open sessions over database files.
package app

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mnybridge/mnybridge/internal/backup"
	"github.com/mnybridge/mnybridge/internal/config"
	"github.com/mnybridge/mnybridge/internal/moneyfile"
	"github.com/mnybridge/mnybridge/internal/secrets"
	"github.com/mnybridge/mnybridge/internal/storage"
)

// storePrefix marks an image reference that lives in the configured file
// store rather than on the local filesystem.
const storePrefix = "store://"

// App holds the shared collaborators.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Store    storage.FileStore
	Secrets  *secrets.Store
	Backups  *backup.Store
	Location *time.Location
}

// New validates the configuration and builds the collaborators. The secret
// store is only opened when MNYBRIDGE_SECRETS_PASSPHRASE is set.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var store storage.FileStore
	switch cfg.Storage.Type {
	case "s3":
		store, err = storage.NewS3Store(ctx, cfg.Storage.S3.Bucket, storage.S3Config{
			Region:       cfg.Storage.S3.Region,
			Endpoint:     cfg.Storage.S3.Endpoint,
			UsePathStyle: cfg.Storage.S3.UsePathStyle,
		})
	default:
		store, err = storage.NewLocalStore(cfg.Storage.Path)
	}
	if err != nil {
		return nil, err
	}

	backups, err := backup.NewStore(cfg.BackupDir)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Backups:  backups,
		Location: loc,
	}

	if passphrase := os.Getenv("MNYBRIDGE_SECRETS_PASSPHRASE"); passphrase != "" {
		sec, err := secrets.Open(cfg.SecretsPath, []byte(passphrase))
		if err != nil {
			return nil, err
		}
		a.Secrets = sec
	}

	return a, nil
}

// ReadImage loads the raw bytes behind a reference: a "store://key" goes
// through the configured file store, anything else is a local path.
func (a *App) ReadImage(ctx context.Context, ref string) ([]byte, error) {
	if key, ok := strings.CutPrefix(ref, storePrefix); ok {
		return a.Store.Fetch(ctx, key)
	}
	return os.ReadFile(ref)
}

// Password resolves the password for a reference: an explicit flag value
// wins, then the secret store under the reference, then blank.
func (a *App) Password(ref, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if a.Secrets == nil {
		return ""
	}
	secret, ok, err := a.Secrets.Get(ref)
	if err != nil {
		a.Log.Warn("secret lookup failed", zap.String("ref", ref), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return secret
}

// OpenSession reads and decrypts the referenced image.
func (a *App) OpenSession(ctx context.Context, ref, password string) (*moneyfile.Session, error) {
	raw, err := a.ReadImage(ctx, ref)
	if err != nil {
		return nil, err
	}
	return moneyfile.Open(raw, a.Password(ref, password), a.Location,
		moneyfile.WithLogger(a.Log))
}
