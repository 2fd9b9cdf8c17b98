// Package main implements the mnybridge-export binary: decrypt a database
// file and materialize every table into a SQLite database for inspection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mnybridge/mnybridge/internal/app"
	"github.com/mnybridge/mnybridge/internal/config"
	"github.com/mnybridge/mnybridge/internal/decrypt"
	"github.com/mnybridge/mnybridge/internal/export"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		file        string
		out         string
		password    string
		timezone    string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&file, "file", "", "Database file: a local path or store://<key>")
	flag.StringVar(&out, "out", "", "Output SQLite path (default: <file>.sqlite)")
	flag.StringVar(&password, "password", "", "File password (default: secret store, then blank)")
	flag.StringVar(&timezone, "tz", "", "Timezone override (IANA name or fixed offset like -06:00)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mnybridge-export - materialize a database file into SQLite\n\n")
		fmt.Fprintf(os.Stderr, "Usage: mnybridge-export --file ledger.mny [--out ledger.sqlite]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("mnybridge-export version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if file == "" {
		flag.Usage()
		os.Exit(2)
	}
	if out == "" {
		out = file + ".sqlite"
	}

	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(configFile, file, out, password, timezone, log); err != nil {
		log.Fatal("export failed", zap.Error(err))
	}
}

func run(configFile, file, out, password, timezone string, log *zap.Logger) error {
	cfg, err := loadConfig(configFile, timezone)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	raw, err := a.ReadImage(ctx, file)
	if err != nil {
		return err
	}
	plain, err := decrypt.New().Decrypt(raw, a.Password(file, password))
	if err != nil {
		return err
	}

	if err := export.ToSQLite(ctx, plain, a.Location, out); err != nil {
		return err
	}
	log.Info("exported database", zap.String("file", file), zap.String("out", out))
	fmt.Printf("exported %s to %s\n", file, out)
	return nil
}

func loadConfig(configFile, timezone string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if timezone != "" {
		cfg.Timezone = timezone
	}
	return cfg, nil
}
