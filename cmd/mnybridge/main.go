// Package main implements the mnybridge inspection binary: open a database
// file (decrypting it when needed) and print its accounts, balances,
// categories, and payees.
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
	"github.com/mnybridge/mnybridge/internal/ledger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		file        string
		password    string
		timezone    string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&file, "file", "", "Database file: a local path or store://<key>")
	flag.StringVar(&password, "password", "", "File password (default: secret store, then blank)")
	flag.StringVar(&timezone, "tz", "", "Timezone override (IANA name or fixed offset like -06:00)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mnybridge - personal finance database codec\n\n")
		fmt.Fprintf(os.Stderr, "Usage: mnybridge --file ledger.mny [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MNYBRIDGE_TIMEZONE            Timezone for file datetimes\n")
		fmt.Fprintf(os.Stderr, "  MNYBRIDGE_STORAGE_TYPE        Storage type (local, s3)\n")
		fmt.Fprintf(os.Stderr, "  MNYBRIDGE_SECRETS_PASSPHRASE  Unlocks the password store\n")
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("mnybridge version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if file == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(configFile, file, password, timezone, log); err != nil {
		log.Fatal("mnybridge failed", zap.Error(err))
	}
}

func run(configFile, file, password, timezone string, log *zap.Logger) error {
	cfg, err := loadConfig(configFile, timezone)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	session, err := a.OpenSession(ctx, file, password)
	if err != nil {
		return err
	}

	accts, err := session.Accounts()
	if err != nil {
		return err
	}
	txns, err := session.Transactions()
	if err != nil {
		return err
	}
	cats, err := session.Categories()
	if err != nil {
		return err
	}
	pays, err := session.Payees()
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d accounts, %d transactions, %d categories, %d payees\n\n",
		file, len(accts), len(txns), len(cats), len(pays))

	fmt.Println("Accounts:")
	for _, acct := range accts {
		state := ""
		if acct.Closed {
			state = " (closed)"
		}
		fmt.Printf("  [%d] %-32s %12s%s\n",
			acct.ID, acct.Name, ledger.CurrentBalance(acct, txns).String(), state)
	}

	if len(cats) > 0 {
		fmt.Println("\nCategories:")
		for _, cat := range cats {
			path, err := ledger.CategoryPath(cat.ID, cats)
			if err != nil {
				log.Warn("unresolvable category", zap.Int32("id", cat.ID), zap.Error(err))
				continue
			}
			fmt.Printf("  [%d] %s\n", cat.ID, path)
		}
	}

	if len(pays) > 0 {
		fmt.Println("\nPayees:")
		for _, p := range pays {
			fmt.Printf("  [%d] %s\n", p.ID, p.Name)
		}
	}

	return nil
}

// loadConfig merges file, environment, and flag configuration, in that
// order of increasing priority.
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
