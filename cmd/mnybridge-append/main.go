// Package main implements the mnybridge-append binary: insert one posted
// transaction into a database file and save the result atomically, backing
// up the previous bytes first.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mnybridge/mnybridge/internal/app"
	"github.com/mnybridge/mnybridge/internal/config"
	"github.com/mnybridge/mnybridge/pkg/types"
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
		accountID   int
		amountStr   string
		dateStr     string
		memo        string
		categoryID  int
		payeeID     int
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&file, "file", "", "Database file to modify (local path)")
	flag.StringVar(&password, "password", "", "File password (default: secret store, then blank)")
	flag.StringVar(&timezone, "tz", "", "Timezone override (IANA name or fixed offset like -06:00)")
	flag.IntVar(&accountID, "account", 0, "Account handle the transaction belongs to")
	flag.StringVar(&amountStr, "amount", "", "Signed amount, e.g. -42.50")
	flag.StringVar(&dateStr, "date", "", "Transaction date, YYYY-MM-DD (default: today)")
	flag.StringVar(&memo, "memo", "", "Optional memo text")
	flag.IntVar(&categoryID, "category", 0, "Optional category handle")
	flag.IntVar(&payeeID, "payee", 0, "Optional payee handle")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mnybridge-append - insert a posted transaction\n\n")
		fmt.Fprintf(os.Stderr, "Usage: mnybridge-append --file ledger.mny --account 1 --amount -42.50 [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("mnybridge-append version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if file == "" || accountID == 0 || amountStr == "" {
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

	if err := run(configFile, file, password, timezone, accountID, amountStr, dateStr, memo, categoryID, payeeID, log); err != nil {
		log.Fatal("append failed", zap.Error(err))
	}
}

func run(configFile, file, password, timezone string, accountID int, amountStr, dateStr, memo string, categoryID, payeeID int, log *zap.Logger) error {
	cfg, err := loadConfig(configFile, timezone)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	var amountFloat float64
	if _, err := fmt.Sscanf(amountStr, "%f", &amountFloat); err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}
	amount, err := types.AmountFromFloat(amountFloat)
	if err != nil {
		return err
	}

	date := time.Now().In(a.Location)
	if dateStr != "" {
		date, err = time.ParseInLocation("2006-01-02", dateStr, a.Location)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", dateStr, err)
		}
	}

	session, err := a.OpenSession(ctx, file, password)
	if err != nil {
		return err
	}

	txn := types.Transaction{
		Account: int32(accountID),
		Date:    date,
		Amount:  amount,
		Memo:    memo,
	}
	if categoryID != 0 {
		c := int32(categoryID)
		txn.Category = &c
	}
	if payeeID != 0 {
		p := int32(payeeID)
		txn.Payee = &p
	}

	inserted, err := session.AppendTransaction(txn)
	if err != nil {
		return err
	}
	if err := session.Save(file, a.Backups); err != nil {
		return err
	}

	bal, err := session.Balance(inserted.Account)
	if err != nil {
		return err
	}
	fmt.Printf("appended transaction %d (%s) to account %d; balance now %s\n",
		inserted.ID, inserted.Amount.String(), inserted.Account, bal.String())
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
