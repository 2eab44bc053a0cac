// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/tarifa/journal"
	"github.com/jcodagnone/tarifa/pricing"
	"github.com/jcodagnone/tarifa/utils/httputils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Every flag can also be set as TARIFA_<FLAG> or in the --config file.
const envPrefix = "TARIFA"

var (
	cfg     = viper.New()
	cfgFile string
)

type config struct {
	Endpoint      string
	Timeout       time.Duration
	UserAgent     string
	TraceHTTP     bool
	TraceHTTPBody bool
	DbPath        string
}

func initConfig(cmd *cobra.Command) error {
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	// TARIFA_DB_PATH= disables the journal
	cfg.AllowEmptyEnv(true)
	cfg.AutomaticEnv()

	if cfgFile != "" {
		cfg.SetConfigFile(cfgFile)
		cfg.SetConfigType("yaml")

		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}

	if err := cfg.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	return nil
}

func loadConfig() config {
	return config{
		Endpoint:      cfg.GetString("endpoint"),
		Timeout:       cfg.GetDuration("timeout"),
		UserAgent:     cfg.GetString("user-agent"),
		TraceHTTP:     cfg.GetBool("trace-http"),
		TraceHTTPBody: cfg.GetBool("trace-http-body"),
		DbPath:        cfg.GetString("db-path"),
	}
}

func (c config) httpClient() *http.Client {
	options := httputils.ClientOptions{
		UserAgent: c.UserAgent,
		Timeout:   c.Timeout,
		TraceBody: c.TraceHTTPBody,
	}

	if options.UserAgent == "" {
		options.UserAgent = fmt.Sprintf("tarifa/%s (+https://github.com/jcodagnone/tarifa)", Version)
	}

	if c.TraceHTTP || c.TraceHTTPBody {
		options.Trace = os.Stderr
	}

	return httputils.NewClient(options)
}

func (c config) pricingClient() *pricing.Client {
	return pricing.NewClient(c.Endpoint, c.httpClient())
}

// openJournal opens the quote journal. It returns nil when the journal is disabled.
func (c config) openJournal() (*sql.DB, journal.Repository, error) {
	if c.DbPath == "" {
		return nil, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(c.DbPath), 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", c.DbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := journal.NewSQLRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating journal schema: %w", err)
	}

	return db, repo, nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML file with default values for every flag")
	flags.String("endpoint", pricing.DefaultEndpoint, "URL of the pricing service")
	flags.Duration("timeout", 0, "Abandon pricing requests after this long (0 waits forever)")
	flags.String("user-agent", "", "User-Agent sent to the pricing service")
	flags.Bool("trace-http", false, "Log outbound HTTP requests and responses to stderr")
	flags.Bool("trace-http-body", false, "Like --trace-http, including bodies")
	flags.String("db-path", filepath.Join("db", "tarifa.duckdb"), "Quote journal database (empty disables it)")
}
