// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jcodagnone/tarifa/journal"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var historyLimit int

var errNoJournal = errors.New("quote journal disabled, set --db-path")

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the latest recorded estimates",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, repo, err := loadConfig().openJournal()
		if err != nil {
			return err
		}

		if db == nil {
			return errNoJournal
		}
		defer db.Close()

		entries, err := repo.Recent(historyLimit)
		if err != nil {
			return err
		}

		printHistory(os.Stdout, entries, isatty.IsTerminal(os.Stdout.Fd()))

		return nil
	},
}

var historyCellsCmd = &cobra.Command{
	Use:   "cells",
	Short: "Summarize successful estimates by origin H3 cell",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, repo, err := loadConfig().openJournal()
		if err != nil {
			return err
		}

		if db == nil {
			return errNoJournal
		}
		defer db.Close()

		stats, err := repo.CellSummary(historyLimit)
		if err != nil {
			return err
		}

		printCells(os.Stdout, stats, isatty.IsTerminal(os.Stdout.Fd()))

		return nil
	},
}

var printer = message.NewPrinter(language.English)

// printHistory writes one row per entry: a box table on terminals, tab separated
// values otherwise.
func printHistory(w io.Writer, entries []*journal.Entry, pretty bool) {
	if !pretty {
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%.6f,%.6f\t%.6f,%.6f\t%s\t%d\t%.0f\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"), e.SessionID,
				e.Source.Lat, e.Source.Lng, e.Destination.Lat, e.Destination.Lng,
				e.Outcome, e.Price, e.StraightLine)
		}

		return
	}

	a, b, c, d := strings.Repeat("─", 19), strings.Repeat("─", 45), strings.Repeat("─", 6), strings.Repeat("─", 10)
	fmt.Fprintf(w, "╭─%s─┬─%s─┬─%s─┬─%s─┬─%s─╮\n", a, b, c, d, d)
	fmt.Fprintf(w, "│ %-19s │ %-45s │ %-6s │ %10s │ %10s │\n", "When", "Trip", "Result", "Price", "Meters")
	fmt.Fprintf(w, "├─%s─┼─%s─┼─%s─┼─%s─┼─%s─┤\n", a, b, c, d, d)

	for _, e := range entries {
		trip := fmt.Sprintf("%.5f,%.5f → %.5f,%.5f", e.Source.Lat, e.Source.Lng, e.Destination.Lat, e.Destination.Lng)

		price := "-"
		if e.Outcome == journal.OutcomeOK {
			price = printer.Sprintf("%d", e.Price)
		}

		fmt.Fprintf(w, "│ %-19s │ %-45s │ %-6s │ %10s │ %10s │\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), trip, e.Outcome, price,
			printer.Sprintf("%.0f", e.StraightLine))
	}

	fmt.Fprintf(w, "╰─%s─┴─%s─┴─%s─┴─%s─┴─%s─╯\n", a, b, c, d, d)
}

func printCells(w io.Writer, stats []*journal.CellStat, pretty bool) {
	if !pretty {
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%.6f,%.6f\t%d\t%.2f\t%d\t%d\n",
				s.Cell, s.Center.Lat, s.Center.Lng, s.Quotes, s.AvgPrice, s.MinPrice, s.MaxPrice)
		}

		return
	}

	for _, s := range stats {
		printer.Fprintf(w, "🔷 %s (%.5f, %.5f): %d quotes, avg %.0f, min %d, max %d\n",
			s.Cell, s.Center.Lat, s.Center.Lng, s.Quotes, s.AvgPrice, s.MinPrice, s.MaxPrice)
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyCellsCmd)
	historyCmd.PersistentFlags().IntVar(&historyLimit, "limit", 20, "Maximum number of rows")
}
