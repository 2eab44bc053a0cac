// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jcodagnone/tarifa/estimator"
	"github.com/jcodagnone/tarifa/journal"
	"github.com/jcodagnone/tarifa/pricing"
	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <latA> <lonA> <latB> <lonB>",
	Short: "Ask the pricing service for one estimate",
	Long: `Sends one trip to the pricing service and prints the breakdown together with
the derived price.

$ tarifa quote 51.1 71.4 51.2 71.5
Formula: Price = Base + Demand + (Rate * Distance) * (1 + Congestion)
Base = 300
…
Price = 589

Negative coordinates must follow "--" so they are not taken as flags.`,
	Args: cobra.ExactArgs(4),
	RunE: func(_ *cobra.Command, args []string) error {
		c := loadConfig()

		var recorder estimator.Recorder

		if !quoteNoJournal {
			db, repo, err := c.openJournal()
			if err != nil {
				return err
			}

			if db != nil {
				defer db.Close()

				recorder = journal.NewRecorder(repo)
			}
		}

		session := estimator.NewSession("cli", c.pricingClient(), recorder)
		session.SetFields(estimator.Fields{LatA: args[0], LonA: args[1], LatB: args[2], LonB: args[3]})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := session.Calculate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  %s\n", session.View().Error)

			return err
		}

		return printQuote(os.Stdout, *session.View().Result)
	},
}

var quoteNoJournal bool

func printQuote(w io.Writer, q pricing.Quote) error {
	_, err := fmt.Fprintf(w,
		"Formula: %s\nBase = %v\nDemand = %v\nRate = %v\nDistance = %v\nCongestion = %v\nPrice = %d\n",
		pricing.Formula,
		q.Response.Base,
		q.Response.Demand,
		q.Response.Rate,
		q.Response.Distance,
		q.Response.Congestion,
		q.Price,
	)

	return err
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().BoolVar(&quoteNoJournal, "no-journal", false, "Do not record the estimate")
}
