// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/jcodagnone/tarifa/pricing"
	"github.com/jcodagnone/tarifa/utils/htmlutils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugPriceCmd = &cobra.Command{
	Use:   "price",
	Short: "Compute prices from breakdowns read on stdin",
	Long: `Reads one breakdown per line as "base demand rate distance congestion" and
prints the line followed by the derived price.

$ echo 300 0.8 150 1200.5 0.6 | tarifa debug price
300 0.8 150 1200.5 0.6	589
	`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(os.Stderr, "Enter base demand rate distance congestion, one breakdown per line…")
		}

		return debugPrices(os.Stdin, os.Stdout)
	},
}

func debugPrices(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		price, err := parseBreakdown(line)
		if err != nil {
			fmt.Fprintf(w, "%s\t%q\n", line, err)
		} else {
			fmt.Fprintf(w, "%s\t%d\n", line, price)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

func parseBreakdown(line string) (int64, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return 0, fmt.Errorf("expected 5 values, got %d", len(fields))
	}

	var v [5]float64

	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, fmt.Errorf("value %d: %w", i+1, err)
		}

		v[i] = x
	}

	return pricing.ComputePrice(v[0], v[1], v[2], v[3], v[4]), nil
}

var debugPageCmd = &cobra.Command{
	Use:   "page <url>",
	Short: "Fetch a running estimator page and print what it shows",
	Long: `Fetches the page served by "tarifa serve" and prints its mode followed by the
text of the visible panel. Useful to check a deployment from a terminal.

$ tarifa debug page http://localhost:8080/
form`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return debugPage(cmd.Context(), loadConfig().httpClient(), args[0], os.Stdout)
	},
}

func debugPage(ctx context.Context, client *http.Client, url string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	r, err := htmlutils.AsReader(resp)
	if err != nil {
		return fmt.Errorf("reading page: %w", err)
	}

	node, err := htmlutils.AsNode(r)
	if err != nil {
		return err
	}

	mode := "unknown"
	if body := htmlutils.Elements(node, "body"); len(body) > 0 {
		if m := htmlutils.Attr(body[0], "data-mode"); m != "" {
			mode = m
		}
	}

	fmt.Fprintln(w, mode)

	for _, id := range []string{"result", "loading", "error"} {
		if el := htmlutils.ElementByID(node, id); el != nil {
			fmt.Fprintln(w, htmlutils.Text(el))
		}
	}

	return nil
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugPriceCmd)
	debugCmd.AddCommand(debugPageCmd)
}
