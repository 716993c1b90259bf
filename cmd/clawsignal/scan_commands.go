package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/itchyny/gojq"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/clawsignal/client"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Scan a wallet and print its profile",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "premium",
				Usage: "Include premium signals",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Print the raw JSON report",
			},
			&cli.StringSliceFlag{
				Name:  "jq",
				Usage: "jq filter applied to the JSON report (repeatable)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 30 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			wallet := c.Args().First()
			if wallet == "" {
				return fmt.Errorf("wallet address is required")
			}

			filters, err := compileFilters(c.StringSlice("jq"))
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: slog.LevelWarn}))
			cl := client.NewClient(c.String("server-url"), nil, logger)

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			report, raw, err := cl.ScanRaw(ctx, wallet, c.Bool("premium"))
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			w := c.App.Writer
			switch {
			case len(filters) > 0:
				return applyFilters(w, filters, raw)
			case c.Bool("json"):
				return printJSON(w, raw)
			default:
				renderReport(w, report)
				return nil
			}
		},
	}
}

func compileFilters(filters []string) ([]*gojq.Code, error) {
	compiled := make([]*gojq.Code, len(filters))
	for i, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}
	return compiled, nil
}

// applyFilters prints every result of every filter, one JSON value per line.
func applyFilters(w io.Writer, filters []*gojq.Code, raw []byte) error {
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to decode report: %w", err)
	}

	for _, code := range filters {
		iter := code.Run(input)
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				return fmt.Errorf("jq filter failed: %w", err)
			}
			out, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to encode jq result: %w", err)
			}
			fmt.Fprintln(w, string(out))
		}
	}
	return nil
}

func printJSON(w io.Writer, raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to decode report: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

var (
	labelColor = color.New(color.FgCyan)
	boldColor  = color.New(color.Bold)
)

func tempoColor(tempo string) *color.Color {
	switch tempo {
	case "HOT":
		return color.New(color.FgRed, color.Bold)
	case "ACTIVE":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgBlue)
	}
}

func riskColor(risk string) *color.Color {
	switch risk {
	case "HIGH":
		return color.New(color.FgRed)
	case "MED":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

// renderReport prints a human-readable summary followed by the token table.
func renderReport(w io.Writer, r *client.Report) {
	boldColor.Fprintf(w, "Wallet %s\n", r.Wallet)

	field := func(label string, c *color.Color, format string, args ...interface{}) {
		labelColor.Fprintf(w, "  %-14s ", label)
		if c == nil {
			fmt.Fprintf(w, format, args...)
		} else {
			c.Fprintf(w, format, args...)
		}
		fmt.Fprintln(w)
	}

	lastActivity := "never"
	if r.LastActivity != nil {
		lastActivity = *r.LastActivity + " UTC"
	}

	field("Score", boldColor, "%d/99", r.Score)
	field("Confidence", nil, "%d%%", r.Confidence)
	field("Style", nil, "%s", r.Style)
	field("Tempo", tempoColor(r.Tempo), "%s", r.Tempo)
	field("Risk", riskColor(r.Risk), "%s", r.Risk)
	field("Early entry", nil, "%d%%", r.EarlyEntryPct)
	field("Transactions", nil, "%d", r.TxScanned)
	field("Tokens", nil, "%d", r.ActiveTokens)
	field("Counterparties", nil, "%d", r.UniqueCounterparties)
	field("Last activity", nil, "%s", lastActivity)
	fmt.Fprintln(w)
	field("DNA", nil, "%s", r.DNA)
	field("Patterns", nil, "%s", r.Patterns)

	if r.Premium != nil {
		fmt.Fprintln(w)
		boldColor.Fprintln(w, "Premium")
		field("Insider", nil, "%s", r.Premium.InsiderClusterConfidence)
		field("Sniper", nil, "%s", r.Premium.SniperProbability)
		field("Exit", nil, "%s", r.Premium.ExitDiscipline)
		field("Tags", nil, "%s", r.Premium.AlphaTags)
	}

	if len(r.Tokens) == 0 {
		return
	}

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Mint", "Symbol", "Dex", "Liquidity", "FDV", "Vol 24h", "24h"})
	table.SetAutoWrapText(false)
	for _, t := range r.Tokens {
		symbol := "?"
		if t.Symbol != nil {
			symbol = *t.Symbol
		}
		change := "-"
		if t.PriceChange24h != nil {
			change = *t.PriceChange24h
		}
		table.Append([]string{
			shortMint(t.Mint),
			symbol,
			t.Dex,
			formatUSD(t.LiquidityUSD),
			formatUSD(t.FDVUSD),
			formatUSD(t.Volume24hUSD),
			change,
		})
	}
	table.Render()
}

func shortMint(mint string) string {
	if len(mint) <= 12 {
		return mint
	}
	return mint[:4] + "…" + mint[len(mint)-4:]
}

func formatUSD(v *float64) string {
	if v == nil {
		return "-"
	}
	switch x := *v; {
	case x >= 1e9:
		return fmt.Sprintf("$%.2fB", x/1e9)
	case x >= 1e6:
		return fmt.Sprintf("$%.2fM", x/1e6)
	case x >= 1e3:
		return fmt.Sprintf("$%.1fK", x/1e3)
	default:
		return fmt.Sprintf("$%.2f", x)
	}
}
