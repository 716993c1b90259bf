package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v2"

	natspkg "github.com/brojonat/clawsignal/service/nats"
)

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Scan event commands",
		Subcommands: []*cli.Command{
			subscribeCommand(),
		},
	}
}

// subscribeCommand streams scan events published by the server.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Stream scan events, optionally for a single wallet",
		ArgsUsage: "[WALLET_ADDRESS]",
		Description: `Subscribe to scan summaries the server publishes to NATS.

Events are published to the subject: scans.{wallet}
Without a wallet argument every wallet is streamed (scans.*).

Example:
  clawsignal events subscribe --json EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   nats.DefaultURL,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Print events as JSON lines",
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Exit after this many events (0 = unlimited)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Exit after this long (0 = until interrupted)",
			},
		},
		Action: func(c *cli.Context) error {
			subject := scanSubject(c.Args().First())

			nc, err := nats.Connect(c.String("nats-url"), nats.Name("clawsignal-cli"))
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			msgs := make(chan *nats.Msg, 64)
			sub, err := nc.ChanSubscribe(subject, msgs)
			if err != nil {
				return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
			}
			defer sub.Unsubscribe()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout := c.Duration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			jsonOutput := c.Bool("json")
			if !jsonOutput {
				fmt.Fprintf(c.App.ErrWriter, "Subscribed to %s\n", subject)
			}

			return streamEvents(ctx, c.App.Writer, msgs, c.Int("count"), jsonOutput)
		},
	}
}

func scanSubject(wallet string) string {
	if wallet == "" {
		return natspkg.SubjectPrefix + "*"
	}
	return natspkg.SubjectPrefix + wallet
}

// streamEvents prints events from msgs until ctx ends or limit events were seen.
func streamEvents(ctx context.Context, w io.Writer, msgs <-chan *nats.Msg, limit int, jsonOutput bool) error {
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			var event natspkg.ScanEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				fmt.Fprintf(w, "skipping malformed event on %s: %v\n", msg.Subject, err)
				continue
			}
			if jsonOutput {
				fmt.Fprintln(w, string(msg.Data))
			} else {
				printEvent(w, &event)
			}
			seen++
			if limit > 0 && seen >= limit {
				return nil
			}
		}
	}
}

func printEvent(w io.Writer, e *natspkg.ScanEvent) {
	color.New(color.Faint).Fprintf(w, "%s ", e.ScannedAt.Format(time.RFC3339))
	color.New(color.Bold).Fprintf(w, "%s ", e.Wallet)
	fmt.Fprintf(w, "score=%d confidence=%d ", e.Score, e.Confidence)
	tempoColor(e.Tempo).Fprintf(w, "%s ", e.Tempo)
	riskColor(e.Risk).Fprintf(w, "%s ", e.Risk)
	fmt.Fprintf(w, "%q tx=%d tokens=%d/%d\n", e.Style, e.TxScanned, e.TokensEnriched, e.TokensEnriched+e.TokensDegraded)
}
