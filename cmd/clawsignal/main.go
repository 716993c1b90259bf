package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "clawsignal",
		Usage: "Solana wallet profile scanner CLI",
		Description: `A command-line tool for the clawsignal wallet scanner.

Use this CLI to scan wallets through a running server or to inspect the
effective scoring rules. The events command follows scan summaries
published to NATS.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			scanCommand(),
			rulesCommand(),
			eventsCommand(),
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Scanner server URL",
				EnvVars: []string{"CLAWSIGNAL_SERVER_URL"},
				Value:   "http://localhost:8080",
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
