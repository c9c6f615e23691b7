package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "blinkctl",
		Usage: "Solana donation blinks CLI",
		Description: `A command-line tool for the blinks service.

Use it to sign in with a local keypair, create and inspect blinks, fetch
action payloads, submit donations, follow the event stream and inspect
the database.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			{
				Name:  "db",
				Usage: "Database commands",
				Subcommands: []*cli.Command{
					migrateCommand(),
					listUsersCommand(),
					listBlinksDBCommand(),
				},
			},
			{
				Name:  "auth",
				Usage: "Wallet sign-in commands",
				Subcommands: []*cli.Command{
					signInCommand(),
					signOutCommand(),
					sessionCommand(),
				},
			},
			{
				Name:  "blinks",
				Usage: "Blink management commands",
				Subcommands: []*cli.Command{
					createBlinkCommand(),
					listBlinksCommand(),
					getBlinkCommand(),
					qrCommand(),
				},
			},
			{
				Name:  "action",
				Usage: "Solana Action commands",
				Subcommands: []*cli.Command{
					actionGetCommand(),
					actionPostCommand(),
				},
			},
			donateCommand(),
			{
				Name:  "events",
				Usage: "NATS event stream commands",
				Subcommands: []*cli.Command{
					tailEventsCommand(),
					inspectStreamCommand(),
				},
			},
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
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Blinks server URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Solana RPC endpoint used by donate",
				EnvVars: []string{"SOLANA_RPC_URL"},
				Value:   "https://api.devnet.solana.com",
			},
			&cli.StringFlag{
				Name:    "keypair",
				Aliases: []string{"k"},
				Usage:   "solana-keygen keypair file",
				EnvVars: []string{"SOLANA_KEYPAIR"},
				Value:   defaultPath(".config", "solana", "id.json"),
			},
			&cli.StringFlag{
				Name:    "state-dir",
				Usage:   "Directory holding the session token and sign-in flags",
				EnvVars: []string{"BLINKCTL_STATE_DIR"},
				Value:   defaultPath(".config", "blinkctl"),
			},
			&cli.DurationFlag{
				Name:    "signin-idle-timeout",
				Usage:   "Re-challenge the wallet after this long",
				EnvVars: []string{"SIGNIN_IDLE_TIMEOUT"},
				Value:   defaultIdleTimeout,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "Filter JSON output through a jq expression (implies --json)",
			},
		},
	}
}

func defaultPath(elem ...string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(elem...)
	}
	return filepath.Join(append([]string{home}, elem...)...)
}
