// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the playback HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: [server] host:port)",
			},
		},
		Action: r.Serve,
	}
}

// playCommand plays queries on a local session
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Queue URLs or searches and follow playback until the queue is empty",
		ArgsUsage: "<url or search>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "key",
				Aliases: []string{"k"},
				Usage:   "Session key",
				Value:   "local",
			},
		},
		Action: r.Play,
	}
}

// tuiCommand returns the top-level TUI command for interactive playback.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "key",
				Aliases: []string{"k"},
				Usage:   "Session key",
				Value:   "local",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI is running",
				Value: "./tmp/jukebox-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// historyCommand handles play history operations
func historyCommand(r *Runner) *cli.Command {
	filters := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:    "key",
				Aliases: []string{"k"},
				Usage:   "Only show plays for this session",
			},
			&cli.BoolFlag{
				Name:  "failed",
				Usage: "Only show failed starts",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of records (most recent)",
			},
		}
	}

	return &cli.Command{
		Name:  "history",
		Usage: "Play history operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print recorded plays",
				Flags: append(filters(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (txt, markdown, csv, json)",
						Value:   "txt",
					},
				),
				Action: r.HistoryList,
			},
			{
				Name:  "export",
				Usage: "Export recorded plays to a file",
				Flags: append(filters(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (txt, markdown, csv, json)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: history_{epoch}.{ext})",
					},
				),
				Action: r.HistoryExport,
			},
			{
				Name:  "sessions",
				Usage: "List session keys with recorded plays",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistorySessions,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the example configuration to --config",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the latest database migration",
				Action: r.SetupRollback,
			},
		},
	}
}
