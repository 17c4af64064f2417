package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "searchctl",
		Usage: "run searches and inspect user preferences against the configured backends",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file path",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level written to stderr (debug/info/warn/error)",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "run a structured search",
				ArgsUsage: "[query]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "category filter"},
					&cli.StringFlag{Name: "brand", Usage: "brand filter"},
					&cli.StringFlag{Name: "color", Usage: "color filter"},
					&cli.StringFlag{Name: "audience", Usage: "target audience filter"},
					&cli.StringFlag{Name: "min-price", Usage: "lower price bound"},
					&cli.StringFlag{Name: "max-price", Usage: "upper price bound"},
					&cli.IntFlag{Name: "limit", Usage: "maximum number of products"},
					&cli.StringFlag{Name: "user", Usage: "user id used for personalization and history"},
				},
				Action: searchAction,
			},
			{
				Name:      "chat",
				Usage:     "interpret a free-text message and search with it",
				ArgsUsage: "<message>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "maximum number of products"},
					&cli.StringFlag{Name: "user", Usage: "user id used for personalization and history"},
				},
				Action: chatAction,
			},
			{
				Name:      "suggest",
				Usage:     "list completions for a prefix",
				ArgsUsage: "<prefix>",
				Action:    suggestAction,
			},
			{
				Name:      "import",
				Usage:     "bulk index products from a JSON array file",
				ArgsUsage: "<file.json>",
				Action:    importAction,
			},
			{
				Name:  "user",
				Usage: "user preference commands",
				Commands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "show stored preferences",
						ArgsUsage: "<user-id>",
						Action:    preferencesAction,
					},
					{
						Name:      "history",
						Usage:     "show recent searches",
						ArgsUsage: "<user-id>",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Usage: "number of entries", Value: 20},
						},
						Action: historyAction,
					},
					{
						Name:      "analyze",
						Usage:     "summarize recent searches",
						ArgsUsage: "<user-id>",
						Action:    analyzeAction,
					},
				},
			},
		},
	}
}
