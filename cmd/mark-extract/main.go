package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "mark-extract %s\n", Version)
		fmt.Fprintf(c.App.Writer, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(c.App.Writer, "  Git commit: %s\n", GitCommit)
	}

	return &cli.App{
		Name:    "mark-extract",
		Usage:   "associate colored marks on scanned forms with the identifiers and months they annotate",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "info",
				EnvVars: []string{"MARK_EXTRACT_LOG_LEVEL"},
			},
			&cli.BoolFlag{Name: "verbose", Usage: "log at debug level"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "log errors only"},
			&cli.PathFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML file overriding the default thresholds"},
		},
		Commands: []*cli.Command{
			{
				Name:      "extract",
				Usage:     "extract records from rendered page images",
				ArgsUsage: "PAGE [PAGE...]",
				Flags:     extractFlags(),
				Action:    extractAction,
			},
			{
				Name:   "serve",
				Usage:  "run the MCP server on stdin/stdout",
				Flags:  []cli.Flag{tessdataFlag()},
				Action: serveAction,
			},
			{
				Name:      "parse-month",
				Usage:     "print the canonical month of recognized text",
				ArgsUsage: "TEXT",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Usage: "year of the result (default: configured reference year)"},
				},
				Action: parseMonthAction,
			},
			{
				Name:  "runs",
				Usage: "list recorded runs, or the records of one run",
				Flags: []cli.Flag{
					&cli.PathFlag{Name: "db", Usage: "run history database", Required: true},
					&cli.Int64Flag{Name: "run", Usage: "print the records of this run"},
					formatFlag(),
				},
				Action: runsAction,
			},
			{
				Name:   "config",
				Usage:  "print the effective configuration as YAML",
				Action: configAction,
			},
		},
	}
}
