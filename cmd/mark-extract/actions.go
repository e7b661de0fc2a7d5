package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ironsheep/mark-extract/internal/config"
	"github.com/ironsheep/mark-extract/internal/extract"
	"github.com/ironsheep/mark-extract/internal/month"
	"github.com/ironsheep/mark-extract/internal/ocr"
	"github.com/ironsheep/mark-extract/internal/server"
	"github.com/ironsheep/mark-extract/internal/store"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func tessdataFlag() cli.Flag {
	return &cli.PathFlag{
		Name:    "tessdata",
		Usage:   "directory holding the Tesseract traineddata files",
		EnvVars: []string{"TESSDATA_PREFIX"},
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json or yaml", Value: "json"}
}

func extractFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "dpi", Usage: "resolution the pages were rendered at", Value: 144},
		&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "pages processed concurrently"},
		&cli.IntFlag{Name: "year", Usage: "reference year of recognized months"},
		&cli.BoolFlag{Name: "no-table-filter", Usage: "accept marks that are not beside a ruled table"},
		&cli.StringFlag{Name: "scope", Usage: "token search area: page or left-column"},
		formatFlag(),
		&cli.PathFlag{Name: "output", Aliases: []string{"o"}, Usage: "write results here instead of stdout"},
		&cli.PathFlag{Name: "workbook", Usage: "spreadsheet to write months into"},
		&cli.StringFlag{Name: "sheet", Usage: "workbook sheet (default: first sheet)"},
		&cli.StringFlag{Name: "lookup-column", Value: store.DefaultLookupColumn, Usage: "workbook column holding \"<note> <item>\""},
		&cli.StringFlag{Name: "output-column", Value: store.DefaultOutputColumn, Usage: "workbook column receiving the month"},
		&cli.BoolFlag{Name: "dry-run", Usage: "match workbook rows without saving"},
		&cli.PathFlag{Name: "db", Usage: "record the run in this SQLite database"},
		&cli.PathFlag{Name: "debug-dir", Usage: "write masks, overlays and month crops here"},
		tessdataFlag(),
	}
}

// newLogger builds the stderr JSON logger from the global flags.
func newLogger(c *cli.Context) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid log level %q", c.String("log-level")), 2)
	}
	switch {
	case c.Bool("verbose"):
		level = slog.LevelDebug
	case c.Bool("quiet"):
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})), nil
}

// loadConfig returns the default or file configuration with command-line
// overrides applied.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, cli.Exit(err.Error(), 2)
		}
		cfg = loaded
	}
	if c.IsSet("workers") {
		cfg = cfg.WithWorkers(c.Int("workers"))
	}
	if c.IsSet("year") {
		cfg = cfg.WithReferenceYear(c.Int("year"))
	}
	if c.Bool("no-table-filter") {
		cfg = cfg.WithTableFilter(false)
	}
	if c.IsSet("scope") {
		cfg.Tokens.Scope = c.String("scope")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, cli.Exit(err.Error(), 2)
	}
	return cfg, nil
}

func newEngine(c *cli.Context) ocr.Engine {
	var opts []ocr.TesseractOption
	if dir := c.String("tessdata"); dir != "" {
		opts = append(opts, ocr.WithTessdataPrefix(dir))
	}
	return ocr.NewTesseractEngine(opts...)
}

// extractOutput is what the extract command prints.
type extractOutput struct {
	Summary extract.Summary      `json:"summary" yaml:"summary"`
	Records []extract.Record     `json:"records" yaml:"records"`
	Pages   []extract.PageResult `json:"pages" yaml:"pages"`
}

func extractAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit("no page images given", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if info := ocr.TesseractInfo(); !info.Available {
		return cli.Exit(fmt.Sprintf("OCR engine unavailable: %s", info.Error), 2)
	}

	opts := []extract.Option{extract.WithLogger(logger)}
	if dir := c.String("debug-dir"); dir != "" {
		obs, err := extract.NewDirObserver(dir, logger)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		opts = append(opts, extract.WithObserver(obs))
	}
	p, err := extract.NewPipeline(cfg, newEngine(c), opts...)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	started := time.Now()
	results := p.ProcessFiles(c.Context, paths, c.Int("dpi"))
	out := extractOutput{
		Summary: extract.Summarize(results),
		Records: extract.AllRecords(results),
		Pages:   results,
	}
	logger.Info("extraction finished", "summary", out.Summary, "elapsed", time.Since(started).String())

	if err := writeTo(c, c.String("output"), out); err != nil {
		return err
	}

	if path := c.String("workbook"); path != "" {
		if err := updateWorkbook(c, logger, path, out.Records); err != nil {
			return err
		}
	}

	if path := c.String("db"); path != "" {
		if err := recordRun(c, logger, path, store.Run{StartedAt: started, Sources: paths, Summary: out.Summary}, out.Records); err != nil {
			return err
		}
	}

	if out.Summary.PageErrors == out.Summary.Pages {
		return cli.Exit("no page could be processed", 1)
	}
	return nil
}

func updateWorkbook(c *cli.Context, logger *slog.Logger, path string, records []extract.Record) error {
	report, err := store.UpdateWorkbook(path, store.WorkbookOptions{
		Sheet:        c.String("sheet"),
		LookupColumn: c.String("lookup-column"),
		OutputColumn: c.String("output-column"),
		DryRun:       c.Bool("dry-run"),
	}, records)
	if err != nil {
		return cli.Exit(fmt.Sprintf("workbook update failed: %v", err), 1)
	}
	for _, u := range report.Matched {
		logger.Info("workbook row updated", "cell", u.Cell, "key", u.Key, "month", u.Month, "previous", u.Previous)
	}
	for _, u := range report.Unmatched {
		logger.Warn("record not written", "page", u.Page, "mark", u.MarkID, "key", u.Key, "reason", u.Reason)
	}
	logger.Info("workbook updated", "path", path, "sheet", report.Sheet,
		"matched", len(report.Matched), "unmatched", len(report.Unmatched), "dry_run", c.Bool("dry-run"))
	return nil
}

func recordRun(c *cli.Context, logger *slog.Logger, path string, run store.Run, records []extract.Record) error {
	db, err := store.Open(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer db.Close()
	id, err := db.SaveRun(c.Context, run, records)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to record run: %v", err), 1)
	}
	logger.Info("run recorded", "db", path, "run", id, "records", len(records))
	return nil
}

func serveAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	p, err := extract.NewPipeline(cfg, newEngine(c), extract.WithLogger(logger))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	logger.Debug("starting MCP server", "version", Version, "build_time", BuildTime, "commit", GitCommit)
	srv := server.New(p, server.WithLogger(logger), server.WithVersion(Version))
	if err := srv.Run(c.Context); err != nil && !errors.Is(err, c.Context.Err()) {
		return cli.Exit(fmt.Sprintf("server error: %v", err), 1)
	}
	return nil
}

func parseMonthAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("no text given", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	year := cfg.Month.ReferenceYear
	if c.IsSet("year") {
		year = c.Int("year")
	}

	text := strings.Join(c.Args().Slice(), " ")
	m, err := month.NewParser(year).Parse(text)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintln(c.App.Writer, m)
	return nil
}

func runsAction(c *cli.Context) error {
	db, err := store.Open(c.String("db"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer db.Close()

	if c.IsSet("run") {
		records, err := db.Records(c.Context, c.Int64("run"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return writeTo(c, "", records)
	}
	runs, err := db.Runs(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return writeTo(c, "", runs)
}

func configAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

// writeTo encodes v in the --format encoding to path, or to the app's writer
// when path is empty.
func writeTo(c *cli.Context, path string, v any) error {
	w := c.App.Writer
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to create output: %v", err), 1)
		}
		defer f.Close()
		w = f
	}
	return encode(w, c.String("format"), v)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q", format), 2)
	}
}
