package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ironsheep/mark-extract/internal/config"
	"github.com/ironsheep/mark-extract/internal/detection"
	"github.com/ironsheep/mark-extract/internal/imaging"
	"github.com/ironsheep/mark-extract/internal/ocr"
)

// PageResult is everything extracted from one page.
type PageResult struct {
	Page   int    `json:"page" yaml:"page"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	Marks         []detection.Mark `json:"marks" yaml:"marks"`
	Discarded     int              `json:"discarded" yaml:"discarded"`
	TableRejected int              `json:"table_rejected" yaml:"table_rejected"`
	Tokens        int              `json:"tokens" yaml:"tokens"`

	// TokenError is set when the identifier pass failed. The page is still
	// processed; its marks find no identifiers and count as unmatched.
	TokenError string `json:"token_error,omitempty" yaml:"token_error,omitempty"`

	// Unmatched counts circles and paired crosses with no identifier beside them.
	Unmatched int `json:"unmatched" yaml:"unmatched"`

	// Records are ordered by mark ID.
	Records []Record `json:"records" yaml:"records"`

	// Err is set when the page could not be processed at all, for example
	// when it failed to load or the context was canceled. Error mirrors it
	// for serialization.
	Err   error  `json:"-" yaml:"-"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r *PageResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
}

// Pipeline runs the whole extraction for pages: mark detection, token
// location, identifier association, cross pairing and month recognition.
//
// A Pipeline holds only immutable configuration and may process many pages
// concurrently.
type Pipeline struct {
	cfg      config.Config
	engine   ocr.Engine
	logger   *slog.Logger
	observer Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver sets the observer that receives intermediate images.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// NewPipeline validates cfg and creates a pipeline using engine for all OCR.
func NewPipeline(cfg config.Config, engine ocr.Engine, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, errors.New("an OCR engine is required")
	}
	p := &Pipeline{
		cfg:      cfg,
		engine:   engine,
		logger:   slog.New(slog.DiscardHandler),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the unscaled configuration.
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// components are the per-resolution stages for one page.
type components struct {
	cfg      config.Config
	detector *detection.Detector
	tokens   *ocr.TokenLocator
	assoc    *SpatialAssociator
	resolver *CrossRangeResolver
	reader   *MonthReader
}

func (p *Pipeline) components(dpi int) (*components, error) {
	cfg := p.cfg.ScaledFor(dpi)
	tokens, err := ocr.NewTokenLocator(p.engine, cfg.Tokens)
	if err != nil {
		return nil, err
	}
	assoc, err := NewSpatialAssociator(cfg.Association)
	if err != nil {
		return nil, err
	}
	reader, err := NewMonthReader(p.engine, cfg.Month, p.logger)
	if err != nil {
		return nil, err
	}
	return &components{
		cfg:      cfg,
		detector: detection.NewDetector(cfg, p.logger),
		tokens:   tokens,
		assoc:    assoc,
		resolver: NewCrossRangeResolver(cfg.Association),
		reader:   reader,
	}, nil
}

// Detect runs only mark detection on page, at the page's resolution.
func (p *Pipeline) Detect(page *imaging.Page) detection.Result {
	return detection.NewDetector(p.cfg.ScaledFor(page.DPI), p.logger).Detect(page)
}

// ProcessPage extracts the records of one page. Failures local to a mark
// leave that mark's fields unresolved; only page-wide failures set Err.
func (p *Pipeline) ProcessPage(ctx context.Context, page *imaging.Page) PageResult {
	res := PageResult{Page: page.Index, Source: page.Source}
	log := p.logger.With("page", page.Index)

	if err := ctx.Err(); err != nil {
		res.fail(err)
		return res
	}
	c, err := p.components(page.DPI)
	if err != nil {
		res.fail(err)
		return res
	}

	log.Info("processing page", "width", page.Width(), "height", page.Height(), "dpi", page.DPI)
	det := c.detector.Detect(page)
	res.Marks = det.Marks
	res.Discarded = det.Discarded
	res.TableRejected = det.TableRejected
	p.observeDetection(page, det)

	if len(det.Marks) == 0 {
		log.Warn("no marks detected", "discarded", det.Discarded, "table_rejected", det.TableRejected)
		return res
	}

	tokens, err := c.tokens.Locate(ctx, page)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.fail(ctxErr)
			return res
		}
		log.Error("token location failed", "error", err)
		res.TokenError = err.Error()
		tokens = nil
	}
	res.Tokens = len(tokens)

	circles := det.Circles()
	months := make(map[int]func() (MonthReading, error), len(circles))
	for _, m := range circles {
		months[m.ID] = sync.OnceValues(func() (MonthReading, error) {
			r, err := c.reader.Read(ctx, page, m)
			p.observeReading(page.Index, m.ID, r)
			return r, err
		})
	}

	records := make([]*Record, len(det.Marks))
	unmatched := make([]bool, len(det.Marks))
	sem := make(chan struct{}, c.cfg.Workers)
	var wg sync.WaitGroup
	for i, m := range det.Marks {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			records[i], unmatched[i] = p.processMark(c, page.Index, m, tokens, circles, months, log)
		}()
	}
	wg.Wait()

	for i, r := range records {
		if r != nil {
			res.Records = append(res.Records, *r)
		}
		if unmatched[i] {
			res.Unmatched++
		}
	}
	log.Info("page finished", "marks", len(det.Marks), "tokens", len(tokens),
		"records", len(res.Records), "unmatched", res.Unmatched)
	return res
}

func (p *Pipeline) processMark(c *components, page int, m detection.Mark, tokens []ocr.Token,
	circles []detection.Mark, months map[int]func() (MonthReading, error), log *slog.Logger) (*Record, bool) {

	rec := &Record{Page: page, MarkID: m.ID, Position: m.Center}
	monthMark := m.ID

	switch m.Kind {
	case detection.Circle:
		rec.Kind = KindSingle
	case detection.Cross:
		partner, ok := c.resolver.Partner(m, circles)
		if !ok {
			log.Debug("cross has no circle to its right", "mark", m.ID)
			return nil, false
		}
		rec.Kind = KindRange
		rec.PartnerID = partner.ID
		monthMark = partner.ID
	default:
		return nil, false
	}

	ids := c.assoc.Associate(m.Center, tokens)
	if !ids.Any() {
		texts := make([]string, len(ids.Candidates))
		for i, t := range ids.Candidates {
			texts[i] = t.Text
		}
		log.Warn("no identifiers beside mark", "mark", m.ID, "kind", m.Kind.String(), "nearby", texts)
		return nil, true
	}
	rec.Note, rec.Item = ids.Note, ids.Item

	reading, err := months[monthMark]()
	if err != nil {
		log.Warn("month unresolved", "mark", m.ID, "month_mark", monthMark, "error", err)
	} else {
		rec.Month = Resolve(reading.Month)
		log.Debug("month read", "mark", monthMark, "month", reading.Month.String(),
			"text", reading.Text, "variant", reading.Variant, "mode", reading.Mode.String(),
			"confidence", reading.Confidence)
	}

	if !rec.Complete() {
		log.Warn("record has unresolved fields", "mark", m.ID,
			"note", rec.Note.Resolved, "item", rec.Item.Resolved, "month", rec.Month.Resolved)
	}
	return rec, false
}

// ProcessPages processes pages concurrently with Workers goroutines. The
// result at index i belongs to pages[i] whatever order pages finish in.
func (p *Pipeline) ProcessPages(ctx context.Context, pages []*imaging.Page) []PageResult {
	return p.run(len(pages), func(i int) PageResult {
		return p.ProcessPage(ctx, pages[i])
	})
}

// ProcessFiles loads and processes one page image per path, numbering pages
// by position. Pages are decoded inside the workers so at most Workers pages
// are held in memory at once.
func (p *Pipeline) ProcessFiles(ctx context.Context, paths []string, dpi int) []PageResult {
	return p.run(len(paths), func(i int) PageResult {
		if err := ctx.Err(); err != nil {
			res := PageResult{Page: i, Source: paths[i]}
			res.fail(err)
			return res
		}
		page, err := imaging.LoadPage(paths[i], i, dpi)
		if err != nil {
			p.logger.Error("failed to load page", "page", i, "path", paths[i], "error", err)
			res := PageResult{Page: i, Source: paths[i]}
			res.fail(fmt.Errorf("failed to load page: %w", err))
			return res
		}
		return p.ProcessPage(ctx, page)
	})
}

func (p *Pipeline) run(n int, process func(i int) PageResult) []PageResult {
	results := make([]PageResult, n)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(p.cfg.Workers, n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = process(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// ReadMonth recognizes the month inside one mark of page.
func (p *Pipeline) ReadMonth(ctx context.Context, page *imaging.Page, m detection.Mark) (MonthReading, error) {
	c, err := p.components(page.DPI)
	if err != nil {
		return MonthReading{}, err
	}
	return c.reader.Read(ctx, page, m)
}
