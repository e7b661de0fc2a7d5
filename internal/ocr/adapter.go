package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ironsheep/mark-extract/internal/imaging"
)

// Hint carries the language and character set for a batch of attempts.
type Hint struct {
	Languages []string
	Whitelist string
}

// Attempt is the outcome of recognizing one variant in one mode.
//
// Exactly one of Result (non-empty) and Err describes the outcome: an engine
// that returned nothing is recorded with ErrEmptyResult.
type Attempt struct {
	Variant string `json:"variant"`
	Mode    Mode   `json:"mode"`
	Result  Result `json:"result"`
	Err     error  `json:"-"`
}

// OK reports whether the attempt produced text.
func (a Attempt) OK() bool {
	return a.Err == nil && !a.Result.Empty()
}

// Adapter runs an Engine over every (variant, mode) combination.
type Adapter struct {
	engine Engine
	modes  []Mode
	logger *slog.Logger
}

// NewAdapter creates an adapter trying each mode in order. A nil logger
// discards output.
func NewAdapter(engine Engine, modes []Mode, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{engine: engine, modes: modes, logger: logger}
}

// Attempts invokes the engine once per variant and mode, variants outermost.
//
// A failed invocation is recorded and the batch continues. Only context
// cancellation stops the batch early; the attempts made so far are returned.
func (a *Adapter) Attempts(ctx context.Context, variants []imaging.Variant, hint Hint) []Attempt {
	attempts := make([]Attempt, 0, len(variants)*len(a.modes))
	for _, v := range variants {
		for _, mode := range a.modes {
			if ctx.Err() != nil {
				return attempts
			}
			att := Attempt{Variant: v.Name, Mode: mode}
			att.Result, att.Err = safeRecognize(ctx, a.engine, Request{
				Image:     v.Image,
				Languages: hint.Languages,
				Mode:      mode,
				Whitelist: hint.Whitelist,
			})
			if att.Err == nil && att.Result.Empty() {
				att.Err = ErrEmptyResult
			}
			if att.Err != nil {
				a.logger.Debug("ocr attempt failed",
					"variant", v.Name, "mode", mode.String(), "error", att.Err)
			}
			attempts = append(attempts, att)
		}
	}
	return attempts
}

// ErrEnginePanic marks an invocation whose engine panicked.
var ErrEnginePanic = errors.New("ocr engine panic")

// safeRecognize calls engine, turning a panic inside a native binding into an
// error for this invocation.
func safeRecognize(ctx context.Context, engine Engine, req Request) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("%w: %v", ErrEnginePanic, r)
		}
	}()
	return engine.Recognize(ctx, req)
}

// Best returns the successful attempt with the highest mean word confidence
// among those accepted by keep. Earlier attempts win ties. A nil keep accepts
// every successful attempt.
func Best(attempts []Attempt, keep func(Attempt) bool) (Attempt, bool) {
	var best Attempt
	found := false
	for _, att := range attempts {
		if !att.OK() || (keep != nil && !keep(att)) {
			continue
		}
		if !found || att.Result.MeanConfidence() > best.Result.MeanConfidence() {
			best, found = att, true
		}
	}
	return best, found
}
