package derive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmontague/datafetch/internal/model"
	"github.com/tmontague/datafetch/internal/storage"
)

// Default column names of the movie datasets.
const (
	DefaultAudienceScoreColumn = "Audience score %"
	DefaultProfitabilityColumn = "Profitability"
	DefaultSortColumn          = "Domestic Gross"
)

// ErrUnsupportedKind is returned for a request whose kind has no rule.
var ErrUnsupportedKind = errors.New("no report rule for content kind")

// Processor derives report artifacts from written payloads.
type Processor struct {
	// store resolves, reads and atomically writes files below the run root.
	store *storage.Writer

	audienceScoreColumn string
	profitabilityColumn string
	sortColumn          string

	logger *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithAverageColumns sets the CSV columns whose means are reported.
func WithAverageColumns(audienceScore, profitability string) Option {
	return func(p *Processor) {
		if audienceScore != "" {
			p.audienceScoreColumn = audienceScore
		}
		if profitability != "" {
			p.profitabilityColumn = profitability
		}
	}
}

// WithSortColumn sets the Excel column rows are sorted by.
func WithSortColumn(name string) Option {
	return func(p *Processor) {
		if name != "" {
			p.sortColumn = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates a Processor that reads and writes through store.
func NewProcessor(store *storage.Writer, opts ...Option) *Processor {
	p := &Processor{
		store:               store,
		audienceScoreColumn: DefaultAudienceScoreColumn,
		profitabilityColumn: DefaultProfitabilityColumn,
		sortColumn:          DefaultSortColumn,
		logger:              slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Process applies the rule for req.Kind and returns the path of the written
// artifact. Nothing is written when the rule fails.
func (p *Processor) Process(ctx context.Context, req model.ReportRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := p.store.ReadFile(req.InputPath)
	if err != nil {
		return "", err
	}

	var (
		out  []byte
		path = req.Kind.ReportPath(req.OutputPath)
	)

	switch req.Kind {
	case model.KindText:
		out = wordFrequency(string(data))
	case model.KindCSV:
		out, err = p.columnAverages(data, req.InputPath)
	case model.KindExcel:
		out, err = p.sortedExport(data, req.InputPath)
	case model.KindJSON:
		out, err = movieGenres(data, req.InputPath)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, req.Kind)
	}
	if err != nil {
		return "", err
	}

	written, err := p.store.WriteFile(path, out)
	if err != nil {
		return "", err
	}

	p.logger.Debug("report written",
		"kind", req.Kind.String(),
		"input", req.InputPath,
		"output", written,
		"bytes", len(out),
	)

	return written, nil
}
