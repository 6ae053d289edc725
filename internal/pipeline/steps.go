package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tmontague/datafetch/internal/model"
	"github.com/tmontague/datafetch/internal/storage"
)

// ErrNoPayload is returned by WriteStep when the lane holds no fetched payload.
var ErrNoPayload = errors.New("no payload to write")

// Fetcher retrieves a remote payload. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string, kind model.ContentKind) (*model.Payload, error)
}

// PayloadWriter persists a payload. *storage.Writer implements it.
type PayloadWriter interface {
	Write(folder, filename string, payload *model.Payload) (*storage.Written, error)
}

// ReportProcessor derives a report from a written payload.
// *derive.Processor implements it.
type ReportProcessor interface {
	Process(ctx context.Context, req model.ReportRequest) (string, error)
}

// FetchStep downloads the lane's source and stores the decoded payload on
// the lane for WriteStep.
type FetchStep struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewFetchStep creates a new fetch step.
func NewFetchStep(fetcher Fetcher, logger *slog.Logger) *FetchStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{fetcher: fetcher, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return model.StageFetch
}

// Do executes the fetch step.
func (s *FetchStep) Do(ctx context.Context, lane *model.LaneResult) error {
	payload, err := s.fetcher.Fetch(ctx, lane.Fetch.SourceURL, lane.Kind())
	if err != nil {
		return err
	}
	lane.Payload = payload

	s.logger.Info("fetched",
		"kind", lane.Kind().String(),
		"url", lane.Fetch.SourceURL,
		"bytes", payload.Size(),
	)
	return nil
}

// WriteStep writes the fetched payload to the lane's destination and
// releases it. Processing re-reads the file from disk.
type WriteStep struct {
	writer PayloadWriter
	logger *slog.Logger
}

// NewWriteStep creates a new write step.
func NewWriteStep(writer PayloadWriter, logger *slog.Logger) *WriteStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &WriteStep{writer: writer, logger: logger}
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return model.StageWrite
}

// Do executes the write step.
func (s *WriteStep) Do(_ context.Context, lane *model.LaneResult) error {
	if lane.Payload == nil {
		return ErrNoPayload
	}

	written, err := s.writer.Write(lane.Fetch.DestinationFolder, lane.Fetch.DestinationFilename, lane.Payload)
	lane.Payload = nil
	if err != nil {
		return err
	}

	lane.PayloadPath = written.Path
	lane.PayloadBytes = written.Size
	lane.PayloadDigest = written.Digest

	s.logger.Info("payload written",
		"kind", lane.Kind().String(),
		"path", written.Path,
	)
	return nil
}

// ProcessStep derives the lane's report from the payload on disk.
type ProcessStep struct {
	processor ReportProcessor
	logger    *slog.Logger
}

// NewProcessStep creates a new process step.
func NewProcessStep(processor ReportProcessor, logger *slog.Logger) *ProcessStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessStep{processor: processor, logger: logger}
}

// Name returns the step name.
func (s *ProcessStep) Name() string {
	return model.StageProcess
}

// Do executes the process step.
func (s *ProcessStep) Do(ctx context.Context, lane *model.LaneResult) error {
	path, err := s.processor.Process(ctx, lane.Report)
	if err != nil {
		return err
	}
	lane.ReportPath = path

	s.logger.Info("report written",
		"kind", lane.Kind().String(),
		"path", path,
	)
	return nil
}
