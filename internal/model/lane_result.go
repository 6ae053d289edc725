package model

import "time"

// Stage names used in LaneResult.FailedStage and step names.
const (
	StageFetch   = "fetch"
	StageWrite   = "write"
	StageProcess = "process"
)

// LaneResult records what happened to one content kind during a run.
// Steps fill it in as they go; the driver returns it inside a RunReport.
type LaneResult struct {
	// Fetch is the acquisition request for this lane.
	Fetch FetchRequest `json:"fetch"`

	// Report is the derivation request for this lane.
	Report ReportRequest `json:"report"`

	// Payload is the decoded body between fetch and write.
	// The write step clears it once the payload is on disk.
	Payload *Payload `json:"-"`

	// PayloadPath is the path the raw payload was written to.
	PayloadPath string `json:"payload_path,omitempty"`

	// PayloadBytes is the size of the written payload file.
	PayloadBytes int64 `json:"payload_bytes,omitempty"`

	// PayloadDigest is the BLAKE2b-256 digest of the written payload.
	PayloadDigest string `json:"payload_digest,omitempty"`

	// ReportPath is the path of the derived artifact, once written.
	ReportPath string `json:"report_path,omitempty"`

	// PerformedSteps lists steps that ran, successful or not.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// FailedStage is the stage of the first failure, if any.
	FailedStage string `json:"failed_stage,omitempty"`

	// Err is the first failure. Not serialized; see ErrorKind/ErrorMessage.
	Err error `json:"-"`

	// ErrorKind is ErrorKindOf(Err).
	ErrorKind string `json:"error_kind,omitempty"`

	// ErrorMessage is Err.Error().
	ErrorMessage string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewLaneResult creates a LaneResult for the given requests.
func NewLaneResult(fetch FetchRequest, report ReportRequest) *LaneResult {
	return &LaneResult{
		Fetch:          fetch,
		Report:         report,
		PerformedSteps: make([]string, 0, 3),
	}
}

// Kind returns the lane's content kind.
func (l *LaneResult) Kind() ContentKind {
	return l.Fetch.Kind
}

// Fail records err as the lane's failure at the given stage.
// The first failure wins: a processing error after a failed fetch does not
// replace the fetch error.
func (l *LaneResult) Fail(stage string, err error) {
	if l.Failed() {
		return
	}
	l.FailedStage = stage
	l.Err = err
	l.ErrorKind = ErrorKindOf(err)
	l.ErrorMessage = err.Error()
}

// Failed reports whether any stage of the lane failed.
func (l *LaneResult) Failed() bool {
	return l.Err != nil || l.ErrorMessage != ""
}
