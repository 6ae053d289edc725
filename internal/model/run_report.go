package model

import "time"

// RunReport is the outcome of one pipeline run.
// A run always completes after attempting every lane; partial failure is
// visible through the lane results rather than an aggregate error.
type RunReport struct {
	// ID uniquely identifies the run in the history database.
	ID string `json:"id"`

	// Root is the directory all relative lane paths were resolved against.
	Root string `json:"root"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Lanes holds one result per attempted lane, in pipeline order.
	Lanes []*LaneResult `json:"lanes"`
}

// NewRunReport creates an empty RunReport.
func NewRunReport(id, root string) *RunReport {
	return &RunReport{
		ID:        id,
		Root:      root,
		StartedAt: time.Now(),
		Lanes:     make([]*LaneResult, 0, 4),
	}
}

// Lane returns the result for kind, or nil if the kind was not run.
func (r *RunReport) Lane(kind ContentKind) *LaneResult {
	for _, l := range r.Lanes {
		if l.Kind() == kind {
			return l
		}
	}
	return nil
}

// Failed returns the number of lanes with a failure.
func (r *RunReport) Failed() int {
	n := 0
	for _, l := range r.Lanes {
		if l.Failed() {
			n++
		}
	}
	return n
}

// Succeeded returns the number of lanes without a failure.
func (r *RunReport) Succeeded() int {
	return len(r.Lanes) - r.Failed()
}

// Duration returns the wall time of the run.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
