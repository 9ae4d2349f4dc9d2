package models

import (
	"time"

	"github.com/google/uuid"
)

// Upsert outcomes
const (
	UpsertCreated = "created"
	UpsertUpdated = "updated"
)

// RecordFailure describes why a single upstream record was skipped. The
// reference is whatever identity the record exposed at the point of failure.
type RecordFailure struct {
	Index     int    `json:"index"`
	Reference string `json:"reference,omitempty"`
	Stage     string `json:"stage"`
	Reason    string `json:"reason"`
}

// ImportReport summarizes a single import run. A run either aborts before any
// record is processed or completes with these counts; records are never
// silently lost.
type ImportReport struct {
	RunID      uuid.UUID       `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Extracted  int             `json:"extracted"`
	Filtered   int             `json:"filtered"`
	Created    int             `json:"created"`
	Updated    int             `json:"updated"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Failures   []RecordFailure `json:"failures,omitempty"`
}

// Duration returns the wall-clock duration of the run.
func (r *ImportReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
