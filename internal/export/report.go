package export

import "time"

// Status describes the lifecycle stage of an export run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Chunk captures one dump file written to the sink.
type Chunk struct {
	Key       string    `json:"key"`
	Page      int       `json:"page"`
	Entries   int       `json:"entries"`
	SizeBytes int64     `json:"size_bytes"`
	ETag      string    `json:"etag,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityFailure records a sequence entity whose document was not emitted.
type EntityFailure struct {
	UPI   string `json:"upi"`
	Error string `json:"error"`
}

// Report is the outcome of an export run. Entity failures never change the
// status; only an aborted page does.
type Report struct {
	Status      Status          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Release     string          `json:"release,omitempty"`
	Pages       int             `json:"pages"`
	Entities    int             `json:"entities"`
	Exported    int             `json:"exported"`
	Edges       int             `json:"edges"`
	Chunks      []Chunk         `json:"chunks,omitempty"`
	Failures    []EntityFailure `json:"failures,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Failed returns the number of entities that produced no document.
func (r Report) Failed() int { return len(r.Failures) }

func (r *Report) complete(now time.Time) {
	r.Status = StatusSucceeded
	r.Error = ""
	r.CompletedAt = &now
}

func (r *Report) fail(now time.Time, reason string) {
	r.Status = StatusFailed
	r.Error = reason
	r.CompletedAt = &now
}
