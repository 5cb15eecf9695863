package models

import "time"

// RunStatus is the state of the conversion session.
type RunStatus string

const (
	RunInit          RunStatus = "Init"
	RunReady         RunStatus = "Ready"
	RunConverting    RunStatus = "Converting"
	RunFlawedSuccess RunStatus = "Flawed Success"
	RunSuccess       RunStatus = "Success"
	RunError         RunStatus = "Error"
)

// Accepting reports whether a new conversion may start from this status.
func (s RunStatus) Accepting() bool {
	switch s {
	case RunReady, RunFlawedSuccess, RunSuccess, RunError:
		return true
	}
	return false
}

// Finished reports whether s is a terminal status of a run.
func (s RunStatus) Finished() bool {
	return s == RunFlawedSuccess || s == RunSuccess || s == RunError
}

// Run is one conversion of one note.
type Run struct {
	ID           string       `json:"id"`
	Path         string       `json:"path"`
	Name         string       `json:"name"`
	Title        string       `json:"title,omitempty"`
	Checksum     string       `json:"checksum,omitempty"`
	Status       RunStatus    `json:"status"`
	ImageService string       `json:"image_service,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Content      string       `json:"content"`
	Errors       []string     `json:"errors"`
	Matches      []*LinkMatch `json:"matches"`
}

// Duration returns how long the run took, or zero while it is in flight.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed counts references that were left unconverted.
func (r *Run) Failed() int {
	n := 0
	for _, m := range r.Matches {
		if !m.Converted() {
			n++
		}
	}
	return n
}

// AddError appends a message to the run's error list.
func (r *Run) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
