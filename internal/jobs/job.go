// Package jobs tracks storybook generation jobs: the status state machine,
// an in-memory store safe for concurrent readers, and the worker pool that
// runs each job in the background.
package jobs

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Status represents the current state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// canTransition reports whether from → to is a legal move.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusPending || to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusProcessing || to == StatusCompleted || to == StatusFailed
	}
	return false
}

// Request echoes the parameters a job was submitted with.
type Request struct {
	Theme        string   `json:"theme,omitempty"`
	Pages        int      `json:"num_pages"`
	Style        string   `json:"style"`
	Languages    []string `json:"languages"`
	PODReady     bool     `json:"pod_ready"`
	CharacterIDs []string `json:"character_ids,omitempty"`
}

// ErrorDetail records why a job failed.
type ErrorDetail struct {
	Message string `json:"message"`
	Cause   string `json:"cause"`
}

// Job is a snapshot of one generation job.
type Job struct {
	ID          string            `json:"job_id"`
	Status      Status            `json:"status"`
	Progress    int               `json:"progress"`
	CurrentStep string            `json:"current_step"`
	Request     Request           `json:"request"`
	Outputs     map[string]string `json:"outputs,omitempty"` // Language → document path
	Warnings    []string          `json:"warnings,omitempty"`
	Error       *ErrorDetail      `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Clone returns a deep copy.
func (j *Job) Clone() *Job {
	out := *j
	out.Request.Languages = slices.Clone(j.Request.Languages)
	out.Request.CharacterIDs = slices.Clone(j.Request.CharacterIDs)
	out.Outputs = maps.Clone(j.Outputs)
	out.Warnings = slices.Clone(j.Warnings)
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Output returns the document path for lang.
func (j *Job) Output(lang string) (string, bool) {
	p, ok := j.Outputs[lang]
	return p, ok
}

// Describe builds an ErrorDetail from err. Message is the error text; Cause
// lists every wrapped error down to the root, one per line.
func Describe(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	var b strings.Builder
	describeChain(&b, err, 0)
	return &ErrorDetail{Message: err.Error(), Cause: strings.TrimRight(b.String(), "\n")}
}

func describeChain(b *strings.Builder, err error, depth int) {
	for err != nil {
		fmt.Fprintf(b, "%s%T: %s\n", strings.Repeat("  ", depth), err, err.Error())
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				describeChain(b, e, depth+1)
			}
			return
		default:
			err = errors.Unwrap(err)
		}
	}
}
