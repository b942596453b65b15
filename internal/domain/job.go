package domain

import (
	"strings"
	"time"
)

// Job statuses. No terminal state beyond in_progress is modeled.
const (
	JobStatusOpen       = "open"
	JobStatusInProgress = "in_progress"
)

// Job is a task posted by a client with a budget and optional deadline
type Job struct {
	ID               string     `db:"id" json:"id"`
	Title            string     `db:"title" json:"title"`
	Description      string     `db:"description" json:"description"`
	Budget           int64      `db:"budget" json:"budget"`
	Deadline         *time.Time `db:"deadline" json:"deadline,omitempty"`
	ClientID         string     `db:"client_id" json:"client_id"`
	ClientName       string     `db:"client_name" json:"client_name"`
	Status           string     `db:"status" json:"status"`
	AcceptedWorkerID *string    `db:"accepted_worker_id" json:"accepted_worker_id,omitempty"`
	FinalAmount      *int64     `db:"final_amount" json:"final_amount,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// IsOpen reports whether the job still accepts bids
func (j *Job) IsOpen() bool {
	return j.Status == JobStatusOpen
}

// JobDraft holds the client-supplied fields of a new job
type JobDraft struct {
	Title       string
	Description string
	Budget      int64
	Deadline    *time.Time
}

// ValidateJobDraft checks that a job has at least a title and a positive budget
func ValidateJobDraft(d JobDraft) error {
	if strings.TrimSpace(d.Title) == "" {
		return &Error{Kind: KindValidation, Code: ErrInvalidInput.Code, Message: "job title is required"}
	}
	if d.Budget <= 0 {
		return &Error{Kind: KindValidation, Code: ErrInvalidInput.Code, Message: "job budget must be a positive whole number"}
	}
	return nil
}
