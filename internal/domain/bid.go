package domain

import (
	"strconv"
	"strings"
	"time"
)

// Bid is a worker's proposed price to complete a job
type Bid struct {
	ID         string    `db:"id" json:"id"`
	JobID      string    `db:"job_id" json:"job_id"`
	WorkerID   string    `db:"worker_id" json:"worker_id"`
	WorkerName string    `db:"worker_name" json:"worker_name"`
	BidAmount  int64     `db:"bid_amount" json:"bid_amount"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// WorkerBid is a bid joined with the job it was placed on
type WorkerBid struct {
	Bid
	JobTitle  string `db:"job_title" json:"job_title"`
	JobBudget int64  `db:"job_budget" json:"job_budget"`
	JobStatus string `db:"job_status" json:"job_status"`
}

// ValidateBid checks a prospective bid amount against the job's constraints.
// It succeeds iff 0 < amount <= job.Budget.
func ValidateBid(job *Job, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > job.Budget {
		return ErrBudgetExceeded
	}
	return nil
}

// ParseAmount parses a user-entered amount. Anything that is not a whole
// number fails with ErrInvalidAmount.
func ParseAmount(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
