package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the marketplace
type Storage struct {
	pg     *postgresql.Client
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		pg:     pg,
		db:     pg.GetDB(),
		logger: logger,
	}
}

// JobFilter selects a page of open jobs
type JobFilter struct {
	PageSize int
	Cursor   *JobCursor
}

// JobCursor is the keyset position of the last job on a page
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

const jobColumns = `id, title, description, budget, deadline, client_id, client_name,
	status, accepted_worker_id, final_amount, created_at, updated_at`

const bidColumns = `id, job_id, worker_id, worker_name, bid_amount, created_at, updated_at`

const contractColumns = `id, job_id, client_id, worker_id, amount, status,
	payment_order_id, payment_id, funded_at, created_at, updated_at`

const messageColumns = `id, job_id, sender_id, sender_name, receiver_id, content, client_ref, created_at`

// notFound maps sql.ErrNoRows to the given domain error and anything else to RemoteUnavailable
func notFound(err error, notFoundErr error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}
	return unavailable(err, op)
}

func unavailable(err error, op string) error {
	return domain.Unavailable(fmt.Errorf("failed to %s: %w", op, err))
}
