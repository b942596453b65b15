package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/jmoiron/sqlx"
)

// InsertBid stores a new bid only if the job is open and the worker has no bid on it yet.
// Both preconditions are enforced by the statement itself, not by a prior read.
func (s *Storage) InsertBid(ctx context.Context, bid *domain.Bid) (*domain.Bid, error) {
	query := `
		INSERT INTO bids (job_id, worker_id, worker_name, bid_amount)
		SELECT j.id, $2, $3, $4
		FROM jobs j
		WHERE j.id = $1 AND j.status = $5
		ON CONFLICT (job_id, worker_id) DO NOTHING
		RETURNING ` + bidColumns

	var created domain.Bid
	err := s.db.GetContext(ctx, &created, query,
		bid.JobID,
		bid.WorkerID,
		bid.WorkerName,
		bid.BidAmount,
		domain.JobStatusOpen,
	)
	if err == nil {
		return &created, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable(err, "insert bid")
	}

	return nil, s.explainRejectedBid(ctx, bid.JobID, bid.WorkerID)
}

// explainRejectedBid works out why a conditional bid insert affected no rows
func (s *Storage) explainRejectedBid(ctx context.Context, jobID, workerID string) error {
	query := `
		SELECT j.status,
		       EXISTS (SELECT 1 FROM bids b WHERE b.job_id = j.id AND b.worker_id = $2) AS has_bid
		FROM jobs j
		WHERE j.id = $1
	`

	var row struct {
		Status string `db:"status"`
		HasBid bool   `db:"has_bid"`
	}
	if err := s.db.GetContext(ctx, &row, query, jobID, workerID); err != nil {
		return notFound(err, domain.ErrJobNotFound, "check bid preconditions")
	}

	switch {
	case row.HasBid:
		s.logger.Info("Duplicate bid rejected",
			slog.String("job_id", jobID),
			slog.String("worker_id", workerID),
		)
		return domain.ErrDuplicateBid
	case row.Status != domain.JobStatusOpen:
		return domain.ErrJobNotOpen
	default:
		return unavailable(fmt.Errorf("bid insert affected no rows"), "insert bid")
	}
}

// GetBid retrieves a bid by its ID
func (s *Storage) GetBid(ctx context.Context, bidID string) (*domain.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE id = $1`

	var bid domain.Bid
	if err := s.db.GetContext(ctx, &bid, query, bidID); err != nil {
		return nil, notFound(err, domain.ErrBidNotFound, "get bid")
	}

	return &bid, nil
}

// UpdateBidAmount changes the amount of a worker's bid while its job is still open.
// id and created_at are never touched. The job row is share-locked before the bid,
// the same job-then-bid order AcceptBid takes, so an update never lands after a hire.
func (s *Storage) UpdateBidAmount(ctx context.Context, bidID, workerID string, amount int64) (*domain.Bid, error) {
	var updated domain.Bid

	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status,
			`SELECT status FROM jobs WHERE id = (SELECT job_id FROM bids WHERE id = $1) FOR SHARE`,
			bidID,
		)
		if err != nil {
			return notFound(err, domain.ErrBidNotFound, "lock job for bid update")
		}

		var bid domain.Bid
		err = tx.GetContext(ctx, &bid,
			`SELECT `+bidColumns+` FROM bids WHERE id = $1 FOR UPDATE`,
			bidID,
		)
		if err != nil {
			return notFound(err, domain.ErrBidNotFound, "lock bid")
		}
		if bid.WorkerID != workerID {
			return domain.ErrNotBidOwner
		}
		if status != domain.JobStatusOpen {
			return domain.ErrJobNotOpen
		}

		err = tx.GetContext(ctx, &updated, `
			UPDATE bids
			SET bid_amount = $1,
			    updated_at = NOW()
			WHERE id = $2
			RETURNING `+bidColumns,
			amount,
			bidID,
		)
		if err != nil {
			return unavailable(err, "update bid")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// ListBidsByJob returns a job's bids in first-come-first-served order
func (s *Storage) ListBidsByJob(ctx context.Context, jobID string) ([]domain.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE job_id = $1 ORDER BY created_at ASC, id ASC`

	bids := []domain.Bid{}
	if err := s.db.SelectContext(ctx, &bids, query, jobID); err != nil {
		return nil, unavailable(err, "list bids")
	}

	return bids, nil
}

// ListBidsByWorker returns a worker's bids with their jobs, newest first
func (s *Storage) ListBidsByWorker(ctx context.Context, workerID string) ([]domain.WorkerBid, error) {
	query := `
		SELECT b.id, b.job_id, b.worker_id, b.worker_name, b.bid_amount, b.created_at, b.updated_at,
		       j.title AS job_title, j.budget AS job_budget, j.status AS job_status
		FROM bids b
		JOIN jobs j ON j.id = b.job_id
		WHERE b.worker_id = $1
		ORDER BY b.created_at DESC
	`

	bids := []domain.WorkerBid{}
	if err := s.db.SelectContext(ctx, &bids, query, workerID); err != nil {
		return nil, unavailable(err, "list worker bids")
	}

	return bids, nil
}
