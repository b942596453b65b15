package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// AcceptBid hires the bid's worker and creates the unfunded contract in one transaction.
// The job row is locked first, so of two racing accepts only one commits; the other
// gets ErrJobAlreadyAssigned and nothing is written. Bid updates take the same
// job-then-bid lock order, so the contract amount is the bid's final amount.
func (s *Storage) AcceptBid(ctx context.Context, jobID, bidID string) (*domain.Hire, error) {
	var hire domain.Hire

	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, jobID)
		if err != nil {
			return notFound(err, domain.ErrJobNotFound, "lock job for hire")
		}
		if status != domain.JobStatusOpen {
			return domain.ErrJobAlreadyAssigned
		}

		var bid domain.Bid
		err = tx.GetContext(ctx, &bid,
			`SELECT `+bidColumns+` FROM bids WHERE id = $1 AND job_id = $2 FOR SHARE`,
			bidID, jobID,
		)
		if err != nil {
			return notFound(err, domain.ErrBidNotFound, "load bid for hire")
		}

		var job domain.Job
		err = tx.GetContext(ctx, &job, `
			UPDATE jobs
			SET status = $1,
			    accepted_worker_id = $2,
			    final_amount = $3,
			    updated_at = NOW()
			WHERE id = $4 AND status = $5
			RETURNING `+jobColumns,
			domain.JobStatusInProgress,
			bid.WorkerID,
			bid.BidAmount,
			jobID,
			domain.JobStatusOpen,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrJobAlreadyAssigned
		}
		if err != nil {
			return unavailable(err, "transition job")
		}

		var contract domain.Contract
		err = tx.GetContext(ctx, &contract, `
			INSERT INTO contracts (job_id, client_id, worker_id, amount, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+contractColumns,
			job.ID,
			job.ClientID,
			bid.WorkerID,
			bid.BidAmount,
			domain.ContractStatusUnfunded,
		)
		if err != nil {
			if postgresql.IsUniqueViolation(err, "contracts_job_key") {
				return domain.ErrJobAlreadyAssigned
			}
			return unavailable(err, "create contract")
		}

		hire.Job = &job
		hire.Contract = &contract
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bid accepted",
		slog.String("job_id", jobID),
		slog.String("bid_id", bidID),
		slog.String("contract_id", hire.Contract.ID),
		slog.Int64("amount", hire.Contract.Amount),
	)

	return &hire, nil
}
