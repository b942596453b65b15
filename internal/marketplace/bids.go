package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/events"
)

// PlaceBid records the caller's first bid on an open job.
// A second bid from the same worker fails with ErrDuplicateBid.
func (s *Service) PlaceBid(ctx context.Context, caller *domain.Identity, jobID string, amount int64) (*domain.Bid, error) {
	bid, err := s.placeBid(ctx, caller, jobID, amount)
	if err != nil {
		s.metrics.BidRejected(errorCode(err))
		return nil, err
	}
	s.metrics.BidPlaced()
	return bid, nil
}

func (s *Service) placeBid(ctx context.Context, caller *domain.Identity, jobID string, amount int64) (*domain.Bid, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID == caller.ID {
		return nil, domain.ErrOwnJob
	}
	if !job.IsOpen() {
		return nil, domain.ErrJobNotOpen
	}
	if err := domain.ValidateBid(job, amount); err != nil {
		return nil, err
	}

	bid, err := s.store.InsertBid(ctx, &domain.Bid{
		JobID:      job.ID,
		WorkerID:   caller.ID,
		WorkerName: caller.DisplayName(anonymousWorker),
		BidAmount:  amount,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bid placed",
		slog.String("bid_id", bid.ID),
		slog.String("job_id", job.ID),
		slog.String("worker_id", bid.WorkerID),
		slog.Int64("amount", bid.BidAmount),
	)

	s.publish(ctx, events.New(
		events.TypeBidPlaced,
		job.ID,
		bid.WorkerID,
		bid.WorkerName,
		job.ClientID,
		fmt.Sprintf("New bid of %d on %q", bid.BidAmount, job.Title),
	).Keyed(bid.ID))

	return bid, nil
}

// UpdateBid changes the amount of the caller's own bid while the job is open
func (s *Service) UpdateBid(ctx context.Context, caller *domain.Identity, bidID string, amount int64) (*domain.Bid, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}

	existing, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if existing.WorkerID != caller.ID {
		return nil, domain.ErrNotBidOwner
	}

	job, err := s.store.GetJob(ctx, existing.JobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOpen() {
		return nil, domain.ErrJobNotOpen
	}
	if err := domain.ValidateBid(job, amount); err != nil {
		return nil, err
	}

	bid, err := s.store.UpdateBidAmount(ctx, bidID, caller.ID, amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bid updated",
		slog.String("bid_id", bid.ID),
		slog.String("job_id", bid.JobID),
		slog.Int64("old_amount", existing.BidAmount),
		slog.Int64("new_amount", bid.BidAmount),
	)

	s.publish(ctx, events.New(
		events.TypeBidUpdated,
		job.ID,
		bid.WorkerID,
		bid.WorkerName,
		job.ClientID,
		fmt.Sprintf("Bid on %q changed to %d", job.Title, bid.BidAmount),
	))

	return bid, nil
}

// ListBids returns a job's bids, earliest first
func (s *Service) ListBids(ctx context.Context, caller *domain.Identity, jobID string) ([]domain.Bid, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.ListBidsByJob(ctx, jobID)
}

// ListMyBids returns the caller's bids with the jobs they were placed on
func (s *Service) ListMyBids(ctx context.Context, caller *domain.Identity) ([]domain.WorkerBid, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}
	return s.store.ListBidsByWorker(ctx, caller.ID)
}

func errorCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "UNKNOWN"
}
