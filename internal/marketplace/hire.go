package marketplace

import (
	"context"
	"fmt"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/events"
)

// AcceptBid hires the bid's worker: the job moves to in_progress and an unfunded
// contract is created for the bid amount, atomically. Only the job's client may
// accept, and only once.
func (s *Service) AcceptBid(ctx context.Context, caller *domain.Identity, jobID, bidID string) (*domain.Hire, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != caller.ID {
		return nil, domain.ErrNotJobOwner
	}
	if !job.IsOpen() {
		return nil, domain.ErrJobAlreadyAssigned
	}

	hire, err := s.store.AcceptBid(ctx, jobID, bidID)
	if err != nil {
		return nil, err
	}
	s.metrics.Hired()

	s.publish(ctx, events.New(
		events.TypeBidAccepted,
		job.ID,
		caller.ID,
		caller.DisplayName(anonymousClient),
		hire.Contract.WorkerID,
		fmt.Sprintf("Your bid on %q was accepted", job.Title),
	).Keyed(hire.Contract.ID))

	return hire, nil
}

// GetContract returns a contract to either of its parties
func (s *Service) GetContract(ctx context.Context, caller *domain.Identity, contractID string) (*domain.Contract, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}

	contract, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != caller.ID && contract.WorkerID != caller.ID {
		return nil, domain.ErrNotContractParty
	}
	return contract, nil
}
