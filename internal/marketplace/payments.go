package marketplace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/events"
	"github.com/cuongbtq/gigmarket/internal/payment"
)

// PaymentConfirmation is what checkout returns on success
type PaymentConfirmation struct {
	OrderID   string
	PaymentID string
	Signature string
}

// PaymentFailure is what checkout returns when the payment did not go through
type PaymentFailure struct {
	Code        string
	Description string
}

// CreatePaymentOrder opens a gateway order for an unfunded contract and returns
// the checkout options for it. Calling it again after an abandoned checkout
// replaces the order.
func (s *Service) CreatePaymentOrder(ctx context.Context, caller *domain.Identity, contractID string) (*payment.CheckoutConfig, error) {
	contract, err := s.clientContract(ctx, caller, contractID)
	if err != nil {
		return nil, err
	}
	if contract.IsFunded() {
		return nil, domain.ErrContractAlreadyFunded
	}

	order, err := s.gateway.CreateOrder(ctx, contract.Amount)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.SetPaymentOrder(ctx, contract.ID, order.ID); err != nil {
		return nil, err
	}

	s.logger.Info("Payment order created",
		slog.String("contract_id", contract.ID),
		slog.String("order_id", order.ID),
		slog.Int64("amount", contract.Amount),
	)

	return s.gateway.Checkout(order, "Payment for Job #"+contract.JobID, payment.Prefill{
		Name:  caller.DisplayName(anonymousClient),
		Email: caller.Email,
	}), nil
}

// ConfirmPayment marks the contract funded once the checkout signature checks out.
// Confirming the same payment twice returns the funded contract both times.
func (s *Service) ConfirmPayment(ctx context.Context, caller *domain.Identity, contractID string, confirmation PaymentConfirmation) (*domain.Contract, error) {
	contract, err := s.clientContract(ctx, caller, contractID)
	if err != nil {
		return nil, err
	}

	if !s.gateway.VerifySignature(confirmation.OrderID, confirmation.PaymentID, confirmation.Signature) {
		s.logger.Warn("Payment signature rejected",
			slog.String("contract_id", contract.ID),
			slog.String("order_id", confirmation.OrderID),
			slog.String("payment_id", confirmation.PaymentID),
		)
		return nil, domain.PaymentDeclined("signature verification failed")
	}

	key := "payment:" + confirmation.PaymentID
	first, err := s.idempotency.MarkProcessed(ctx, key, s.config.PaymentIdempotencyTTL)
	if err != nil {
		s.logger.Warn("Payment idempotency check unavailable",
			slog.String("payment_id", confirmation.PaymentID),
			slog.Any("error", err),
		)
		first = true
	}

	funded, err := s.store.MarkContractFunded(ctx, contract.ID, confirmation.OrderID, confirmation.PaymentID)
	if err != nil {
		if first {
			if fErr := s.idempotency.Forget(ctx, key); fErr != nil {
				s.logger.Warn("Failed to release payment idempotency key",
					slog.String("payment_id", confirmation.PaymentID),
					slog.Any("error", fErr),
				)
			}
		}
		return nil, err
	}

	if !first {
		s.logger.Info("Payment confirmation replayed",
			slog.String("contract_id", funded.ID),
			slog.String("payment_id", confirmation.PaymentID),
		)
		return funded, nil
	}

	s.metrics.ContractFunded()
	s.logger.Info("Contract funded",
		slog.String("contract_id", funded.ID),
		slog.String("order_id", confirmation.OrderID),
		slog.String("payment_id", confirmation.PaymentID),
	)

	title := "Escrow for your contract has been funded"
	if job, err := s.store.GetJob(ctx, funded.JobID); err == nil {
		title = fmt.Sprintf("Escrow for %q has been funded", job.Title)
	}
	s.publish(ctx, events.New(
		events.TypeContractFunded,
		funded.JobID,
		caller.ID,
		caller.DisplayName(anonymousClient),
		funded.WorkerID,
		title,
	).Keyed(funded.ID))

	return funded, nil
}

// RecordPaymentFailure notes a failed checkout. The contract stays unfunded and the
// client may start a new payment order.
func (s *Service) RecordPaymentFailure(ctx context.Context, caller *domain.Identity, contractID string, failure PaymentFailure) error {
	contract, err := s.clientContract(ctx, caller, contractID)
	if err != nil {
		return err
	}

	s.metrics.PaymentFailed()
	s.logger.Warn("Payment failed",
		slog.String("contract_id", contract.ID),
		slog.String("code", failure.Code),
		slog.String("description", failure.Description),
	)

	reason := strings.TrimSpace(strings.Trim(failure.Code+" - "+failure.Description, " -"))
	return domain.PaymentDeclined(reason)
}

// clientContract loads a contract the caller must be the paying client of
func (s *Service) clientContract(ctx context.Context, caller *domain.Identity, contractID string) (*domain.Contract, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}

	contract, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != caller.ID {
		return nil, domain.ErrNotJobOwner
	}
	return contract, nil
}
