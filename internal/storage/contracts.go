package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cuongbtq/gigmarket/internal/domain"
)

// GetContract retrieves a contract by its ID
func (s *Storage) GetContract(ctx context.Context, contractID string) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`

	var contract domain.Contract
	if err := s.db.GetContext(ctx, &contract, query, contractID); err != nil {
		return nil, notFound(err, domain.ErrContractNotFound, "get contract")
	}

	return &contract, nil
}

// SetPaymentOrder records the gateway order a client is about to pay.
// A new order replaces an abandoned one; funded contracts are left alone.
func (s *Storage) SetPaymentOrder(ctx context.Context, contractID, orderID string) (*domain.Contract, error) {
	query := `
		UPDATE contracts
		SET payment_order_id = $1,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + contractColumns

	var contract domain.Contract
	err := s.db.GetContext(ctx, &contract, query, orderID, contractID, domain.ContractStatusUnfunded)
	if err == nil {
		return &contract, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable(err, "set payment order")
	}

	if _, getErr := s.GetContract(ctx, contractID); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrContractAlreadyFunded
}

// MarkContractFunded moves an unfunded contract to funded for the given order.
// Replaying the same payment returns the funded contract unchanged.
func (s *Storage) MarkContractFunded(ctx context.Context, contractID, orderID, paymentID string) (*domain.Contract, error) {
	query := `
		UPDATE contracts
		SET status = $1,
		    payment_id = $2,
		    funded_at = NOW(),
		    updated_at = NOW()
		WHERE id = $3 AND status = $4 AND payment_order_id = $5
		RETURNING ` + contractColumns

	var contract domain.Contract
	err := s.db.GetContext(ctx, &contract, query,
		domain.ContractStatusFunded,
		paymentID,
		contractID,
		domain.ContractStatusUnfunded,
		orderID,
	)
	if err == nil {
		return &contract, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable(err, "mark contract funded")
	}

	existing, getErr := s.GetContract(ctx, contractID)
	if getErr != nil {
		return nil, getErr
	}
	if existing.IsFunded() {
		if existing.PaymentID != nil && *existing.PaymentID == paymentID {
			return existing, nil
		}
		return nil, domain.ErrContractAlreadyFunded
	}
	return nil, domain.ErrPaymentOrderMismatch
}
