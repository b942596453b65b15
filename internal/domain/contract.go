package domain

import "time"

// Contract statuses
const (
	ContractStatusUnfunded = "unfunded"
	ContractStatusFunded   = "funded"
)

// Contract is the agreement created when a client accepts a bid
type Contract struct {
	ID             string     `db:"id" json:"id"`
	JobID          string     `db:"job_id" json:"job_id"`
	ClientID       string     `db:"client_id" json:"client_id"`
	WorkerID       string     `db:"worker_id" json:"worker_id"`
	Amount         int64      `db:"amount" json:"amount"`
	Status         string     `db:"status" json:"status"`
	PaymentOrderID *string    `db:"payment_order_id" json:"payment_order_id,omitempty"`
	PaymentID      *string    `db:"payment_id" json:"payment_id,omitempty"`
	FundedAt       *time.Time `db:"funded_at" json:"funded_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsFunded reports whether escrow has been funded
func (c *Contract) IsFunded() bool {
	return c.Status == ContractStatusFunded
}

// Hire is the result of accepting a bid: the updated job and its new contract
type Hire struct {
	Job      *Job      `json:"job"`
	Contract *Contract `json:"contract"`
}
