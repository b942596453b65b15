package dto

import (
	"encoding/json"
	"strings"

	"github.com/cuongbtq/gigmarket/internal/domain"
)

// BidRequest carries a bid amount. The amount may arrive as a JSON number or a
// string typed into a form, and must be a whole number either way.
type BidRequest struct {
	Amount json.RawMessage `json:"amount" binding:"required"`
}

// ParseAmount returns the amount as a whole number
func (r BidRequest) ParseAmount() (int64, error) {
	return domain.ParseAmount(strings.Trim(string(r.Amount), `"`))
}

type BidsResponse struct {
	Bids []domain.Bid `json:"bids"`
}

type WorkerBidsResponse struct {
	Bids []domain.WorkerBid `json:"bids"`
}
