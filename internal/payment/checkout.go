package payment

// Prefill is shown pre-populated on the checkout form
type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CheckoutConfig is everything a client needs to open Razorpay Checkout for an order
type CheckoutConfig struct {
	Key         string  `json:"key"`
	OrderID     string  `json:"order_id"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Prefill     Prefill `json:"prefill"`
}

// Checkout builds the checkout options for an order
func (g *RazorpayGateway) Checkout(order *Order, description string, prefill Prefill) *CheckoutConfig {
	currency := order.Currency
	if currency == "" {
		currency = g.config.Currency
	}
	return &CheckoutConfig{
		Key:         g.config.KeyID,
		OrderID:     order.ID,
		Amount:      order.Amount,
		Currency:    currency,
		Description: description,
		Prefill:     prefill,
	}
}
