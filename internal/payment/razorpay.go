package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL  = "https://api.razorpay.com"
	defaultCurrency = "INR"
	ordersPath      = "/v1/orders"
)

var minorUnitsPerMajor = decimal.NewFromInt(100)

// Config holds Razorpay credentials
type Config struct {
	BaseURL        string
	KeyID          string
	KeySecret      string
	Currency       string
	RequestTimeout time.Duration
}

// Validate checks that credentials are present
func (c *Config) Validate() error {
	if c.KeyID == "" {
		return errors.New("razorpay key id is required")
	}
	if c.KeySecret == "" {
		return errors.New("razorpay key secret is required")
	}
	return nil
}

// Order is a Razorpay order the client pays against
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// RazorpayGateway creates orders through the Razorpay Orders API
// and verifies checkout signatures.
type RazorpayGateway struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewRazorpayGateway creates a gateway client
func NewRazorpayGateway(config *Config, logger *slog.Logger) (*RazorpayGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Currency == "" {
		config.Currency = defaultCurrency
	}

	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &RazorpayGateway{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}, nil
}

// ToMinorUnits converts a whole-unit amount to the gateway's smallest unit (paise)
func ToMinorUnits(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(minorUnitsPerMajor).IntPart()
}

// CreateOrder creates an order for amount, given in whole currency units
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64) (*Order, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	reqBody := createOrderRequest{
		Amount:   ToMinorUnits(amount),
		Currency: g.config.Currency,
		Receipt:  "receipt_" + strconv.FormatInt(g.now().UnixMilli(), 10),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to encode order: %w", err)
	}

	g.logger.Debug("Creating Razorpay order",
		slog.Int64("amount", reqBody.Amount),
		slog.String("currency", reqBody.Currency),
		slog.String("receipt", reqBody.Receipt),
	)

	respBody, err := g.doRequest(ctx, http.MethodPost, ordersPath, body)
	if err != nil {
		g.logger.Error("Failed to create Razorpay order",
			slog.Int64("amount", reqBody.Amount),
			slog.Any("error", err),
		)
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, domain.Unavailable(fmt.Errorf("razorpay: failed to decode order: %w", err))
	}
	if order.ID == "" {
		return nil, domain.Unavailable(errors.New("razorpay: order response has no id"))
	}

	g.logger.Info("Created Razorpay order",
		slog.String("order_id", order.ID),
		slog.Int64("amount", order.Amount),
	)

	return &order, nil
}

// VerifySignature checks the checkout signature, HMAC-SHA256 of "order_id|payment_id"
// keyed with the API secret.
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, Sign(g.config.KeySecret, orderID, paymentID))
}

// Sign computes the raw checkout signature for an order and payment
func Sign(secret, orderID, paymentID string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return mac.Sum(nil)
}

func (g *RazorpayGateway) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(g.config.BaseURL, "/")+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(g.config.KeyID, g.config.KeySecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, domain.Unavailable(fmt.Errorf("razorpay: request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Unavailable(fmt.Errorf("razorpay: failed to read response: %w", err))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, domain.Unavailable(fmt.Errorf("razorpay: HTTP %d", resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Description != "" {
			return nil, domain.PaymentDeclined(errResp.Error.Description)
		}
		return nil, domain.PaymentDeclined(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	return respBody, nil
}
