package handler

import (
	"net/http"

	"github.com/cuongbtq/gigmarket/internal/api/dto"
	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/cuongbtq/gigmarket/internal/marketplace"
	"github.com/gin-gonic/gin"
)

// GetContract handles GET /api/v1/contracts/:contract_id
func (h *Handler) GetContract(c *gin.Context) {
	contractID, ok := h.uuidParam(c, "contract_id")
	if !ok {
		return
	}

	contract, err := h.marketplace.GetContract(c.Request.Context(), auth.IdentityFrom(c), contractID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// CreatePaymentOrder handles POST /api/v1/contracts/:contract_id/payment-order and
// returns the options the client passes to the checkout widget
func (h *Handler) CreatePaymentOrder(c *gin.Context) {
	contractID, ok := h.uuidParam(c, "contract_id")
	if !ok {
		return
	}

	ctx, cancel := h.writeContext(c)
	defer cancel()

	checkout, err := h.marketplace.CreatePaymentOrder(ctx, auth.IdentityFrom(c), contractID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkout)
}

// ConfirmPayment handles POST /api/v1/contracts/:contract_id/payment/confirm
func (h *Handler) ConfirmPayment(c *gin.Context) {
	contractID, ok := h.uuidParam(c, "contract_id")
	if !ok {
		return
	}

	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	ctx, cancel := h.writeContext(c)
	defer cancel()

	contract, err := h.marketplace.ConfirmPayment(ctx, auth.IdentityFrom(c), contractID, marketplace.PaymentConfirmation{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// RecordPaymentFailure handles POST /api/v1/contracts/:contract_id/payment/failure.
// The contract stays unfunded; the response carries the decline reason.
func (h *Handler) RecordPaymentFailure(c *gin.Context) {
	contractID, ok := h.uuidParam(c, "contract_id")
	if !ok {
		return
	}

	var req dto.PaymentFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	err := h.marketplace.RecordPaymentFailure(c.Request.Context(), auth.IdentityFrom(c), contractID, marketplace.PaymentFailure{
		Code:        req.Code,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
