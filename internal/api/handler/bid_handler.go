package handler

import (
	"net/http"

	"github.com/cuongbtq/gigmarket/internal/api/dto"
	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/gin-gonic/gin"
)

// ListBids handles GET /api/v1/jobs/:job_id/bids
func (h *Handler) ListBids(c *gin.Context) {
	jobID, ok := h.uuidParam(c, "job_id")
	if !ok {
		return
	}

	bids, err := h.marketplace.ListBids(c.Request.Context(), auth.IdentityFrom(c), jobID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BidsResponse{Bids: nonNil(bids)})
}

// PlaceBid handles POST /api/v1/jobs/:job_id/bids
func (h *Handler) PlaceBid(c *gin.Context) {
	jobID, ok := h.uuidParam(c, "job_id")
	if !ok {
		return
	}

	var req dto.BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}
	amount, err := req.ParseAmount()
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := h.writeContext(c)
	defer cancel()

	bid, err := h.marketplace.PlaceBid(ctx, auth.IdentityFrom(c), jobID, amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

// UpdateBid handles PATCH /api/v1/bids/:bid_id
func (h *Handler) UpdateBid(c *gin.Context) {
	bidID, ok := h.uuidParam(c, "bid_id")
	if !ok {
		return
	}

	var req dto.BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}
	amount, err := req.ParseAmount()
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := h.writeContext(c)
	defer cancel()

	bid, err := h.marketplace.UpdateBid(ctx, auth.IdentityFrom(c), bidID, amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

// ListMyBids handles GET /api/v1/bids/mine
func (h *Handler) ListMyBids(c *gin.Context) {
	bids, err := h.marketplace.ListMyBids(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WorkerBidsResponse{Bids: nonNil(bids)})
}

// AcceptBid handles POST /api/v1/jobs/:job_id/bids/:bid_id/accept.
// It answers with the in-progress job and the new unfunded contract.
func (h *Handler) AcceptBid(c *gin.Context) {
	jobID, ok := h.uuidParam(c, "job_id")
	if !ok {
		return
	}
	bidID, ok := h.uuidParam(c, "bid_id")
	if !ok {
		return
	}

	ctx, cancel := h.writeContext(c)
	defer cancel()

	hire, err := h.marketplace.AcceptBid(ctx, auth.IdentityFrom(c), jobID, bidID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, hire)
}
