package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/gigmarket/internal/api/dto"
	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// uuidParam returns a path parameter that must be a UUID, answering 400 otherwise
func (h *Handler) uuidParam(c *gin.Context, name string) (string, bool) {
	value := c.Param(name)
	if _, err := uuid.Parse(value); err != nil {
		h.logger.Debug("Invalid path parameter",
			slog.String("param", name),
			slog.String("value", value),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": name + " must be a valid UUID",
			"code":  domain.ErrInvalidInput.Code,
		})
		return "", false
	}
	return value, true
}

// CreateJob handles POST /api/v1/jobs
func (h *Handler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	ctx, cancel := h.writeContext(c)
	defer cancel()

	job, err := h.marketplace.PostJob(ctx, auth.IdentityFrom(c), req.Draft())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob handles GET /api/v1/jobs/:job_id and returns the job with its bids
func (h *Handler) GetJob(c *gin.Context) {
	jobID, ok := h.uuidParam(c, "job_id")
	if !ok {
		return
	}

	caller := auth.IdentityFrom(c)
	job, err := h.marketplace.GetJob(c.Request.Context(), caller, jobID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	bids, err := h.marketplace.ListBids(c.Request.Context(), caller, jobID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.JobDetailResponse{Job: job, Bids: nonNil(bids)})
}

// ListJobs handles GET /api/v1/jobs: open jobs, newest first, cursor paginated
func (h *Handler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Debug("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid cursor",
			"code":  domain.ErrInvalidInput.Code,
		})
		return
	}

	page, err := h.marketplace.ListOpenJobs(c.Request.Context(), auth.IdentityFrom(c), req.PageSize, cursor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       nonNil(page.Jobs),
		NextCursor: EncodeJobCursor(page.NextCursor),
	})
}

// ListMyJobs handles GET /api/v1/jobs/mine
func (h *Handler) ListMyJobs(c *gin.Context) {
	jobs, err := h.marketplace.ListMyJobs(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: nonNil(jobs)})
}

// nonNil keeps empty lists encoded as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
