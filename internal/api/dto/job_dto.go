package dto

import (
	"time"

	"github.com/cuongbtq/gigmarket/internal/domain"
)

type CreateJobRequest struct {
	Title       string     `json:"title" binding:"required,notblank,max=200"`
	Description string     `json:"description" binding:"max=10000"`
	Budget      int64      `json:"budget" binding:"required,gt=0"`
	Deadline    *time.Time `json:"deadline"`
}

// Draft converts the request into a job draft
func (r CreateJobRequest) Draft() domain.JobDraft {
	return domain.JobDraft{
		Title:       r.Title,
		Description: r.Description,
		Budget:      r.Budget,
		Deadline:    r.Deadline,
	}
}

type ListJobsRequest struct {
	PageSize int    `form:"page_size" binding:"omitempty,min=1"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []domain.Job `json:"jobs"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type JobDetailResponse struct {
	Job  *domain.Job  `json:"job"`
	Bids []domain.Bid `json:"bids"`
}
