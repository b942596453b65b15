package storage

import (
	"context"
	"fmt"

	"github.com/cuongbtq/gigmarket/internal/domain"
)

// CreateJob inserts a new open job and returns the stored row
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	query := `
		INSERT INTO jobs (title, description, budget, deadline, client_id, client_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + jobColumns

	var created domain.Job
	err := s.db.GetContext(ctx, &created, query,
		job.Title,
		job.Description,
		job.Budget,
		job.Deadline,
		job.ClientID,
		job.ClientName,
		domain.JobStatusOpen,
	)
	if err != nil {
		return nil, unavailable(err, "create job")
	}

	return &created, nil
}

// GetJob retrieves a job by its ID
func (s *Storage) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		return nil, notFound(err, domain.ErrJobNotFound, "get job")
	}

	return &job, nil
}

// ListOpenJobs returns open jobs newest first, fetching one extra row so callers can detect more pages
func (s *Storage) ListOpenJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1`
	args := []interface{}{domain.JobStatusOpen}
	argIdx := 2

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	jobs := []domain.Job{}
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, unavailable(err, "list open jobs")
	}

	return jobs, nil
}

// ListJobsByClient returns every job posted by a client, newest first
func (s *Storage) ListJobsByClient(ctx context.Context, clientID string) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE client_id = $1 ORDER BY created_at DESC`

	jobs := []domain.Job{}
	if err := s.db.SelectContext(ctx, &jobs, query, clientID); err != nil {
		return nil, unavailable(err, "list client jobs")
	}

	return jobs, nil
}
