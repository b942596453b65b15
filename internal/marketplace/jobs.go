package marketplace

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/cuongbtq/gigmarket/internal/storage"
)

// JobPage is one page of the open-jobs listing
type JobPage struct {
	Jobs       []domain.Job
	NextCursor *storage.JobCursor
}

// PostJob publishes a new open job on behalf of the caller
func (s *Service) PostJob(ctx context.Context, caller *domain.Identity, draft domain.JobDraft) (*domain.Job, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}
	if err := domain.ValidateJobDraft(draft); err != nil {
		return nil, err
	}

	job, err := s.store.CreateJob(ctx, &domain.Job{
		Title:       draft.Title,
		Description: draft.Description,
		Budget:      draft.Budget,
		Deadline:    draft.Deadline,
		ClientID:    caller.ID,
		ClientName:  caller.DisplayName(anonymousClient),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Job posted",
		slog.String("job_id", job.ID),
		slog.String("client_id", job.ClientID),
		slog.Int64("budget", job.Budget),
	)
	return job, nil
}

// GetJob returns a single job
func (s *Service) GetJob(ctx context.Context, caller *domain.Identity, jobID string) (*domain.Job, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}
	return s.store.GetJob(ctx, jobID)
}

// ListOpenJobs returns a page of jobs still accepting bids, newest first
func (s *Service) ListOpenJobs(ctx context.Context, caller *domain.Identity, pageSize int, cursor *storage.JobCursor) (*JobPage, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}

	if pageSize <= 0 {
		pageSize = s.config.DefaultPageSize
	}
	if pageSize > s.config.MaxPageSize {
		pageSize = s.config.MaxPageSize
	}

	jobs, err := s.store.ListOpenJobs(ctx, storage.JobFilter{PageSize: pageSize, Cursor: cursor})
	if err != nil {
		return nil, err
	}

	page := &JobPage{Jobs: jobs}
	if len(jobs) > pageSize {
		page.Jobs = jobs[:pageSize]
		last := page.Jobs[pageSize-1]
		page.NextCursor = &storage.JobCursor{CreatedAt: last.CreatedAt, JobID: last.ID}
	}
	return page, nil
}

// ListMyJobs returns the jobs the caller posted
func (s *Service) ListMyJobs(ctx context.Context, caller *domain.Identity) ([]domain.Job, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}
	return s.store.ListJobsByClient(ctx, caller.ID)
}
