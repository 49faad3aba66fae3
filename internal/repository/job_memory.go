package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/patrickmn/go-cache"
)

// JobMemory keeps ingestion jobs in process memory for ttl. Used when no
// database is configured.
type JobMemory struct {
	jobs *cache.Cache
}

func NewJobMemory(ttl time.Duration) *JobMemory {
	return &JobMemory{
		jobs: cache.New(ttl, ttl/2),
	}
}

func (r *JobMemory) CreateJob(_ context.Context, job *entity.IngestionJob) error {
	if err := r.jobs.Add(job.ID, *job, cache.DefaultExpiration); err != nil {
		return fmt.Errorf("create ingestion job: %w", err)
	}
	return nil
}

func (r *JobMemory) UpdateJob(_ context.Context, job *entity.IngestionJob) error {
	if err := r.jobs.Replace(job.ID, *job, cache.DefaultExpiration); err != nil {
		return fmt.Errorf("%w: %s", entity.ErrJobNotFound, job.ID)
	}
	return nil
}

func (r *JobMemory) GetJob(_ context.Context, id string) (*entity.IngestionJob, error) {
	v, ok := r.jobs.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrJobNotFound, id)
	}
	job := v.(entity.IngestionJob)
	return &job, nil
}
