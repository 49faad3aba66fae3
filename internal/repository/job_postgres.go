package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRepository defines the interface for ingestion job persistence
type JobRepository interface {
	CreateJob(ctx context.Context, job *entity.IngestionJob) error
	UpdateJob(ctx context.Context, job *entity.IngestionJob) error
	GetJob(ctx context.Context, id string) (*entity.IngestionJob, error)
}

var (
	_ JobRepository = &JobPostgres{}
	_ JobRepository = &JobMemory{}
)

const (
	insertJobQuery = `
INSERT INTO ingestion_jobs (id, azure_index, azure_container, status, error, file_count, created_at, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateJobQuery = `
UPDATE ingestion_jobs
SET status = $2, error = $3, started_at = $4, finished_at = $5
WHERE id = $1`

	selectJobQuery = `
SELECT id, azure_index, azure_container, status, error, file_count, created_at, started_at, finished_at
FROM ingestion_jobs
WHERE id = $1`
)

// JobPostgres implements JobRepository using PostgreSQL
type JobPostgres struct {
	db *pgxpool.Pool
}

func NewJobPostgres(db *pgxpool.Pool) *JobPostgres {
	return &JobPostgres{db: db}
}

func (r *JobPostgres) CreateJob(ctx context.Context, job *entity.IngestionJob) error {
	row, err := toDBJob(job)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, insertJobQuery,
		row.ID, row.AzureIndex, row.AzureContainer, row.Status, row.Error,
		row.FileCount, row.CreatedAt, row.StartedAt, row.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ingestion job: %w", err)
	}

	return nil
}

func (r *JobPostgres) UpdateJob(ctx context.Context, job *entity.IngestionJob) error {
	row, err := toDBJob(job)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, updateJobQuery, row.ID, row.Status, row.Error, row.StartedAt, row.FinishedAt)
	if err != nil {
		return fmt.Errorf("update ingestion job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", entity.ErrJobNotFound, job.ID)
	}

	return nil
}

func (r *JobPostgres) GetJob(ctx context.Context, id string) (*entity.IngestionJob, error) {
	jobID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrJobNotFound, id)
	}

	var row dbJob
	err = r.db.QueryRow(ctx, selectJobQuery, pgtype.UUID{Bytes: jobID, Valid: true}).Scan(
		&row.ID, &row.AzureIndex, &row.AzureContainer, &row.Status, &row.Error,
		&row.FileCount, &row.CreatedAt, &row.StartedAt, &row.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", entity.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("query ingestion job: %w", err)
	}

	return toEntityJob(&row), nil
}
