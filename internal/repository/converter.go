package repository

import (
	"fmt"
	"time"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// dbJob mirrors one ingestion_jobs row.
type dbJob struct {
	ID             pgtype.UUID
	AzureIndex     string
	AzureContainer string
	Status         string
	Error          pgtype.Text
	FileCount      int32
	CreatedAt      pgtype.Timestamptz
	StartedAt      pgtype.Timestamptz
	FinishedAt     pgtype.Timestamptz
}

func toDBJob(job *entity.IngestionJob) (*dbJob, error) {
	jobID, err := uuid.Parse(job.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid job ID: %w", err)
	}

	return &dbJob{
		ID:             pgtype.UUID{Bytes: jobID, Valid: true},
		AzureIndex:     job.Corpus.Index,
		AzureContainer: job.Corpus.Container,
		Status:         string(job.Status),
		Error:          pgtype.Text{String: job.Error, Valid: job.Error != ""},
		FileCount:      int32(job.FileCount),
		CreatedAt:      pgtype.Timestamptz{Time: job.CreatedAt, Valid: true},
		StartedAt:      toTimestamptz(job.StartedAt),
		FinishedAt:     toTimestamptz(job.FinishedAt),
	}, nil
}

func toEntityJob(row *dbJob) *entity.IngestionJob {
	return &entity.IngestionJob{
		ID: uuid.UUID(row.ID.Bytes).String(),
		Corpus: entity.Corpus{
			Index:     row.AzureIndex,
			Container: row.AzureContainer,
		},
		Status:     entity.JobStatus(row.Status),
		Error:      row.Error.String,
		FileCount:  int(row.FileCount),
		CreatedAt:  row.CreatedAt.Time,
		StartedAt:  fromTimestamptz(row.StartedAt),
		FinishedAt: fromTimestamptz(row.FinishedAt),
	}
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
