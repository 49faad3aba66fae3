package repository

import (
	"context"
	"testing"
	"time"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMemory_Lifecycle(t *testing.T) {
	repo := NewJobMemory(time.Minute)
	ctx := context.Background()

	job := &entity.IngestionJob{
		ID:        uuid.NewString(),
		Corpus:    entity.Corpus{Index: "idx", Container: "cont"},
		Status:    entity.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateJob(ctx, job))
	assert.Error(t, repo.CreateJob(ctx, job), "duplicate id")

	// Stored values are copies.
	job.Status = entity.JobStatusRunning
	got, err := repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusQueued, got.Status)

	require.NoError(t, repo.UpdateJob(ctx, job))
	got, err = repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusRunning, got.Status)
	assert.Equal(t, job.Corpus, got.Corpus)
}

func TestJobMemory_NotFound(t *testing.T) {
	repo := NewJobMemory(time.Minute)

	_, err := repo.GetJob(context.Background(), "nope")
	assert.ErrorIs(t, err, entity.ErrJobNotFound)

	err = repo.UpdateJob(context.Background(), &entity.IngestionJob{ID: "nope"})
	assert.ErrorIs(t, err, entity.ErrJobNotFound)
}

func TestJobMemory_Expiry(t *testing.T) {
	repo := NewJobMemory(20 * time.Millisecond)
	job := &entity.IngestionJob{ID: "short-lived"}
	require.NoError(t, repo.CreateJob(context.Background(), job))

	require.Eventually(t, func() bool {
		_, err := repo.GetJob(context.Background(), job.ID)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestConverter_RoundTrip(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	job := &entity.IngestionJob{
		ID:        uuid.NewString(),
		Corpus:    entity.Corpus{Index: "idx", Container: "cont"},
		Status:    entity.JobStatusFailed,
		Error:     "ingestion failed: boom",
		FileCount: 2,
		CreatedAt: started.Add(-time.Minute),
		StartedAt: &started,
	}

	row, err := toDBJob(job)
	require.NoError(t, err)
	assert.False(t, row.FinishedAt.Valid)

	back := toEntityJob(row)
	assert.Equal(t, job.ID, back.ID)
	assert.Equal(t, job.Error, back.Error)
	assert.Equal(t, job.FileCount, back.FileCount)
	require.NotNil(t, back.StartedAt)
	assert.True(t, started.Equal(*back.StartedAt))
	assert.Nil(t, back.FinishedAt)

	_, err = toDBJob(&entity.IngestionJob{ID: "not-a-uuid"})
	assert.Error(t, err)
}
