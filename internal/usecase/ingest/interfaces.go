package ingest

import (
	"context"

	"github.com/futig/kbchat-backend/internal/corpus"
	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/repository"
)

type CorpusBinding interface {
	Current() *corpus.Snapshot
	Rebind(ctx context.Context, c entity.Corpus) (*corpus.Snapshot, error)
}

type JobRepository = repository.JobRepository

// Runner executes queued jobs in the background.
type Runner interface {
	Enqueue(job *entity.IngestionJob) error
}

type UploadValidator interface {
	ValidateUpload(files []entity.FileData) error
}
