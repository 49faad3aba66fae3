package ingest

import (
	"context"

	"github.com/futig/kbchat-backend/internal/entity"
)

type IngestUsecase interface {
	UploadFiles(ctx context.Context, req *entity.UploadFilesRequest) (*entity.IngestionJob, error)
	RunScript(ctx context.Context, target entity.Corpus) (*entity.IngestionJob, error)
	GetJob(ctx context.Context, id string) (*entity.IngestionJob, error)
}
