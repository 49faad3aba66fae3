package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/pkg/dataurl"
	"github.com/futig/kbchat-backend/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Usecase stages uploads and queues ingestion jobs.
type Usecase struct {
	binding   CorpusBinding
	jobs      JobRepository
	runner    Runner
	validator UploadValidator
	dataDir   string
	logger    *zap.Logger
}

func NewUsecase(
	binding CorpusBinding,
	jobs JobRepository,
	runner Runner,
	validator UploadValidator,
	dataDir string,
	logger *zap.Logger,
) *Usecase {
	return &Usecase{
		binding:   binding,
		jobs:      jobs,
		runner:    runner,
		validator: validator,
		dataDir:   dataDir,
		logger:    logger,
	}
}

// UploadFiles decodes the data-URL files into a fresh staging directory,
// rebinds the corpus to the target pair and queues an ingestion job for it.
func (uc *Usecase) UploadFiles(ctx context.Context, req *entity.UploadFilesRequest) (*entity.IngestionJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	files := make([]entity.FileData, 0, len(req.Files))
	for _, f := range req.Files {
		content, err := dataurl.Decode(f.Content)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", f.Name, err)
		}
		name := validator.SanitizeFilename(f.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: file name %q", entity.ErrInvalidFormat, f.Name)
		}
		files = append(files, entity.FileData{Filename: name, Content: content})
	}
	if err := uc.validator.ValidateUpload(files); err != nil {
		return nil, err
	}

	job := newJob(req.Corpus())
	job.FileCount = len(files)

	dir, err := uc.stage(job.ID, files)
	if err != nil {
		return nil, err
	}
	job.DataDir = dir

	if _, err := uc.binding.Rebind(ctx, job.Corpus); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("rebind corpus: %w", err)
	}

	if err := uc.enqueue(ctx, job); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	ctxzap.Info(ctx, "upload staged for ingestion",
		zap.String("job_id", job.ID),
		zap.Int("file_count", job.FileCount),
	)

	return job, nil
}

// RunScript queues an ingestion job for target, or for the bound corpus when
// target is empty.
func (uc *Usecase) RunScript(ctx context.Context, target entity.Corpus) (*entity.IngestionJob, error) {
	if target == (entity.Corpus{}) {
		target = uc.binding.Current().Corpus
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	job := newJob(target)
	if err := uc.enqueue(ctx, job); err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "ingestion queued", zap.String("job_id", job.ID), zap.Stringer("corpus", target))
	return job, nil
}

func (uc *Usecase) GetJob(ctx context.Context, id string) (*entity.IngestionJob, error) {
	job, err := uc.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get ingestion job: %w", err)
	}
	return job, nil
}

func (uc *Usecase) enqueue(ctx context.Context, job *entity.IngestionJob) error {
	if err := uc.jobs.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("create ingestion job: %w", err)
	}

	if err := uc.runner.Enqueue(job); err != nil {
		job.Status = entity.JobStatusFailed
		job.Error = err.Error()
		now := time.Now().UTC()
		job.FinishedAt = &now
		if uerr := uc.jobs.UpdateJob(ctx, job); uerr != nil {
			ctxzap.Error(ctx, "failed to mark job failed", zap.Error(uerr))
		}
		return fmt.Errorf("%w: %w", entity.ErrIngestionFailed, err)
	}

	return nil
}

// stage writes files into <dataDir>/<jobID>, so concurrent uploads never share a folder.
func (uc *Usecase) stage(jobID string, files []entity.FileData) (string, error) {
	dir := filepath.Join(uc.dataDir, jobID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}

	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.Filename), f.Content, 0o640); err != nil {
			_ = os.RemoveAll(dir)
			return "", fmt.Errorf("stage file %s: %w", f.Filename, err)
		}
	}

	return dir, nil
}

func newJob(c entity.Corpus) *entity.IngestionJob {
	return &entity.IngestionJob{
		ID:        uuid.NewString(),
		Corpus:    c,
		Status:    entity.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
}
