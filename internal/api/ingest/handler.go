package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/pkg/logger"
	"github.com/futig/kbchat-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	resultUploaded = "uploadedFiles"
	resultQueued   = "queuedScript"
)

type Handler struct {
	usecase     IngestUsecase
	maxBodySize int64
}

// NewHandler limits /uploadFiles bodies to maxBodySize bytes; zero disables the limit.
func NewHandler(usecase IngestUsecase, maxBodySize int64) *Handler {
	return &Handler{usecase: usecase, maxBodySize: maxBodySize}
}

// UploadFiles handles POST /uploadFiles - stage files, rebind and queue ingestion
func (h *Handler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UploadFiles")

	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	var req entity.UploadFilesRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctx = logger.AddFields(ctx,
		zap.String("azure_index", req.AzureIndex),
		zap.String("azure_container", req.AzureContainer),
		zap.Int("file_count", len(req.Files)),
	)

	job, err := h.usecase.UploadFiles(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "files uploaded", zap.String("job_id", job.ID))
	response.Accepted(w, entity.IngestionAccepted{
		Result:         resultUploaded,
		AzureIndex:     job.Corpus.Index,
		AzureContainer: job.Corpus.Container,
		Job:            job,
	})
}

// RunScript handles POST /runScript - queue ingestion for a pair or the bound corpus
func (h *Handler) RunScript(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "RunScript")

	var req entity.RunScriptRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			h.handleUsecaseError(ctx, w, err)
			return
		}
	}

	job, err := h.usecase.RunScript(ctx, entity.Corpus{Index: req.AzureIndex, Container: req.AzureContainer})
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "ingestion script queued", zap.String("job_id", job.ID))
	response.Accepted(w, entity.IngestionAccepted{
		Result:         resultQueued,
		AzureIndex:     job.Corpus.Index,
		AzureContainer: job.Corpus.Container,
		Job:            job,
	})
}

// GetJob handles GET /ingestions/{id} - ingestion job status
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("job_id", jobID),
		zap.String("action", "GetJob"),
	)

	job, err := h.usecase.GetJob(ctx, jobID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, job)
}

func decodeJSON(r *http.Request, dst any) error {
	if !isJSON(r.Header.Get("Content-Type")) {
		return entity.ErrNotJSON
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return err
		case errors.As(err, &tooLarge):
			return fmt.Errorf("%w: limit is %d bytes", entity.ErrRequestTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %w", entity.ErrNotJSON, err)
	}
	return nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" ||
		(strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"))
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Error(err))
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrNotJSON):
		h.respondError(ctx, w, http.StatusUnsupportedMediaType, "request must be json", err)
	case errors.Is(err, entity.ErrMissingField), errors.Is(err, entity.ErrInvalidFormat):
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, entity.ErrInvalidExtension), errors.Is(err, entity.ErrFileTooLarge), errors.Is(err, entity.ErrTooManyFiles):
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, entity.ErrRequestTooLarge):
		h.respondError(ctx, w, http.StatusRequestEntityTooLarge, err.Error(), err)
	case errors.Is(err, entity.ErrJobNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "ingestion job not found", err)
	case errors.Is(err, entity.ErrConfiguration), errors.Is(err, entity.ErrCorpusUnavailable):
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to bind corpus", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to queue ingestion", err)
	}
}
