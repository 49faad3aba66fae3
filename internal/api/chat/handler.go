package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/pkg/logger"
	"github.com/futig/kbchat-backend/internal/pkg/response"
	"github.com/futig/kbchat-backend/internal/strategy"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	contentFilterMessage = "Your message contains content that was flagged by the OpenAI content filter."
	genericErrorMessage  = "The app encountered an error processing your request.\n" +
		"If you are an administrator of the app, view the full error in the logs. " +
		"See aka.ms/appservice-logs for more information.\nError type: %s"
)

type Handler struct {
	usecase ChatUsecase
}

func NewHandler(usecase ChatUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// Ask handles POST /ask - single-turn question against the bound corpus
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Ask")

	var req entity.AskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	res, err := h.usecase.Ask(ctx, &req, r.Header)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "ask answered")
	response.Success(w, res.Answer)
}

// Chat handles POST /chat - multi-turn chat, optionally streamed as NDJSON
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	var req entity.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	res, err := h.usecase.Chat(ctx, &req, r.Header)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	switch res.Kind {
	case strategy.ResultStream:
		if err := writeNDJSON(ctx, w, res.Stream); err != nil {
			h.handleUsecaseError(ctx, w, err)
			return
		}
		ctxzap.Info(ctx, "chat stream finished")
	default:
		ctxzap.Info(ctx, "chat answered")
		response.Success(w, res.Answer)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if !isJSON(r.Header.Get("Content-Type")) {
		return entity.ErrNotJSON
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", entity.ErrNotJSON, err)
	}
	return nil
}

// isJSON accepts application/json and structured +json media types.
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" ||
		(strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"))
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, "request failed", zap.Int("status", status), zap.Error(err))
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrNotJSON):
		h.respondError(ctx, w, http.StatusUnsupportedMediaType, err.Error(), err)
	case errors.Is(err, entity.ErrContentFilter):
		h.respondError(ctx, w, http.StatusBadRequest, contentFilterMessage, err)
	case errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidFormat),
		errors.Is(err, entity.ErrInvalidParameter):
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, entity.ErrUnauthorized):
		h.respondError(ctx, w, http.StatusUnauthorized, err.Error(), err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, errorMessage(err), err)
	}
}

// errorMessage is the text written for a failure that has no client-facing
// status, including errors raised after a stream has started. Only the type
// of the innermost error is exposed.
func errorMessage(err error) string {
	if errors.Is(err, entity.ErrContentFilter) {
		return contentFilterMessage
	}
	return fmt.Sprintf(genericErrorMessage, rootType(err))
}

// rootType follows the wrap chain to its end. For joined errors the last one
// is taken, which is the cause in "%w: %w" wrapping.
func rootType(err error) string {
	for {
		switch e := err.(type) {
		case interface{ Unwrap() error }:
			if next := e.Unwrap(); next != nil {
				err = next
				continue
			}
		case interface{ Unwrap() []error }:
			if errs := e.Unwrap(); len(errs) > 0 {
				err = errs[len(errs)-1]
				continue
			}
		}
		return fmt.Sprintf("%T", err)
	}
}
