package content

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/pkg/logger"
	"github.com/futig/kbchat-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	octetStream = "application/octet-stream"
	pageMarker  = "#page="
)

func init() {
	// Some hosts ship without these in their mime tables.
	_ = mime.AddExtensionType(".js", "application/javascript")
	_ = mime.AddExtensionType(".css", "text/css")
}

type Handler struct {
	binding CorpusBinding
}

func NewHandler(binding CorpusBinding) *Handler {
	return &Handler{binding: binding}
}

// GetContent handles GET /content/* - serve a source document from the bound container
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	name := blobName(r.URL.Path)
	ctx := logger.AddFields(r.Context(),
		zap.String("action", "GetContent"),
		zap.String("blob", name),
	)

	if name == "" {
		response.Error(w, http.StatusNotFound, "not found")
		return
	}

	snap := h.binding.Current()
	blob, err := snap.Container.Download(ctx, name)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			ctxzap.Info(ctx, "content not found", zap.Stringer("corpus", snap.Corpus))
			response.Error(w, http.StatusNotFound, "not found")
			return
		}
		ctxzap.Error(ctx, "failed to download content", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to download content")
		return
	}

	w.Header().Set("Content-Type", contentType(blob.ContentType, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Content)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{
		"filename": path.Base(name),
	}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Content); err != nil {
		ctxzap.Warn(ctx, "failed to write content", zap.Error(err))
	}
}

// blobName strips the route prefix and any "#page=" display hint.
func blobName(urlPath string) string {
	name := strings.TrimPrefix(urlPath, "/content/")
	if i := strings.Index(name, pageMarker); i >= 0 {
		name = name[:i]
	}
	return name
}

// contentType prefers the stored type and guesses from the extension when
// the store only knows it as generic binary.
func contentType(stored, name string) string {
	if stored != "" && stored != octetStream {
		return stored
	}
	if guessed := mime.TypeByExtension(path.Ext(name)); guessed != "" {
		return guessed
	}
	return octetStream
}
