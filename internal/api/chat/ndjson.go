package chat

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const contentTypeNDJSON = "application/json-lines"

// writeNDJSON renders stream as one JSON object per line, flushing after each.
// An error from the first element is returned so the caller can still pick a
// status. Once output has begun, a failure ends the body with an {"error": ...}
// line instead.
func writeNDJSON(ctx context.Context, w http.ResponseWriter, stream iter.Seq2[*entity.Fragment, error]) error {
	next, stop := iter.Pull2(stream)
	defer stop()

	frag, err, ok := next()
	if ok && err != nil {
		return err
	}

	w.Header().Set("Content-Type", contentTypeNDJSON)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	lines := 0
	for ; ok; frag, err, ok = next() {
		if err != nil {
			ctxzap.Error(ctx, "stream failed after output began",
				zap.Int("lines_written", lines),
				zap.Error(err),
			)
			writeLine(ctx, enc, rc, entity.ErrorResponse{Error: errorMessage(err)})
			return nil
		}
		if !writeLine(ctx, enc, rc, frag) {
			return nil
		}
		lines++
	}

	return nil
}

// writeLine reports false once the client is gone.
func writeLine(ctx context.Context, enc *json.Encoder, rc *http.ResponseController, v any) bool {
	if err := enc.Encode(v); err != nil {
		ctxzap.Warn(ctx, "failed to write stream line", zap.Error(err))
		return false
	}
	if err := rc.Flush(); err != nil {
		ctxzap.Debug(ctx, "flush not supported", zap.Error(err))
	}
	return true
}
