package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/strategy"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsecase struct {
	result  *strategy.Result
	err     error
	gotChat *entity.ChatRequest
	gotAsk  *entity.AskRequest
}

func (f *fakeUsecase) Chat(_ context.Context, req *entity.ChatRequest, _ http.Header) (*strategy.Result, error) {
	f.gotChat = req
	return f.result, f.err
}

func (f *fakeUsecase) Ask(_ context.Context, req *entity.AskRequest, _ http.Header) (*strategy.Result, error) {
	f.gotAsk = req
	return f.result, f.err
}

func newServer(uc ChatUsecase) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(uc))
	return r
}

func post(t *testing.T, h http.Handler, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func answer(text string) *entity.Answer {
	return &entity.Answer{Choices: []entity.AnswerChoice{{
		Message: entity.Message{Role: "assistant", Content: text},
	}}}
}

func fragment(text string) *entity.Fragment {
	return &entity.Fragment{Choices: []entity.FragmentChoice{{
		Delta: entity.Message{Role: "assistant", Content: text},
	}}}
}

func decodeError(t *testing.T, body string) string {
	t.Helper()
	var resp entity.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp.Error
}

const validBody = `{"messages":[{"role":"user","content":"Привет"}]}`

// ==================== Request validation ====================

func TestNotJSON(t *testing.T) {
	h := newServer(&fakeUsecase{})

	for _, path := range []string{"/ask", "/chat"} {
		t.Run(path, func(t *testing.T) {
			rec := post(t, h, path, "text/plain", validBody)
			assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
			assert.Equal(t, "request must be json", decodeError(t, rec.Body.String()))

			rec = post(t, h, path, "application/json", `{"messages":`)
			assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		})
	}
}

func TestStructuredJSONMediaType(t *testing.T) {
	uc := &fakeUsecase{result: strategy.Complete(answer("ok"))}
	h := newServer(uc)

	rec := post(t, h, "/ask", "application/merge-patch+json; charset=utf-8", validBody)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, h, "/ask", "text/x+json", validBody)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestMissingMessages(t *testing.T) {
	uc := &fakeUsecase{}
	h := newServer(uc)

	rec := post(t, h, "/chat", "application/json; charset=utf-8", `{"stream":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, uc.gotChat)
}

// ==================== Complete answers ====================

func TestAsk(t *testing.T) {
	uc := &fakeUsecase{result: strategy.Complete(answer("42"))}
	h := newServer(uc)

	rec := post(t, h, "/ask", "application/json", validBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got entity.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "42", got.Choices[0].Message.Content)
	assert.Equal(t, "Привет", uc.gotAsk.Messages[0].Content)
}

func TestChat_Complete(t *testing.T) {
	uc := &fakeUsecase{result: strategy.Complete(answer("ok"))}
	h := newServer(uc)

	body := `{"messages":[{"role":"user","content":"hi"}],"azureIndex":"i","azureContainer":"c","toneIndex":2}`
	rec := post(t, h, "/chat", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "i", uc.gotChat.AzureIndex)
	assert.Equal(t, 2, uc.gotChat.Tone)
	assert.False(t, uc.gotChat.Stream)
}

// ==================== Error mapping ====================

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "content filter",
			err:        errors.Join(entity.ErrContentFilter, errors.New("upstream 400")),
			wantStatus: http.StatusBadRequest,
			wantMsg:    contentFilterMessage,
		},
		{
			name:       "unauthorized",
			err:        entity.ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "unauthorized",
		},
		{
			name:       "rebind failure",
			err:        errors.Join(entity.ErrCorpusUnavailable, &json.SyntaxError{}),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Error type: *json.SyntaxError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(&fakeUsecase{err: tt.err})
			rec := post(t, h, "/chat", "application/json", validBody)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, decodeError(t, rec.Body.String()), tt.wantMsg)
		})
	}
}

func TestErrorMessage_HidesDetail(t *testing.T) {
	msg := errorMessage(errors.New("secret connection string"))
	assert.NotContains(t, msg, "secret")
	assert.Contains(t, msg, "Error type: *errors.errorString")
	assert.True(t, strings.HasPrefix(msg, "The app encountered an error processing your request.\n"))
}

// ==================== Streaming ====================

func streamOf(frags []*entity.Fragment, tail error) *strategy.Result {
	return strategy.Streaming(func(yield func(*entity.Fragment, error) bool) {
		for _, f := range frags {
			if !yield(f, nil) {
				return
			}
		}
		if tail != nil {
			yield(nil, tail)
		}
	})
}

func readLines(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		out = append(out, m)
	}
	return out
}

func TestChat_Stream(t *testing.T) {
	uc := &fakeUsecase{result: streamOf([]*entity.Fragment{fragment("Зд"), fragment("<b>")}, nil)}
	h := newServer(uc)

	rec := post(t, h, "/chat", "application/json", `{"messages":[{"role":"user","content":"hi"}],"stream":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeNDJSON, rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)

	body := rec.Body.String()
	assert.Contains(t, body, "Зд")
	assert.Contains(t, body, "<b>")
	assert.True(t, strings.HasSuffix(body, "\n"))
	assert.Len(t, readLines(t, body), 2)
}

func TestChat_StreamFailsMidway(t *testing.T) {
	uc := &fakeUsecase{result: streamOf([]*entity.Fragment{fragment("a")}, errors.New("boom"))}
	h := newServer(uc)

	rec := post(t, h, "/chat", "application/json", `{"messages":[{"role":"user","content":"hi"}],"stream":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	lines := readLines(t, rec.Body.String())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1]["error"], "Error type: *errors.errorString")
}

// TestChat_StreamFailsBeforeOutput verifies an error on the first element
// still gets a status code.
func TestChat_StreamFailsBeforeOutput(t *testing.T) {
	uc := &fakeUsecase{result: streamOf(nil, errors.Join(entity.ErrContentFilter, errors.New("x")))}
	h := newServer(uc)

	rec := post(t, h, "/chat", "application/json", `{"messages":[{"role":"user","content":"hi"}],"stream":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, contentFilterMessage, decodeError(t, rec.Body.String()))
}
