package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/hackpal/internal/config"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/service/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrchestrator struct {
	got     session.Request
	docBody string
	err     error
	turns   []core.Turn
	limit   int
}

func (f *fakeOrchestrator) Handle(_ context.Context, req session.Request) (session.Response, error) {
	f.got = req
	if req.Document != nil {
		data, _ := io.ReadAll(req.Document.Content)
		f.docBody = string(data)
	}
	id := req.SessionID
	if id == "" {
		id = "generated"
	}
	if f.err != nil {
		return session.Response{SessionID: id}, f.err
	}
	return session.Response{SessionID: id, Text: "hello from HackPal", Responder: "General Assistant"}, nil
}

func (f *fakeOrchestrator) History(_ context.Context, _ string, limit int) ([]core.Turn, error) {
	f.limit = limit
	return f.turns, f.err
}

func newTestServer(t *testing.T, orch *fakeOrchestrator) *httptest.Server {
	t.Helper()
	cfg := &config.AppConfig{CORSOrigins: []string{"http://localhost:3000"}, RequestTimeout: time.Minute}
	srv := httptest.NewServer(NewRouter(context.Background(), cfg, NewAPI(orch, 1<<20)))
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAsk_JSON(t *testing.T) {
	orch := &fakeOrchestrator{}
	srv := newTestServer(t, orch)

	resp, err := http.Post(srv.URL+"/api/hackpal", "application/json",
		strings.NewReader(`{"session_id":"abc","message":"give me project ideas"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "hello from HackPal", body["response"])
	assert.Equal(t, "abc", body["session_id"])
	assert.Equal(t, "give me project ideas", orch.got.Message)
	assert.Nil(t, orch.got.Document)
}

func TestAsk_EmptyBodyDefaults(t *testing.T) {
	orch := &fakeOrchestrator{}
	srv := newTestServer(t, orch)

	resp, err := http.Post(srv.URL+"/api/hackpal", "application/json", http.NoBody)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "generated", decode(t, resp)["session_id"])
	assert.Equal(t, "", orch.got.Message)
}

func TestAsk_Multipart(t *testing.T) {
	orch := &fakeOrchestrator{}
	srv := newTestServer(t, orch)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("session_id", "abc"))
	require.NoError(t, mw.WriteField("message", "summarize this"))
	part, err := mw.CreateFormFile("pdf", "resume.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/hackpal", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.NotNil(t, orch.got.Document)
	assert.Equal(t, "resume.pdf", orch.got.Document.Name)
	assert.Equal(t, "%PDF-1.7 fake", orch.docBody)
	assert.Equal(t, "summarize this", orch.got.Message)
}

func TestAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"provider", core.NewProviderUnavailableError("model call failed", context.DeadlineExceeded), http.StatusServiceUnavailable, msgProviderError},
		{"unexpected", core.NewUnexpectedError("failed to store exchange", errors.New("disk full")), http.StatusInternalServerError, msgUnexpectedError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeOrchestrator{err: tt.err})

			resp, err := http.Post(srv.URL+"/api/hackpal", "application/json", strings.NewReader(`{"message":"hi"}`))
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)

			body := decode(t, resp)
			assert.Equal(t, tt.message, body["error"])
			assert.Contains(t, body["details"], tt.err.Error())
		})
	}
}

func TestAsk_BadJSON(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{})

	resp, err := http.Post(srv.URL+"/api/hackpal", "application/json", strings.NewReader(`{"message":`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, msgInvalidRequest, decode(t, resp)["error"])
}

func TestTurns(t *testing.T) {
	orch := &fakeOrchestrator{turns: []core.Turn{core.NewUserTurn("abc", "hi")}}
	srv := newTestServer(t, orch)

	resp, err := http.Get(srv.URL + "/api/hackpal/sessions/abc/turns?limit=5")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "abc", body["session_id"])
	assert.Len(t, body["turns"], 1)
	assert.Equal(t, 5, orch.limit)

	resp, err = http.Get(srv.URL + "/api/hackpal/sessions/abc/turns?limit=-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndCORS(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/hackpal", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
