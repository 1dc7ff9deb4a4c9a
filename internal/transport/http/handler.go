package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/service/session"
	"github.com/sandevgo/hackpal/pkg/log"
)

const (
	msgProviderError   = "An error occurred with the AI model provider"
	msgUnexpectedError = "An unexpected error occurred"
	msgInvalidRequest  = "invalid request"

	multipartMemory = 8 << 20
)

type Orchestrator interface {
	Handle(ctx context.Context, req session.Request) (session.Response, error)
	History(ctx context.Context, sessionID string, limit int) ([]core.Turn, error)
}

type askBody struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type askResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type turnsResponse struct {
	SessionID string      `json:"session_id"`
	Turns     []core.Turn `json:"turns"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type API struct {
	orch           Orchestrator
	maxUploadBytes int64
}

func NewAPI(orch Orchestrator, maxUploadBytes int64) *API {
	return &API{orch: orch, maxUploadBytes: maxUploadBytes}
}

func (a *API) RegisterRoutes(r chi.Router) {
	r.Post("/api/hackpal", a.Ask)
	r.Get("/api/hackpal/sessions/{sessionID}/turns", a.Turns)
}

// Ask accepts JSON, urlencoded or multipart bodies. A multipart "pdf" part
// is handed to the orchestrator as the session document.
func (a *API) Ask(w http.ResponseWriter, r *http.Request) {
	logger := log.FromCtx(r.Context())

	req, cleanup, err := a.decodeAsk(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest, err)
		return
	}
	defer cleanup()

	resp, err := a.orch.Handle(r.Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrProviderUnavailable) {
			logger.Warn().Err(err).Str("session_id", resp.SessionID).Msg("model provider unavailable")
			writeError(w, http.StatusServiceUnavailable, msgProviderError, err)
			return
		}
		logger.Error().Err(err).Str("session_id", resp.SessionID).Msg("request failed")
		writeError(w, http.StatusInternalServerError, msgUnexpectedError, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Response: resp.Text, SessionID: resp.SessionID})
}

func (a *API) Turns(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, msgInvalidRequest, fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	turns, err := a.orch.History(r.Context(), sessionID, limit)
	if err != nil {
		log.FromCtx(r.Context()).Error().Err(err).Str("session_id", sessionID).Msg("failed to read turns")
		writeError(w, http.StatusInternalServerError, msgUnexpectedError, err)
		return
	}
	if turns == nil {
		turns = []core.Turn{}
	}
	writeJSON(w, http.StatusOK, turnsResponse{SessionID: sessionID, Turns: turns})
}

func (a *API) decodeAsk(w http.ResponseWriter, r *http.Request) (session.Request, func(), error) {
	noop := func() {}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if a.maxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return session.Request{}, noop, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		cleanup := func() { _ = r.MultipartForm.RemoveAll() }

		req := session.Request{SessionID: r.FormValue("session_id"), Message: r.FormValue("message")}
		file, header, err := r.FormFile("pdf")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			cleanup()
			return session.Request{}, noop, fmt.Errorf("failed to read pdf part: %w", err)
		default:
			req.Document = &session.Upload{Name: header.Filename, Content: file}
			cleanup = func() {
				_ = file.Close()
				_ = r.MultipartForm.RemoveAll()
			}
		}
		return req, cleanup, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return session.Request{}, noop, fmt.Errorf("failed to parse form: %w", err)
		}
		return session.Request{SessionID: r.PostFormValue("session_id"), Message: r.PostFormValue("message")}, noop, nil

	default:
		var body askBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return session.Request{}, noop, fmt.Errorf("failed to decode json body: %w", err)
		}
		return session.Request{SessionID: body.SessionID, Message: body.Message}, noop, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
