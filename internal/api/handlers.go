package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/PromptCanvas/internal/models"
	"github.com/BTreeMap/PromptCanvas/internal/store"
)

// maxBodyBytes bounds request bodies; prompts are far smaller.
const maxBodyBytes = 64 << 10

// decodePromptRequest reads an optional {"prompt": ...} body. ok is false when the body is empty.
func decodePromptRequest(r *http.Request) (req models.PromptRequest, ok bool, err error) {
	if r.Body == nil {
		return req, false, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return req, false, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, false, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, false, err
	}
	return req, true, nil
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.wf.Snapshot()))
}

func (s *Server) setPromptHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !allowMethod(w, r, http.MethodPut) {
		return
	}
	req, ok, err := decodePromptRequest(r)
	if err != nil || !ok {
		slog.Warn("Server.setPromptHandler: invalid request body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.setPromptHandler: validation failed", "error", err, "length", len(req.Prompt))
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	s.wf.SetPrompt(req.Prompt)
	writeJSONResponse(w, http.StatusOK, models.Success(s.wf.Snapshot()))
}

func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	req, ok, err := decodePromptRequest(r)
	if err != nil {
		slog.Warn("Server.generateHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if !ok {
		req.Prompt = s.wf.Snapshot().Prompt
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.generateHandler: validation failed", "error", err, "length", len(req.Prompt))
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	a, err := s.wf.Submit(r.Context(), req.Prompt)
	if err != nil {
		status := statusForError(err)
		slog.Warn("Server.generateHandler: generation rejected", "error", err, "status", status)
		writeJSONResponse(w, status, models.Error(err.Error()))
		return
	}
	slog.Info("Server.generateHandler: artifact generated", "id", a.ID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Image generated", a))
}

func (s *Server) regenerateHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	a, err := s.wf.Regenerate(r.Context())
	if err != nil {
		status := statusForError(err)
		slog.Warn("Server.regenerateHandler: regeneration rejected", "error", err, "status", status)
		writeJSONResponse(w, status, models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Image regenerated", a))
}

func (s *Server) clearHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.wf.TryClear(); err != nil {
		slog.Warn("Server.clearHandler: clear rejected", "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session cleared", s.wf.Snapshot()))
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.wf.Snapshot().History))
}

func (s *Server) receiptsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		receipts, err := s.st.GetReceipts()
		if err != nil {
			slog.Error("Server.receiptsHandler: failed to load receipts", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load receipts"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(receipts))
	case http.MethodDelete:
		if err := s.st.ClearReceipts(); err != nil {
			slog.Error("Server.receiptsHandler: failed to clear receipts", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to clear receipts"))
			return
		}
		slog.Info("Server.receiptsHandler: receipts cleared")
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Receipts cleared", nil))
	default:
		allowMethod(w, r, http.MethodGet, http.MethodDelete)
	}
}

// statsResponse is the /stats payload.
type statsResponse struct {
	store.Stats
	Source       string `json:"source"`
	HistoryLimit int    `json:"history_limit"`
	HistorySize  int    `json:"history_size"`
	LatestID     string `json:"latest_artifact_id,omitempty"`
	Busy         bool   `json:"busy"`
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	receipts, err := s.st.GetReceipts()
	if err != nil {
		slog.Error("Server.statsHandler: failed to load receipts", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load receipts"))
		return
	}
	snap := s.wf.Snapshot()
	resp := statsResponse{
		Stats:        store.ComputeStats(receipts),
		Source:       s.wf.SourceName(),
		HistoryLimit: s.wf.HistoryLimit(),
		HistorySize:  len(snap.History),
		Busy:         snap.Busy,
	}
	if latest, ok := snap.Latest(); ok {
		resp.LatestID = latest.ID
	}
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("healthy", map[string]string{"source": s.wf.SourceName()}))
}
