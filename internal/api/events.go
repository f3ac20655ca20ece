package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/PromptCanvas/internal/models"
)

// SessionEventName is the SSE event type carrying a session snapshot.
const SessionEventName = "session"

// eventsHandler streams a snapshot on connect and after every state change.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("Server.eventsHandler: streaming unsupported")
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Streaming unsupported"))
		return
	}

	// updates holds at most the newest snapshot.
	updates := make(chan models.Session, 1)
	unsubscribe := s.wf.Subscribe(func(snap models.Session) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	initial := s.wf.Snapshot()
	if err := writeSessionEvent(w, initial); err != nil {
		slog.Warn("Server.eventsHandler: failed to write initial snapshot", "error", err)
		return
	}
	flusher.Flush()
	sent := initial.Version

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Server.eventsHandler: client disconnected")
			return
		case snap := <-updates:
			// An update queued before the initial snapshot was read may be older than it.
			if snap.Version <= sent {
				continue
			}
			sent = snap.Version
			if err := writeSessionEvent(w, snap); err != nil {
				slog.Warn("Server.eventsHandler: failed to write event", "error", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSessionEvent(w http.ResponseWriter, snap models.Session) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", SessionEventName, data)
	return err
}
