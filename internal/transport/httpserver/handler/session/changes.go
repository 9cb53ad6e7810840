package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	commonhandler "babytrack-go/internal/transport/httpserver/handler/common"
)

// StreamChanges is a server-sent event stream of change notifications for
// the client session's selected baby. It follows selection switches made
// through SelectBaby with the same client id and ends when the client
// disconnects or the server shuts down. Each stream has its own
// subscription, so several streams of one client all see every change.
// Clients refetch on every event; payloads are hints only.
func (h *Handlers) StreamChanges(w http.ResponseWriter, r *http.Request) {
	user, ok := commonhandler.RequireUser(w, r)
	if !ok {
		return
	}

	clientID, err := requireClientID(r)
	if err != nil {
		writeServiceError(w, h.log, "session.changes", err, "user_id", user.ID)
		return
	}

	sess, err := h.Sessions.Get(r.Context(), user.ID, clientID)
	if err != nil {
		writeServiceError(w, h.log, "session.changes", err, "user_id", user.ID, "client_id", clientID)
		return
	}
	watcher := sess.Watch()
	defer watcher.Stop()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, "retry: 3000\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.log.Error("session.changes: streaming unsupported", "user_id", user.ID, "error", err)
		return
	}

	h.log.Debug("session.changes: stream opened", "user_id", user.ID, "client_id", clientID, "baby_id", sess.BabyID())
	var sent int
	for change := range watcher.Changes(r.Context()) {
		payload, err := json.Marshal(change)
		if err != nil {
			h.log.Warn("session.changes: encode failed", "user_id", user.ID, "error", err)
			continue
		}
		sent++
		if _, err := fmt.Fprintf(w, "id: %d\nevent: change\ndata: %s\n\n", sent, payload); err != nil {
			break
		}
		if err := rc.Flush(); err != nil {
			break
		}
	}
	h.log.Debug("session.changes: stream closed", "user_id", user.ID, "events", sent)
}
