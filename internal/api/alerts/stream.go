package alerts

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/blazewatch/internal/api/response"
	"github.com/good-yellow-bee/blazewatch/internal/notifier"
)

// Stream pushes browser notifications to the client as Server-Sent Events.
// Only ?permission=granted opts in to notifications. Without it the stream
// carries heartbeats only.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		response.Fail(w, http.StatusServiceUnavailable, response.CodeUnavailable, "notification stream not configured")
		return
	}

	// Check for SSE support
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Fail(w, http.StatusInternalServerError, response.CodeInternalError, "streaming not supported")
		return
	}

	permission := notifier.PermissionDefault
	switch p := notifier.Permission(r.URL.Query().Get("permission")); p {
	case "", notifier.PermissionDefault:
	case notifier.PermissionGranted, notifier.PermissionDenied:
		permission = p
	default:
		response.Fail(w, http.StatusBadRequest, response.CodeBadRequest, "permission must be default, granted or denied")
		return
	}

	toasts, unsubscribe := h.hub.Subscribe(permission)
	defer unsubscribe()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sse := NewSSEWriter(w, flusher)
	if err := sse.SendRetry(3000); err != nil {
		return
	}
	if err := sse.SendEvent("ready", `{"permission":"`+string(permission)+`"}`); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.opts.HeartbeatInterval)
	defer heartbeat.Stop()
	deadline := time.NewTimer(h.opts.StreamMaxDuration)
	defer deadline.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return

		case <-deadline.C:
			sse.SendEvent("close", `{"reason":"timeout"}`)
			return

		case toast, ok := <-toasts:
			if !ok {
				return
			}
			data, err := json.Marshal(toast)
			if err != nil {
				log.Printf("stream encode error: %v", err)
				continue
			}
			if err := sse.SendEvent("notification", string(data)); err != nil {
				return // Client disconnected
			}

		case <-heartbeat.C:
			if err := sse.SendEvent("heartbeat", `{"timestamp":"`+time.Now().Format(time.RFC3339)+`"}`); err != nil {
				return
			}
		}
	}
}
