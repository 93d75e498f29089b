package sse

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// reconnectDelay is sent to browsers as the EventSource retry interval.
const reconnectDelay = 3 * time.Second

// Handler streams events at GET /api/v1/events. ?task= restricts the stream
// to one task.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a handler on top of manager.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// stream writes text/event-stream frames and flushes each one.
type stream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (s stream) send(name string, data any, retry time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}

	frame := "event: " + name + "\n"
	if retry > 0 {
		frame += fmt.Sprintf("retry: %d\n", retry.Milliseconds())
	}
	frame += "data: " + string(payload) + "\n\n"

	if _, err := s.w.Write([]byte(frame)); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		return err
	}
	// Long-lived streams outlast the server's write timeout; push the
	// deadline forward after every frame. Not every writer supports it.
	_ = s.rc.SetWriteDeadline(time.Now().Add(2 * heartbeatEvery))
	return nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	out := stream{w: w, rc: http.NewResponseController(w)}
	if err := out.rc.Flush(); err != nil {
		h.logger.Error("SSE not supported by response writer", slog.String("error", err.Error()))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect(r.URL.Query().Get("task"))
	if err != nil {
		h.logger.Error("register SSE client", slog.String("error", err.Error()))
		http.Error(w, "failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With(slog.String("client_id", client.ID))

	hello := map[string]string{"client_id": client.ID}
	if client.TaskID != "" {
		hello["task_id"] = client.TaskID
	}
	if err := out.send("connected", hello, reconnectDelay); err != nil {
		log.Warn("send connected event", slog.String("error", err.Error()))
		return
	}

	for {
		select {
		case ev, ok := <-client.Events:
			if !ok {
				return
			}
			if err := out.send(string(ev.Type), ev, 0); err != nil {
				log.Debug("client went away during send")
				return
			}
		case <-client.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}
