package controllers

import (
	"net/http"

	fanoutsvc "github.com/rmca/fip/internal/services/fanout"
)

// StreamController pushes live documents to clients over Server-Sent Events.
type StreamController struct {
	hub *fanoutsvc.Hub
}

// NewStreamController creates the streaming controller.
func NewStreamController(hub *fanoutsvc.Hub) *StreamController {
	return &StreamController{hub: hub}
}

// RegisterRoutes registers streaming routes with the given mux.
func (c *StreamController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/stream", c.handleStream)
}

// handleStream subscribes the client to the live document feed. An optional
// "filter" query parameter holds a CEL expression evaluated against every
// document; only matches are delivered. The connection stays open until the
// client goes away.
func (c *StreamController) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, 0, "Method not allowed")
		return
	}
	msgs, cancel, err := c.hub.Subscribe(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, 0, "Invalid filter expression")
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flush(w)

	sink := sseSink{w: w, r: r}
	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := sink.Send(msg); err != nil {
				return
			}
			sink.Flush()
		}
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
