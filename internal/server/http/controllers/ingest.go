package controllers

import (
	"net/http"

	"github.com/rmca/fip/internal/apierr"
	ingestsvc "github.com/rmca/fip/internal/services/ingest"
)

// IngestController handles document submission.
type IngestController struct {
	svc *ingestsvc.Service
}

// NewIngestController creates the submission controller.
func NewIngestController(svc *ingestsvc.Service) *IngestController {
	return &IngestController{svc: svc}
}

// RegisterRoutes registers submission routes with the given mux.
func (c *IngestController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/submit", c.handleSubmit)
}

// handleSubmit accepts a document from the "data" form field. A 202 means
// the document was queued for processing, not that it is already readable.
func (c *IngestController) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, 0, "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeAPIError(w, apierr.MissingField("data"))
		return
	}
	if !r.PostForm.Has("data") {
		writeAPIError(w, apierr.MissingField("data"))
		return
	}
	if err := c.svc.Submit(r.Context(), r.PostForm.Get("data")); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}
