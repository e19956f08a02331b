package controllers

import (
	"net/http"

	recordsvc "github.com/rmca/fip/internal/services/records"
)

// RecordsController serves paged reads of persisted records.
type RecordsController struct {
	svc *recordsvc.Service
}

// NewRecordsController creates the listing controller.
func NewRecordsController(svc *recordsvc.Service) *RecordsController {
	return &RecordsController{svc: svc}
}

// RegisterRoutes registers listing routes with the given mux.
func (c *RecordsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/records", c.handleList)
}

// handleList returns one page of records. The optional "next" query
// parameter is the cursor returned by the previous page.
func (c *RecordsController) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, 0, "Method not allowed")
		return
	}
	page, err := c.svc.Page(r.Context(), r.URL.Query().Get("next"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
