package controllers

import (
	"net/http"

	"github.com/rmca/fip/internal/runtime"
)

// GeneralController handles health and documentation endpoints.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates the general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", c.handleHealth)
	mux.HandleFunc("/documentation", c.handleDocumentation)
}

// handleHealth reports open circuit breakers as {"<name>": "open"}. An empty
// object means every downstream path is accepting work.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, 0, "not_serving")
		return
	}
	open := map[string]string{}
	for _, name := range c.rt.Breakers().Open() {
		open[name] = "open"
	}
	writeJSON(w, http.StatusOK, open)
}

type routeDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var routeCatalog = []routeDoc{
	{Method: http.MethodPost, Path: "/submit", Description: "Submit a JSON document from the 'data' form field. Returns 202 once the document is accepted for processing."},
	{Method: http.MethodGet, Path: "/records", Description: "List persisted records a page at a time. Pass the 'next' token from the previous page to continue."},
	{Method: http.MethodGet, Path: "/stream", Description: "Stream accepted documents over Server-Sent Events. An optional 'filter' CEL expression selects documents."},
	{Method: http.MethodGet, Path: "/health", Description: "Report open circuit breakers. An empty object means healthy."},
	{Method: http.MethodGet, Path: "/documentation", Description: "This documentation."},
}

// handleDocumentation returns the route catalog.
func (c *GeneralController) handleDocumentation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"routes": routeCatalog})
}
