package controllers

import (
	"net/http"

	"github.com/rmca/fip/internal/runtime"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	ingest  *IngestController
	records *RecordsController
	stream  *StreamController
}

// NewControllerRegistry creates a new controller registry wired to the
// runtime's services.
func NewControllerRegistry(rt *runtime.Runtime) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		ingest:  NewIngestController(rt.Ingest()),
		records: NewRecordsController(rt.Records()),
		stream:  NewStreamController(rt.Fanout()),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.ingest.RegisterRoutes(mux)
	r.records.RegisterRoutes(mux)
	r.stream.RegisterRoutes(mux)
}
