package handlers

import (
	"net/http"

	"waterwatch-hq/healthimpact/pkg/api/types"
)

// Root lists the service endpoints.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.RootResponse{
		Message: "Health Impact Engine API",
		Version: h.version,
		Endpoints: map[string]string{
			"health_check": "GET /health-check",
			"evaluate":     "POST /evaluate",
			"elements":     "GET /elements",
			"rules":        "GET /rules",
			"catalog":      "GET|POST /api/elements/",
			"catalog_item": "GET|PUT|DELETE /api/elements/{name}",
		},
	})
}

// HealthCheck reports whether a rule set is loaded. It always answers 200;
// orchestrators should poll /ready instead.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.Rules() != nil
	msg := "Health Impact Engine API is running"
	if !loaded {
		msg = "Health Impact Engine API is running without a rule set"
	}
	writeJSON(w, http.StatusOK, types.HealthCheckResponse{
		Status:       "ok",
		Message:      msg,
		EngineLoaded: loaded,
	})
}

// Elements lists the supported elements of the active rule set.
func (h *Handler) Elements(w http.ResponseWriter, r *http.Request) {
	store := h.engine.Rules()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable,
			types.NewServiceUnavailableError("no rule set loaded", types.CodeRulesNotLoaded))
		return
	}
	writeJSON(w, http.StatusOK, types.NewElementsResponse(store))
}

// Rules returns the active rule document.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	store := h.engine.Rules()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable,
			types.NewServiceUnavailableError("no rule set loaded", types.CodeRulesNotLoaded))
		return
	}
	w.Header().Set("X-Rules-Checksum", store.Checksum())
	writeJSON(w, http.StatusOK, store.Document())
}
