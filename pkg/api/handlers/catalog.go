package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"waterwatch-hq/healthimpact/pkg/api/types"
	"waterwatch-hq/healthimpact/pkg/catalog"
)

// ListCatalog handles GET /api/elements/.
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	if !h.catalogEnabled(w) {
		return
	}
	list, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeCatalogError(w, r, err, "")
		return
	}
	if list == nil {
		list = []*catalog.Element{}
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateCatalog handles POST /api/elements/.
func (h *Handler) CreateCatalog(w http.ResponseWriter, r *http.Request) {
	if !h.catalogEnabled(w) {
		return
	}
	var in catalog.Element
	if !decodeBody(w, r, &in) {
		return
	}
	// Identity and timestamps are server-assigned.
	in.ID = ""
	in.CreatedAt, in.UpdatedAt = time.Time{}, time.Time{}

	created, err := h.catalog.Create(r.Context(), &in)
	if err != nil {
		h.writeCatalogError(w, r, err, in.Element)
		return
	}
	h.logger.InfoContext(r.Context(), "catalog entry created", "element", created.Element, "id", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// GetCatalog handles GET /api/elements/{name}.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	if !h.catalogEnabled(w) {
		return
	}
	name := r.PathValue("name")
	e, err := h.catalog.Get(r.Context(), name)
	if err != nil {
		h.writeCatalogError(w, r, err, name)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateCatalog handles PUT /api/elements/{name}. Omitted fields keep their
// stored values.
func (h *Handler) UpdateCatalog(w http.ResponseWriter, r *http.Request) {
	if !h.catalogEnabled(w) {
		return
	}
	name := r.PathValue("name")
	var u catalog.Update
	if !decodeBody(w, r, &u) {
		return
	}
	updated, err := h.catalog.Update(r.Context(), name, u)
	if err != nil {
		h.writeCatalogError(w, r, err, name)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteCatalog handles DELETE /api/elements/{name}.
func (h *Handler) DeleteCatalog(w http.ResponseWriter, r *http.Request) {
	if !h.catalogEnabled(w) {
		return
	}
	name := r.PathValue("name")
	if err := h.catalog.Delete(r.Context(), name); err != nil {
		h.writeCatalogError(w, r, err, name)
		return
	}
	h.logger.InfoContext(r.Context(), "catalog entry deleted", "element", name)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) catalogEnabled(w http.ResponseWriter) bool {
	if h.catalog != nil {
		return true
	}
	writeError(w, http.StatusServiceUnavailable,
		types.NewServiceUnavailableError("element catalog is disabled", types.CodeCatalogDisabled))
	return false
}

func (h *Handler) writeCatalogError(w http.ResponseWriter, r *http.Request, err error, name string) {
	var verr *catalog.ValidationError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound,
			types.NewNotFoundError(fmt.Sprintf("Element %s not found", name), types.CodeElementNotFound))
	case errors.Is(err, catalog.ErrAlreadyExists):
		writeError(w, http.StatusConflict,
			types.NewConflictError(fmt.Sprintf("Element %s already exists", name), types.CodeElementExists))
	case errors.As(err, &verr):
		param := ""
		if len(verr.Errors) > 0 {
			param = verr.Errors[0].Field
		}
		writeError(w, http.StatusUnprocessableEntity,
			types.NewUnprocessableError(verr.Error(), param, types.CodeInvalidValue))
	default:
		h.logger.ErrorContext(r.Context(), "catalog operation failed", "element", name, "error", err)
		writeError(w, http.StatusInternalServerError, types.NewServerError("catalog storage failure"))
	}
}

// decodeBody reads one JSON document into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		if isTooLarge(err) {
			writeTooLarge(w)
			return false
		}
		writeError(w, http.StatusBadRequest,
			types.NewInvalidRequestError("failed to read request body", "", types.CodeInvalidJSON))
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest,
			types.NewInvalidRequestError(fmt.Sprintf("invalid JSON body: %v", err), "", types.CodeInvalidJSON))
		return false
	}
	return true
}
