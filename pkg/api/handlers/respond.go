package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"waterwatch-hq/healthimpact/pkg/api/types"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, body *types.ErrorResponse) {
	writeJSON(w, status, body)
}

// isTooLarge reports whether err came from a body over the size cap.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func writeTooLarge(w http.ResponseWriter) {
	writeError(w, http.StatusRequestEntityTooLarge,
		types.NewInvalidRequestError("request body too large", "", types.CodeRequestTooLarge))
}
