package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/querykit/internal/api/shared"
	"github.com/phrazzld/querykit/internal/redact"
	"github.com/phrazzld/querykit/internal/store"
)

// MapErrorToStatusCode maps store errors to HTTP status codes by kind.
func MapErrorToStatusCode(err error) int {
	switch store.Kind(err) {
	case "configuration":
		return http.StatusBadRequest
	case "integrity":
		return http.StatusConflict
	case "unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns the message a client may see. Caller mistakes
// and integrity violations are described (redacted); anything else is not.
func GetSafeErrorMessage(err error) string {
	switch store.Kind(err) {
	case "configuration", "integrity":
		return redact.Error(err)
	case "unavailable":
		return "Store unavailable"
	case "":
		return ""
	default:
		return "An unexpected error occurred"
	}
}

// respondWithStoreError writes err as a JSON error response.
func respondWithStoreError(w http.ResponseWriter, r *http.Request, err error) {
	resp := shared.ErrorResponse{
		Error: GetSafeErrorMessage(err),
		Kind:  store.Kind(err),
	}
	var ie *store.IntegrityError
	if errors.As(err, &ie) {
		resp.Field = ie.Field
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), resp, err)
}
