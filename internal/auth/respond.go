package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error body with the given status.
func WriteError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errorType, Message: message})
}

// StatusForReason maps a denial reason onto an HTTP status.
func StatusForReason(r access.Reason) int {
	switch r {
	case access.ReasonUnauthenticated, access.ReasonInvalidCode:
		return http.StatusUnauthorized
	case access.ReasonNotFound:
		return http.StatusNotFound
	case access.ReasonForbiddenRole, access.ReasonNotAssigned:
		return http.StatusForbidden
	}
	return http.StatusForbidden
}

func messageForReason(r access.Reason) string {
	switch r {
	case access.ReasonUnauthenticated:
		return "authentication required"
	case access.ReasonNotFound:
		return "resource not found"
	case access.ReasonForbiddenRole:
		return "your role may not perform this action"
	case access.ReasonNotAssigned:
		return "you are not assigned to this patient"
	case access.ReasonInvalidCode:
		return "invalid or missing patient access code"
	}
	return "access denied"
}

// RespondDenied writes the reply for an authorization denial and reports
// whether err was one.
func RespondDenied(w http.ResponseWriter, err error) bool {
	var denied *access.DeniedError
	if !errors.As(err, &denied) {
		return false
	}
	WriteError(w, StatusForReason(denied.Reason), string(denied.Reason), messageForReason(denied.Reason))
	return true
}
