package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	user, err := h.service.CreateUser(r.Context(), req, caller)
	if err != nil {
		log.WithError(err).Warn("Failed to create user")
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	users, err := h.service.ListUsers(r.Context(), r.URL.Query().Get("role"), caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "User ID is required")
		return
	}

	user, err := h.service.GetUser(r.Context(), id, caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Me returns the authenticated caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	user, err := h.service.Me(r.Context(), caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingUsername), errors.Is(err, ErrMissingFullName),
		errors.Is(err, ErrMissingRole), errors.Is(err, ErrMissingPassword), errors.Is(err, ErrInvalidRole):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ErrForbidden):
		respondError(w, http.StatusForbidden, "FORBIDDEN_ROLE", err.Error())
	case errors.Is(err, ErrUserNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrUserExists):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ErrProvisioningDisabled):
		respondError(w, http.StatusServiceUnavailable, "provisioning_disabled", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to process user request")
	}
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	auth.WriteError(w, statusCode, errorType, message)
}
