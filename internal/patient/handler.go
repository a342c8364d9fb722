package patient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
	"github.com/WailSalutem-Health-Care/micu-service/internal/pagination"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	p, err := h.service.CreatePatient(r.Context(), req, caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	q := r.URL.Query()
	params := ListParams{
		Search:       q.Get("search"),
		Status:       q.Get("status"),
		AssignedOnly: strings.EqualFold(q.Get("assignedOnly"), "true"),
		Page:         pagination.ParseParams(r),
	}

	response, err := h.service.ListPatients(r.Context(), params, caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Patient ID is required")
		return
	}

	p, err := h.service.GetPatient(r.Context(), id, caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Patient ID is required")
		return
	}

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	p, err := h.service.UpdatePatient(r.Context(), id, req, caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Patient ID is required")
		return
	}

	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	valid, err := h.service.VerifyCode(r.Context(), id, access.CodeFromPtr(req.Code), caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(VerifyCodeResponse{Valid: valid})
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	overview, err := h.service.Overview(r.Context(), caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(overview)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	if auth.RespondDenied(w, err) {
		return
	}

	switch {
	case errors.Is(err, ErrMissingRequired), errors.Is(err, ErrInvalidAdmissionDate),
		errors.Is(err, ErrInvalidHI271Data), errors.Is(err, ErrInvalidAssignee),
		errors.Is(err, ErrNoChanges), errors.Is(err, ErrCodeRequired):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, access.ErrMalformedCode):
		respondError(w, http.StatusBadRequest, "validation_error", "Access code must be 4 to 8 digits")
	case errors.Is(err, ErrPatientNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		log.WithError(err).Error("Patient request failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to process patient request")
	}
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	auth.WriteError(w, statusCode, errorType, message)
}
