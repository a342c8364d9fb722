package records

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
)

// AccessCodeHeader may carry the patient access code when the body does not.
const AccessCodeHeader = "X-Access-Code"

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	q := r.URL.Query()
	filter := ListFilter{Section: access.Section(q.Get("section"))}
	if raw := q.Get("hour"); raw != "" {
		hour, err := strconv.Atoi(raw)
		if err != nil || hour < 0 || hour > 23 {
			h.handleError(w, ErrInvalidHour)
			return
		}
		filter.Hour = &hour
	}

	records, err := h.service.ListRecords(r.Context(), mux.Vars(r)["id"], filter, caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	rec, err := h.service.CreateRecord(r.Context(), mux.Vars(r)["id"], req, suppliedCode(r, req.Code), caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	var req UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	vars := mux.Vars(r)
	rec, err := h.service.UpdateRecord(r.Context(), vars["id"], vars["recordId"], req, suppliedCode(r, req.Code), caller)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// DeleteRecord accepts an optional JSON body carrying the access code.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "User not authenticated")
		return
	}

	var req DeleteRecordRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
			return
		}
	}

	vars := mux.Vars(r)
	if err := h.service.DeleteRecord(r.Context(), vars["id"], vars["recordId"], suppliedCode(r, req.Code), caller); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DeleteResponse{Success: true})
}

// suppliedCode prefers the body field and falls back to the header.
func suppliedCode(r *http.Request, bodyCode *string) access.SuppliedCode {
	if bodyCode != nil {
		return access.CodeOf(*bodyCode)
	}
	if values := r.Header.Values(AccessCodeHeader); len(values) > 0 {
		return access.CodeOf(values[0])
	}
	return access.NoCode()
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	if auth.RespondDenied(w, err) {
		return
	}

	switch {
	case errors.Is(err, ErrMissingRequired), errors.Is(err, ErrInvalidHour), errors.Is(err, ErrNoChanges):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ErrRecordNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		log.WithError(err).Error("Record request failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to process record request")
	}
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	auth.WriteError(w, statusCode, errorType, message)
}
