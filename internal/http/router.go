package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
	"github.com/WailSalutem-Health-Care/micu-service/internal/patient"
	"github.com/WailSalutem-Health-Care/micu-service/internal/records"
	"github.com/WailSalutem-Health-Care/micu-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/micu-service/internal/users"
)

// Handlers are the domain handlers mounted by the router.
type Handlers struct {
	Patients *patient.Handler
	Records  *records.Handler
	Users    *users.Handler
}

// Options configure the cross-cutting middleware.
type Options struct {
	ServiceName string
	Verifier    auth.TokenVerifier
	Permissions auth.Permissions
	Metrics     *telemetry.Metrics
	CORSOrigins []string
	// Ping reports backing store health for /health. May be nil.
	Ping func(ctx context.Context) error
}

// SetupRouter initializes all routes for the application
func SetupRouter(h Handlers, opts Options) *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware(opts.ServiceName))
	r.Use(MetricsMiddleware(opts.Metrics))

	r.HandleFunc("/health", healthHandler(opts)).Methods(http.MethodGet)

	authenticated := auth.MiddlewareWithMetrics(opts.Verifier, opts.Metrics)
	protected := func(permission string, handler http.HandlerFunc) http.Handler {
		return authenticated(
			auth.RequirePermissionWithMetrics(permission, opts.Permissions, opts.Metrics)(handler),
		)
	}

	api := r.PathPrefix("/api").Subrouter()

	// Identity of the caller; no permission beyond a valid token
	api.Handle("/auth/me", authenticated(http.HandlerFunc(h.Users.Me))).Methods(http.MethodGet)

	api.Handle("/overview", protected("overview:view", h.Patients.Overview)).Methods(http.MethodGet)

	// User management (ADMIN)
	api.Handle("/users", protected("user:view", h.Users.ListUsers)).Methods(http.MethodGet)
	api.Handle("/users", protected("user:create", h.Users.CreateUser)).Methods(http.MethodPost)
	api.Handle("/users/{id}", protected("user:view", h.Users.GetUser)).Methods(http.MethodGet)

	// Patients; assignment checks happen in the service
	api.Handle("/patients", protected("patient:view", h.Patients.ListPatients)).Methods(http.MethodGet)
	api.Handle("/patients", protected("patient:create", h.Patients.CreatePatient)).Methods(http.MethodPost)
	api.Handle("/patients/{id}", protected("patient:view", h.Patients.GetPatient)).Methods(http.MethodGet)
	api.Handle("/patients/{id}", protected("patient:update", h.Patients.UpdatePatient)).Methods(http.MethodPut)
	api.Handle("/patients/{id}/verify-code", protected("patient:view", h.Patients.VerifyCode)).Methods(http.MethodPost)

	// Clinical records; section policy and the access code gate happen in the service
	api.Handle("/patients/{id}/records", protected("record:view", h.Records.ListRecords)).Methods(http.MethodGet)
	api.Handle("/patients/{id}/records", protected("record:write", h.Records.CreateRecord)).Methods(http.MethodPost)
	api.Handle("/patients/{id}/records/{recordId}", protected("record:write", h.Records.UpdateRecord)).Methods(http.MethodPut)
	api.Handle("/patients/{id}/records/{recordId}", protected("record:write", h.Records.DeleteRecord)).Methods(http.MethodDelete)

	return r
}

// NewHandler wraps the router with CORS handling.
func NewHandler(h Handlers, opts Options) http.Handler {
	return CORSMiddleware(opts.CORSOrigins)(SetupRouter(h, opts))
}

func healthHandler(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok", "service": opts.ServiceName}

		if opts.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Ping(ctx); err != nil {
				log.WithError(err).Warn("health check: database unreachable")
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
