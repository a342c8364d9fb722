package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
)

type ctxKey string

const identityKey ctxKey = "auth_identity"

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/micu-service/auth")

// TokenVerifier turns a raw bearer token into an identity.
type TokenVerifier interface {
	ParseAndVerifyToken(token string) (*access.Identity, error)
}

// MetricsRecorder interface for recording auth metrics
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
}

// Middleware validates the bearer token and injects the identity into the
// request context.
func Middleware(ver TokenVerifier) func(http.Handler) http.Handler {
	return MiddlewareWithMetrics(ver, nil)
}

// MiddlewareWithMetrics validates token with metrics recording
func MiddlewareWithMetrics(ver TokenVerifier, metrics MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "auth.Middleware",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			fail := func(kind, message string) {
				span.SetStatus(codes.Error, message)
				span.SetAttributes(attribute.String("error.type", kind))
				if metrics != nil {
					metrics.RecordAuthFailure(ctx, kind)
				}
				WriteError(w, http.StatusUnauthorized, string(access.ReasonUnauthenticated), message)
			}

			authz := r.Header.Get("Authorization")
			if authz == "" {
				fail("missing_authorization", "missing authorization")
				return
			}

			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				fail("invalid_header_format", "invalid authorization header")
				return
			}

			id, err := ver.ParseAndVerifyToken(parts[1])
			if err != nil {
				log.WithError(err).Warn("token validation failed")
				fail("invalid_token", "invalid token")
				return
			}

			span.SetAttributes(
				attribute.String("user.id", id.ID),
				attribute.String("user.role", string(id.Role)),
			)
			span.SetStatus(codes.Ok, "authentication successful")

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(ctx, id)))
		})
	}
}

// PermissionMetricsRecorder interface for recording permission check metrics
type PermissionMetricsRecorder interface {
	RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool)
}

// RequirePermission returns middleware that ensures the caller's role holds
// the permission.
func RequirePermission(per string, perms Permissions) func(http.Handler) http.Handler {
	return RequirePermissionWithMetrics(per, perms, nil)
}

// RequirePermissionWithMetrics returns middleware with metrics recording
func RequirePermissionWithMetrics(per string, perms Permissions, metrics PermissionMetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), "auth.RequirePermission",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("permission.required", per)),
			)
			defer span.End()

			id, ok := FromContext(ctx)
			if !ok {
				span.SetStatus(codes.Error, "unauthenticated")
				if metrics != nil {
					metrics.RecordPermissionCheck(ctx, per, float64(time.Since(start).Milliseconds()), false)
				}
				WriteError(w, http.StatusUnauthorized, string(access.ReasonUnauthenticated), "authentication required")
				return
			}

			allowed := HasPermission(id, per, perms)

			span.SetAttributes(
				attribute.Bool("permission.allowed", allowed),
				attribute.String("user.id", id.ID),
				attribute.String("user.role", string(id.Role)),
			)
			if metrics != nil {
				metrics.RecordPermissionCheck(ctx, per, float64(time.Since(start).Milliseconds()), allowed)
			}

			if !allowed {
				log.WithFields(log.Fields{
					"user_id":    id.ID,
					"role":       id.Role,
					"permission": per,
				}).Warn("permission denied")
				span.SetStatus(codes.Error, "forbidden")
				WriteError(w, http.StatusForbidden, string(access.ReasonForbiddenRole), "your role may not perform this action")
				return
			}

			span.SetStatus(codes.Ok, "permission granted")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithIdentity attaches id to ctx.
func ContextWithIdentity(ctx context.Context, id *access.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the caller identity from context.
func FromContext(ctx context.Context) (*access.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*access.Identity)
	return id, ok && id != nil
}

// HasPermission checks the role -> permissions mapping.
func HasPermission(id *access.Identity, permission string, perms Permissions) bool {
	if id == nil {
		return false
	}
	return perms.Allows(id.Role, permission)
}
