package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
	"github.com/WailSalutem-Health-Care/micu-service/internal/config"
	"github.com/WailSalutem-Health-Care/micu-service/internal/db"
	httpserver "github.com/WailSalutem-Health-Care/micu-service/internal/http"
	"github.com/WailSalutem-Health-Care/micu-service/internal/logging"
	"github.com/WailSalutem-Health-Care/micu-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/micu-service/internal/patient"
	"github.com/WailSalutem-Health-Care/micu-service/internal/records"
	"github.com/WailSalutem-Health-Care/micu-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/micu-service/internal/users"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// loadConfig reads configuration and sets up process logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	database, err := db.Connect(ctx, cfg.Database())
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// newAuthorizer builds the authorization engine from the section policy file.
// A missing file falls back to the built-in table.
func newAuthorizer(cfg *config.Config, metrics *telemetry.Metrics) (*access.Authorizer, error) {
	policy := access.DefaultPolicyTable()
	if cfg.SectionsFile != "" {
		loaded, err := access.LoadPolicyTable(cfg.SectionsFile)
		switch {
		case err == nil:
			policy = loaded
		case errors.Is(err, os.ErrNotExist):
			log.WithField("file", cfg.SectionsFile).Warn("Section policy file not found, using defaults")
		default:
			return nil, err
		}
	}

	var recorder access.DecisionRecorder
	if metrics != nil {
		recorder = metrics
	}
	return access.NewAuthorizer(policy, access.NewCodeVerifier(cfg.AccessCodeCost), log.StandardLogger(), recorder), nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	var metrics *telemetry.Metrics
	if cfg.OTelEndpoint != "" {
		provider, err := telemetry.InitProvider(ctx, cfg.Telemetry())
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("Telemetry shutdown failed")
			}
		}()

		metrics, err = telemetry.InitMetrics()
		if err != nil {
			log.WithError(err).Warn("Metrics disabled")
			metrics = nil
		}
	} else {
		log.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, telemetry disabled")
	}

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	permissions, err := auth.LoadPermissions(cfg.PermissionsFile)
	if err != nil {
		return err
	}
	log.WithField("roles", len(permissions)).Info("✓ Permissions loaded")

	authz, err := newAuthorizer(cfg, metrics)
	if err != nil {
		return err
	}

	jwks, err := auth.NewJWKS(cfg.AuthJWKSURL, 0)
	if err != nil {
		return fmt.Errorf("load signing keys: %w", err)
	}
	defer jwks.Close()
	verifier := auth.NewVerifier(cfg.Auth(), jwks)

	var keycloakAdmin users.KeycloakAdminInterface
	if cfg.Keycloak().Enabled() {
		client, err := auth.NewKeycloakAdminClient(cfg.Keycloak())
		if err != nil {
			return err
		}
		keycloakAdmin = client
		log.Info("✓ Keycloak admin client configured")
	} else {
		log.Warn("Keycloak admin not configured, user provisioning disabled")
	}

	var publisher messaging.PublisherInterface
	if cfg.RabbitMQURL != "" {
		pub, err := messaging.NewPublisher(cfg.Messaging())
		if err != nil {
			log.WithError(err).Warn("Events will not be published")
		} else {
			publisher = pub
			defer pub.Close()
		}
	}

	userRepo := users.NewRepository(database)
	patientRepo := patient.NewRepository(database)
	recordRepo := records.NewRepository(database)

	userService := users.NewService(userRepo, keycloakAdmin, publisher, metrics)
	patientService := patient.NewService(patientRepo, authz, userRepo, publisher, metrics, cfg.TotalBeds)
	recordService := records.NewService(recordRepo, patientRepo, authz, publisher, metrics)

	handler := httpserver.NewHandler(httpserver.Handlers{
		Patients: patient.NewHandler(patientService),
		Records:  records.NewHandler(recordService),
		Users:    users.NewHandler(userService),
	}, httpserver.Options{
		ServiceName: cfg.OTelServiceName,
		Verifier:    verifier,
		Permissions: permissions,
		Metrics:     metrics,
		CORSOrigins: cfg.CORSOrigins,
		Ping:        database.PingContext,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"port":        cfg.Port,
			"environment": cfg.Environment,
		}).Info("✓ micu-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("✓ Server stopped")
	return nil
}
