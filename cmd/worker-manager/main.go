package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workflow-intake/internal/common/camunda"
	"workflow-intake/internal/common/config"
	"workflow-intake/internal/common/crypto"
	"workflow-intake/internal/common/database"
	"workflow-intake/internal/common/logger"
	"workflow-intake/internal/common/observability"
	"workflow-intake/internal/store"
	httptransport "workflow-intake/internal/transport/http"
	wii "workflow-intake/internal/workers/registration/workflow-instance-intake"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "json")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format).With(
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
	)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting workflow instance intake service",
		zap.String("environment", cfg.App.Environment),
		zap.String("beginningStage", cfg.Workflow.Instance.BeginningStage),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Audit sinks ---
	sinks, err := buildAuditSinks(ctx, cfg, pg, log, zapLog)
	if err != nil {
		zapLog.Fatal("audit sink setup failed", zap.Error(err))
	}
	defer sinks.Close()

	encryptor, err := crypto.New(cfg.Crypto)
	if err != nil {
		zapLog.Fatal("encryptor setup failed", zap.Error(err))
	}

	workerCfg, err := wii.NewConfig(cfg)
	if err != nil {
		zapLog.Fatal("worker configuration invalid", zap.Error(err))
	}

	service := wii.NewService(wii.ServiceDependencies{
		SyncRepo:      store.NewSyncRegistrationRepository(pg.DB),
		StatusService: store.NewRegistrationStatusService(pg.DB),
		Encryptor:     encryptor,
		Audit:         sinks.Sink,
		Tx:            database.NewTxRunner(pg.DB),
		Logger:        log.WithFields(map[string]interface{}{"component": wii.ModuleName}),
		Observability: obs,
	}, workerCfg)

	checks := append([]httptransport.Check{{Name: "postgres", Fn: pg.Ping}}, sinks.Checks...)

	// --- Zeebe job worker ---
	var (
		camundaClient *camunda.Client
		handler       *wii.Handler
	)
	if cfg.Camunda.BrokerAddress == "" {
		zapLog.Warn("camunda.broker_address not set, job worker disabled")
	} else {
		err = retryWithBackoff(func() error {
			var err error
			camundaClient, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		handler, err = wii.NewHandler(wii.HandlerOptions{
			AppConfig:    cfg,
			Camunda:      camundaClient,
			CustomConfig: workerCfg,
			Logger:       log,
			Service:      service,
		})
		if err != nil {
			zapLog.Fatal("failed to create intake handler", zap.Error(err))
		}
		if err := handler.Register(); err != nil {
			zapLog.Fatal("failed to register intake worker", zap.Error(err))
		}
		checks = append(checks, httptransport.Check{Name: "camunda", Fn: handler.HealthCheck})
	}

	// --- HTTP server ---
	router := httptransport.NewRouter(httptransport.NewHandler(service, log, checks...), promhttp.Handler())
	srv := httptransport.NewServer(cfg.HTTP, router)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if handler != nil {
		handler.Close()
	}
	if camundaClient != nil {
		if err := camundaClient.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down observability", zap.Error(err))
	}

	zapLog.Info("Workflow instance intake service stopped gracefully")
}
