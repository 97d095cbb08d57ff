package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront-cart/internal/health"
	"github.com/vladislavdragonenkov/storefront-cart/internal/service/httppanel"
	"github.com/vladislavdragonenkov/storefront-cart/internal/service/session"
	"github.com/vladislavdragonenkov/storefront-cart/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает HTTP-панель корзины, сервер метрик и воркер очистки сессий
// и работает до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := NewDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("sessions", healthcheck.NewCapacityChecker("sessions", deps.Sessions, cfg.MaxSessions))
	if deps.Producer != nil {
		healthHandler.RegisterChecker("kafka", healthcheck.NewFuncChecker("kafka", deps.Producer.Healthy))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	worker := session.NewCleanupWorker(
		deps.Sessions,
		session.WithLogger(logger.WithField("layer", "session-cleanup")),
		session.WithInterval(cfg.SessionCleanupInterval),
		session.WithTTL(cfg.SessionTTL),
		session.WithOnSweep(deps.Metrics.SetActiveCarts),
	)
	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()

	panel := httppanel.NewHandler(
		deps.Sessions,
		deps.NewStore,
		httppanel.WithLogger(logger.WithField("layer", "http")),
		httppanel.WithSessionCreated(deps.Metrics.SetActiveCarts),
	)
	panelSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           panel,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("панель корзины слушает %s", cfg.HTTPAddr)
		errCh <- panelSrv.ListenAndServe()
	}()

	stop := func() {
		shutdownHTTP(panelSrv, logger)
		stopWorker()
		<-workerDone
		shutdownHTTP(metricsSrv, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		stop()
		return ctx.Err()
	case err := <-errCh:
		stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчики /metrics и health checks.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: newMetricsMux(healthHandler), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

func newMetricsMux(healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	return mux
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
