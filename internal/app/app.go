package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mealshare/internal/api"
	healthcheck "github.com/vladislavdragonenkov/mealshare/internal/health"
	"github.com/vladislavdragonenkov/mealshare/internal/metrics"
	"github.com/vladislavdragonenkov/mealshare/internal/service/callback"
	"github.com/vladislavdragonenkov/mealshare/internal/service/ledger"
	"github.com/vladislavdragonenkov/mealshare/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/mealshare/internal/version"
)

// Run собирает сервис и блокируется до отмены ctx либо падения сервера.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	lifecycleMetrics := metrics.NewLifecycleMetrics()

	serviceOpts := []lifecycle.Option{
		lifecycle.WithLogger(logger.WithField("layer", "lifecycle")),
		lifecycle.WithMetrics(lifecycleMetrics),
	}
	if deps.Producer != nil {
		serviceOpts = append(serviceOpts, lifecycle.WithPublisher(deps.Producer))
	}
	if deps.Prices != nil {
		serviceOpts = append(serviceOpts, lifecycle.WithPriceInvalidator(deps.Prices))
	}

	service := lifecycle.NewService(deps.Store, deps.Events, deps.Orders, deps.Gateway, serviceOpts...)
	receiver := callback.NewReceiver(service, deps.Orders, deps.References,
		callback.WithLogger(logger.WithField("layer", "callback")),
		callback.WithMetrics(lifecycleMetrics),
	)

	cleanupWorker := ledger.NewCleanupWorker(deps.Idempotency, deps.References,
		ledger.WithLogger(logger.WithField("layer", "ledger")),
		ledger.WithInterval(cfg.CleanupInterval),
		ledger.WithReferenceRetention(cfg.ReferenceRetention),
	)
	go cleanupWorker.Run(ctx)

	router := api.NewRouter(api.RouterDeps{
		Lifecycle:   service,
		Receiver:    receiver,
		Prices:      deps.Prices,
		Idempotency: deps.Idempotency,
		Logger:      logger.WithField("layer", "api"),
	})

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	deps.RegisterHealthChecks(healthHandler)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(httpSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics и health-проб.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
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

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
