package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"phishing-detector/config"
	"phishing-detector/detection"
	"phishing-detector/enrichment"
	"phishing-detector/explain"
	"phishing-detector/heuristics"
	"phishing-detector/history"
	"phishing-detector/logging"
	"phishing-detector/reputation"
	"phishing-detector/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if config.IsHelp(err) {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := detection.NewMetrics(reg)

	detector := newDetector(cfg, log, metrics)

	if cfg.Check != "" {
		os.Exit(runCheck(ctx, detector, cfg.Check, log))
	}

	if err := serve(ctx, cfg, detector, reg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func newDetector(cfg *config.Config, log *logrus.Logger, metrics *detection.Metrics) *detection.Detector {
	httpClient := &http.Client{Timeout: cfg.LookupTimeout}

	feeds := reputation.NewGateway(log, cfg.LookupTimeout,
		reputation.NewSafeBrowsing(cfg.GoogleSafeBrowsingKey, httpClient, log),
		reputation.NewURLhaus(cfg.URLhausURL, cfg.URLhausAuthKey, httpClient, log),
	).WithObserver(metrics)

	if cfg.GoogleSafeBrowsingKey == "" {
		log.Warn("GOOGLE_SAFE_BROWSING_KEY not set, Safe Browsing results will be unknown")
	}

	enricher := enrichment.NewGateway(
		enrichment.NewWhoisClient(cfg.LookupTimeout, log),
		enrichment.NewResolver(cfg.DNSServers, cfg.LookupTimeout, log),
		cfg.LookupTimeout,
		log,
	)

	rules := heuristics.NewEngine(heuristics.DefaultBrands())

	return detection.NewDetector(feeds, enricher, rules, log).WithMetrics(metrics)
}

// runCheck classifies one URL and prints the response body to stdout.
func runCheck(ctx context.Context, d *detection.Detector, raw string, log *logrus.Logger) int {
	rep, err := d.Detect(ctx, raw)
	if err != nil {
		log.WithError(err).Error("check failed")
		return 2
	}

	out, err := json.MarshalIndent(rep.Response(), "", "  ")
	if err != nil {
		log.WithError(err).Error("encode result")
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func serve(ctx context.Context, cfg *config.Config, d *detection.Detector, reg *prometheus.Registry, log *logrus.Logger) error {
	store := openHistory(ctx, cfg, log)
	defer store.Close()

	var gen explain.Generator
	if c := explain.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, &http.Client{Timeout: 2 * cfg.LookupTimeout}); c != nil {
		gen = c
	} else {
		log.Info("GEMINI_API_KEY not set, explanations use the built-in template")
	}

	detectHandler := detection.NewHandler(d, history.NewRecorder(store, cfg.LookupTimeout, log), log)
	explainHandler := explain.NewHandler(d, explain.NewExplainer(gen, log), log)

	router := server.NewRouter(server.Handlers{
		Detect:  detectHandler.Detect,
		Explain: explainHandler.Explain,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, log, 5*cfg.LookupTimeout)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.WithField("addr", srv.Addr).Info("phishing detector listening")
	log.Info("endpoints: POST /detect, POST /explain, GET /healthz, GET /metrics")

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// openHistory connects to Postgres when configured. A connection failure
// disables history instead of stopping the server.
func openHistory(ctx context.Context, cfg *config.Config, log *logrus.Logger) history.Store {
	if cfg.DatabaseURL == "" {
		log.Info("DATABASE_URL not set, scan history disabled")
		return history.Nop{}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := history.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Error("scan history unavailable")
		return history.Nop{}
	}
	log.Info("scan history enabled")
	return db
}
