package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kopiocore/config"
	"kopiocore/core"
	"kopiocore/observability/logging"
	telemetry "kopiocore/observability/otel"
)

const envVar = "KOPIO_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	listenFlag := flag.String("listen", "", "Override the HTTP listen address")
	metricsFlag := flag.String("metrics", "", "Override the Prometheus listen address")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))
	logger := logging.Setup("kopiod", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("config load failed", "path", *configFile, "error", err.Error())
		os.Exit(1)
	}
	if *listenFlag != "" {
		cfg.ListenAddress = *listenFlag
	}
	if *metricsFlag != "" {
		cfg.MetricsAddress = *metricsFlag
	}

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	otlpHeaders := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "kopiod",
		Environment: env,
		NetworkName: cfg.NetworkName,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     otlpHeaders,
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		logger.Error("telemetry init failed", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()
	if otlpEndpoint != "" {
		logger.Info("telemetry exporting",
			"endpoint", otlpEndpoint,
			logging.MaskField("otlp_headers", os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		)
	}

	ledger, err := core.NewLedger(cfg.Global, logger)
	if err != nil {
		logger.Error("ledger init failed", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("ledger initialised",
		"network", cfg.NetworkName,
		"assets", len(cfg.Global.Assets),
		"routes", len(cfg.Global.Routes),
	)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", "address", cfg.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", "error", err.Error())
		}
	}()

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	apiMux.HandleFunc("/v1/params", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, ledger.Parameters())
	})
	apiMux.HandleFunc("/v1/events", func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		writeJSON(w, ledger.Events().Recent(limit))
	})
	apiServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           apiMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("api listening", "address", cfg.ListenAddress)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server stopped", "error", err.Error())
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
