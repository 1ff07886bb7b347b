package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"runtime"
	"strings"
	"syscall"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bestsellers/internal/dataset"
	"bestsellers/internal/logger"
	"bestsellers/internal/metrics"
	"bestsellers/internal/response"
	"bestsellers/internal/server"
	"bestsellers/internal/storage/entries"
	"bestsellers/internal/summary"
	"bestsellers/internal/types"
)

func getEnvOrDefault(key, default_ string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}

	return default_
}

func getBoolEnv(key string) bool {
	if val := strings.ToLower(os.Getenv(key)); val == "yes" || val == "on" || val == "true" {
		return true
	}

	return false
}

var (
	logLevel        = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "debug"))
	bindAddr        = getEnvOrDefault("BIND_ADDR", ":8053")
	debugMode       = getBoolEnv("DEBUG_MODE")
	datasetSource   = strings.ToLower(getEnvOrDefault("DATASET_SOURCE", "csv"))
	datasetPath     = getEnvOrDefault("DATASET_PATH", "data.csv")
	dbConnStr       = os.Getenv("DATABASE_URL")
	summaryProvider = strings.ToLower(getEnvOrDefault("SUMMARY_PROVIDER", summary.ProviderOpenRouter))
	summaryTimeout  = getEnvOrDefault("SUMMARY_TIMEOUT", "2m")
	openRouterKey   = os.Getenv("OPENROUTER_API_KEY")
	openRouterURL   = getEnvOrDefault("OPENROUTER_BASE_URL", summary.DefaultOpenRouterBaseURL)
	openRouterModel = getEnvOrDefault("OPENROUTER_MODEL", summary.DefaultOpenRouterModel)
	geminiKey       = os.Getenv("GEMINI_API_KEY")
	geminiModel     = getEnvOrDefault("GEMINI_MODEL", summary.DefaultGeminiModel)
	geminiURL       = os.Getenv("GEMINI_BASE_URL")
	siteURL         = getEnvOrDefault("SITE_URL", "http://localhost:8053")
	siteName        = getEnvOrDefault("SITE_NAME", "NYT Bestsellers Analytics")
	openApiYaml     = getEnvOrDefault("OPENAPI_YAML", "api/openapi.yaml")
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	lvl, validLvl := logger.ParseLevel(logLevel)
	logger.SetupSLog(lvl, path.Dir(path.Dir(path.Dir(thisFile))), middleware.RequestIDKey)

	if !validLvl {
		slog.Error("Invalid log level specified in LOG_LEVEL, one of debug, info, warn or error expected")
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(summaryTimeout)
	if err != nil {
		slog.Error("Invalid SUMMARY_TIMEOUT: " + err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, err := loadEntries(ctx)
	if err != nil {
		slog.Error("Failed to load dataset: " + err.Error())
		os.Exit(1)
	}

	ds := dataset.New(rows)
	metrics.DatasetEntries.Set(float64(ds.Len()))
	slog.Info("Dataset loaded",
		slog.String("source", datasetSource),
		slog.Int("entries", ds.Len()),
		slog.Int("dates", len(ds.Dates())))

	summarizer, err := newSummarizer(ctx)
	if err != nil {
		slog.Error("Failed to set up summary provider: " + err.Error())
		os.Exit(1)
	}

	rr := &response.Responder{DebugMode: debugMode}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(slog.Default(), 500*time.Millisecond))
	r.Use(metrics.Instrument)
	r.Use(middleware.Recoverer)

	r.Mount("/api", server.Handler(
		ds,
		summary.NewService(summarizer, summaryProvider, timeout, slog.Default()),
		rr,
	))
	r.Mount("/opds", server.OPDS(ds, siteName, rr))
	r.Handle("/metrics", promhttp.Handler())
	server.Static(r, openApiYaml)

	srv := &http.Server{
		Addr:              bindAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening on " + bindAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("aborting: " + err.Error())
		os.Exit(1)
	}
}

func loadEntries(ctx context.Context) ([]types.Entry, error) {
	switch datasetSource {
	case "csv":
		return dataset.LoadCSVFile(datasetPath)
	case "postgres":
		cfg, err := pgxpool.ParseConfig(dbConnStr)
		if err != nil {
			return nil, errors.New("failed to parse DATABASE_URL: " + err.Error())
		}

		cfg.ConnConfig.Tracer = logger.NewPGXTracer()

		pg, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, errors.New("failed to create postgres pool: " + err.Error())
		}
		defer pg.Close()

		// the dataset is read once, the pool is not needed afterwards
		return entries.NewPGXRepository(pg, slog.Default()).GetAll(ctx)
	default:
		return nil, errors.New("DATASET_SOURCE must be csv or postgres, got " + datasetSource)
	}
}

func newSummarizer(ctx context.Context) (summary.Summarizer, error) {
	switch summaryProvider {
	case summary.ProviderOpenRouter:
		if openRouterKey == "" {
			slog.Warn("OPENROUTER_API_KEY is not set, every summary request will fail")
		}

		return summary.NewOpenRouter(summary.OpenRouterConfig{
			APIKey:   openRouterKey,
			BaseURL:  openRouterURL,
			Model:    openRouterModel,
			SiteURL:  siteURL,
			SiteName: siteName,
			Client:   http.DefaultClient,
			Logger:   slog.Default(),
		}), nil
	case summary.ProviderGemini:
		if geminiKey == "" {
			slog.Warn("GEMINI_API_KEY is not set, every summary request will fail")
		}

		g, err := summary.NewGemini(ctx, summary.GeminiConfig{
			APIKey:  geminiKey,
			Model:   geminiModel,
			BaseURL: geminiURL,
			Client:  http.DefaultClient,
		})
		if err != nil {
			return nil, err
		}

		return g, nil
	default:
		return nil, errors.New("SUMMARY_PROVIDER must be openrouter or gemini, got " + summaryProvider)
	}
}
