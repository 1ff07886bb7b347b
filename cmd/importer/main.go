package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"bestsellers/internal/dataset"
	"bestsellers/internal/importer"
	"bestsellers/internal/logger"
	"bestsellers/internal/storage/entries"
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
	logLevel    = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "debug"))
	datasetPath = getEnvOrDefault("DATASET_PATH", "data.csv")
	dbConnStr   = os.Getenv("DATABASE_URL")
	batchSize   = getEnvOrDefault("IMPORT_BATCH_SIZE", strconv.Itoa(importer.DefaultBatchSize))
	dryRun      = getBoolEnv("IMPORT_DRY_RUN")
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	lvl, validLvl := logger.ParseLevel(logLevel)
	logger.SetupSLog(lvl, path.Dir(path.Dir(path.Dir(thisFile))), struct{}{})

	if !validLvl {
		slog.Error("Invalid log level specified in LOG_LEVEL, one of debug, info, warn or error expected")
		os.Exit(1)
	}

	size, err := strconv.Atoi(batchSize)
	if err != nil || size < 1 {
		slog.Error("IMPORT_BATCH_SIZE must be a positive integer")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, err := dataset.LoadCSVFile(datasetPath)
	if err != nil {
		slog.Error("Failed to load " + datasetPath + ": " + err.Error())
		os.Exit(1)
	}

	im := importer.Importer{
		Consumer:  &importer.LoggerConsumer{Logger: slog.Default()},
		Logger:    slog.Default(),
		BatchSize: size,
		Progress:  os.Stderr,
	}

	if !dryRun {
		cfg, err := pgxpool.ParseConfig(dbConnStr)
		if err != nil {
			slog.Error("Failed to parse DATABASE_URL: " + err.Error())
			os.Exit(1)
		}

		cfg.ConnConfig.Tracer = logger.NewPGXTracer()

		pg, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			slog.Error("failed to create postgres pool: " + err.Error())
			os.Exit(1)
		}
		defer pg.Close()

		if err := entries.EnsureSchema(ctx, pg); err != nil {
			slog.Error("Failed to create schema: " + err.Error())
			os.Exit(1)
		}

		repo := entries.NewPGXRepository(pg, slog.Default())
		im.Consumer = &importer.StoringConsumer{Entries: repo, Logger: slog.Default()}

		defer func() {
			if n, err := repo.Count(context.Background()); err == nil {
				slog.Info("Entries stored", slog.Int64("total", n))
			}
		}()
	}

	n, err := im.Run(ctx, rows)
	if err != nil {
		slog.Error("Import failed: "+err.Error(), slog.Int("imported", n))
		os.Exit(1)
	}

	slog.Info("Import finished", slog.Int("read", len(rows)), slog.Int("imported", n), slog.Bool("dry_run", dryRun))
}
