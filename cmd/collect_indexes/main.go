package main

import (
	"context"
	"flag"
	"log"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/sjperalta/roimob-api/internal/config"
	"github.com/sjperalta/roimob-api/internal/database"
	"github.com/sjperalta/roimob-api/internal/integrations/bcb"
	"github.com/sjperalta/roimob-api/internal/jobs"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/sjperalta/roimob-api/internal/services"
	"github.com/sjperalta/roimob-api/internal/storage"
	"github.com/sjperalta/roimob-api/pkg/logger"
)

// collect_indexes runs one Central Bank collection outside the API schedule,
// e.g. to seed a fresh database: go run ./cmd/collect_indexes -history
func main() {
	points := flag.Int("points", 0, "points to fetch per series (default: INDEX_REFRESH_POINTS)")
	history := flag.Bool("history", false, "fetch the full INDEX_HISTORY_MONTHS window")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall time limit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Setup(cfg.Environment)

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	worker := jobs.NewWorker(1)
	defer worker.Shutdown()

	client := bcb.NewClient(cfg.Index.BaseURL, cfg.Index.SOAPURL, cfg.Index.Timeout, logger.NewLogrus(cfg.Index.LogLevel))
	svcs := services.NewServices(repository.NewRepositories(db), worker, nil, store, cfg, client)

	n := *points
	switch {
	case *history:
		n = cfg.Index.HistoryMonths
	case n < 1:
		n = cfg.Index.RefreshPoints
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("Collecting the last %d points of every index...", n)
	results, err := svcs.Index.Collect(ctx, n)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := results[name]
		if r.Error != "" {
			log.Printf("  %-16s FAILED: %s", name, r.Error)
			continue
		}
		log.Printf("  %-16s fetched=%d stored=%d latest=%s recalculated=%d", name, r.Fetched, r.Stored, r.LatestMonth, r.Recalculated)
	}

	if err != nil {
		log.Fatalf("Collection failed: %v", err)
	}
	log.Println("Collection finished")
}
