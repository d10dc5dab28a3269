package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/senyabanana/dialogue-bridge/internal/db"
	"github.com/senyabanana/dialogue-bridge/internal/handlers"
	"github.com/senyabanana/dialogue-bridge/internal/logger"
	"github.com/senyabanana/dialogue-bridge/internal/models"
	"github.com/senyabanana/dialogue-bridge/internal/repository"
	"github.com/senyabanana/dialogue-bridge/internal/router"
	"github.com/senyabanana/dialogue-bridge/internal/router/config"
	"github.com/senyabanana/dialogue-bridge/internal/services"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}
	lg := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := repository.RegistryOptions{
		BaseURL:   cfg.BaseURL(),
		Token:     cfg.APIToken,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout(),
		Retry:     repository.NewRetryPolicy(cfg.RetryInterval()),
	}

	tenderRepo := repository.NewRegistryTenderRepository(registry, cfg.Stage2Status, lg)
	builder := services.NewStage2Builder(services.Stage2Options{
		CopyFields: cfg.CopyNameFields,
		EUType:     models.ProcurementMethodType(cfg.Stage2EUType),
		UAType:     models.ProcurementMethodType(cfg.Stage2UAType),
	}, lg)
	dialogueService := services.NewDialogueService(tenderRepo, builder, services.DialogueOptions{
		WaitingStatus:   models.TenderStatus(cfg.WaitingStatus),
		AllowedStatuses: cfg.AllowedStatuses,
		RewriteStatuses: cfg.RewriteStatuses,
	}, lg)
	crawler := services.NewCrawler(dialogueService, cfg.Workers, lg)

	// С аргументами мост один раз синхронизирует перечисленные тендеры и завершается.
	if ids := os.Args[1:]; len(ids) > 0 {
		runOnce(ctx, lg, tenderRepo, crawler, ids)
		return
	}

	cursor, closeDb := openCursor(ctx, lg, cfg)
	defer closeDb()

	feed := repository.NewFeedTenderSource(registry, cursor, cfg.FeedLimit, cfg.PollInterval(), lg)

	tenderService := services.NewTenderService(tenderRepo, crawler)
	tenderHandler := handlers.NewTenderHandler(tenderService, lg, cfg.RequestTimeout())
	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router.InitRoutes(tenderHandler, crawler.Stats),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		lg.Info("starting crawler", "workers", cfg.Workers, "api", cfg.BaseURL())
		if err := crawler.Run(ctx, feed); err != nil {
			lg.Error("crawler stopped", logger.Journal(models.JournalException), "error", err)
		}
		stop()
	}()

	go func() {
		lg.Info("server is listening", "address", cfg.ServerAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server shutdown failed", "error", err)
	}
	wg.Wait()
	lg.Info("bridge stopped", "stats", crawler.Stats.Snapshot())
}

// openCursor выбирает хранилище позиции ленты: Postgres, если задано подключение, иначе память.
func openCursor(ctx context.Context, lg *slog.Logger, cfg config.Config) (repository.CursorRepository, func()) {
	if cfg.PostgresConn == "" {
		lg.Info("POSTGRES_CONN is not set, feed position is kept in memory")
		return repository.NewMemoryCursorRepository(), func() {}
	}

	if err := db.RunMigrations(cfg.MigrationURL, cfg.PostgresConn); err != nil {
		log.Fatalf("error migrating database: %v", err)
	}
	dbPool, err := db.InitDb(ctx, cfg.PostgresConn)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	return repository.NewPostgresCursorRepository(dbPool), dbPool.Close
}

func runOnce(ctx context.Context, lg *slog.Logger, repo repository.TenderRepository, crawler *services.Crawler, ids []string) {
	summaries := make([]models.TenderSummary, 0, len(ids))
	for _, id := range ids {
		tender, err := repo.GetTender(ctx, id)
		if err != nil {
			lg.Error("cannot get tender", "tender_id", id, "error", err)
			continue
		}
		if tender == nil {
			lg.Warn("tender not found", "tender_id", id)
			continue
		}
		summaries = append(summaries, tender.Summary())
	}

	if err := crawler.Run(ctx, services.NewSliceSource(summaries...)); err != nil {
		lg.Error("one-shot run failed", "error", err)
	}
	lg.Info("one-shot run finished", "stats", crawler.Stats.Snapshot())
}
