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

	"github.com/rs/zerolog/log"

	"github.com/ahmadqo/event-certificate-service/internal/config"
	"github.com/ahmadqo/event-certificate-service/internal/database"
	"github.com/ahmadqo/event-certificate-service/internal/handler"
	"github.com/ahmadqo/event-certificate-service/internal/logger"
	"github.com/ahmadqo/event-certificate-service/internal/render"
	"github.com/ahmadqo/event-certificate-service/internal/repository"
	"github.com/ahmadqo/event-certificate-service/internal/repository/memory"
	"github.com/ahmadqo/event-certificate-service/internal/service"
	"github.com/ahmadqo/event-certificate-service/internal/utils"
)

// @title           Event Certificate Service API
// @version         1.0
// @description     Certificate generation, public verification and approver management for the event platform.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	appLogger := logger.Setup(cfg.App.IsDevelopment())

	ctx := context.Background()

	// ── Repositories ─────────────────────────────────
	repos, closeStore := openStore(ctx, cfg)
	defer closeStore()

	seeder := database.NewSeeder(repos.approvers, cfg.Approver)
	if err := seeder.SeedFallbackApprover(ctx); err != nil {
		log.Warn().Err(err).Msg("Seed approver failed")
	}

	// ── Render engine ────────────────────────────────
	engine, closeEngine := openEngine(cfg.Render)
	defer closeEngine()

	renderer, err := render.NewRenderer(engine, render.Options{
		Timeout: cfg.Render.Timeout,
		Scale:   cfg.Render.Scale,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare renderer")
	}

	// ── Storage (MinIO) ──────────────────────────────
	// archive harus nil interface (bukan *StorageService nil) jika MinIO mati
	var archive service.ArtifactArchive
	if cfg.MinIO.Enabled {
		storage, err := utils.NewStorageService(&cfg.MinIO)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MinIO")
		}
		log.Info().Str("bucket", cfg.MinIO.Bucket).Msg("MinIO connected successfully")
		archive = storage
	}

	// ── Services ─────────────────────────────────────
	approverService := service.NewApproverService(repos.approvers, cfg.Approver)
	certificateService := service.NewCertificateService(
		repos.certificates,
		repos.participants,
		repos.events,
		repos.users,
		approverService,
		utils.NewQREncoder(256),
		renderer,
		archive,
		cfg.App.URL,
	)
	regenerationService := service.NewRegenerationService(repos.certificates, certificateService, cfg.Bulk)

	// ── Handlers ─────────────────────────────────────
	certificateHandler := handler.NewCertificateHandler(certificateService, regenerationService)
	approverHandler := handler.NewApproverHandler(approverService)

	// ── Router ───────────────────────────────────────
	router := handler.NewRouter(
		certificateHandler,
		approverHandler,
		cfg.JWT.Secret,
		appLogger,
	)

	// ── HTTP Server ──────────────────────────────────
	// bulk regenerate berjalan sinkron, WriteTimeout dibuat longgar
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.App.Port),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.App.Port).Str("env", cfg.App.Env).Msg("Server berjalan")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-quit
	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	log.Info().Msg("Server stopped gracefully")
}

type stores struct {
	certificates repository.CertificateRepository
	approvers    repository.ApproverRepository
	participants repository.ParticipantRepository
	events       repository.EventRepository
	users        repository.UserRepository
}

func openStore(ctx context.Context, cfg *config.Config) (stores, func()) {
	if cfg.App.StoreDriver == "memory" {
		log.Warn().Msg("STORE_DRIVER=memory, data hilang saat server berhenti")
		directory := memory.NewDirectoryStore()
		return stores{
			certificates: memory.NewCertificateStore(),
			approvers:    memory.NewApproverStore(),
			participants: directory,
			events:       directory.Events(),
			users:        memory.NewUserStore(),
		}, func() {}
	}

	// ── Database ─────────────────────────────────────
	db, err := database.Connect(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		db.Close()
		log.Fatal().Err(err).Msg("Migration failed")
	}

	return stores{
		certificates: repository.NewCertificateRepository(db),
		approvers:    repository.NewApproverRepository(db),
		participants: repository.NewParticipantRepository(db),
		events:       repository.NewEventRepository(db),
		users:        repository.NewUserRepository(db),
	}, func() { db.Close() }
}

// openEngine memilih Chrome, atau gofpdf jika Chrome tidak bisa dijalankan
func openEngine(cfg config.RenderConfig) (render.Engine, func()) {
	if cfg.Engine == "gofpdf" {
		log.Info().Msg("Using gofpdf render engine, image format unavailable")
		return render.NewPDFEngine(), func() {}
	}

	chrome, err := render.NewChromeEngine(render.ChromeOptions{
		ExecPath:    cfg.ChromePath,
		SettleDelay: cfg.SettleDelay,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Chrome unavailable, falling back to gofpdf")
		return render.NewPDFEngine(), func() {}
	}
	return chrome, chrome.Close
}
