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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nurpe/snowops-agreements/internal/auth"
	"github.com/nurpe/snowops-agreements/internal/config"
	"github.com/nurpe/snowops-agreements/internal/db"
	"github.com/nurpe/snowops-agreements/internal/draft"
	"github.com/nurpe/snowops-agreements/internal/excel"
	httphandler "github.com/nurpe/snowops-agreements/internal/http"
	"github.com/nurpe/snowops-agreements/internal/http/middleware"
	"github.com/nurpe/snowops-agreements/internal/logger"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/notify"
	"github.com/nurpe/snowops-agreements/internal/pdf"
	"github.com/nurpe/snowops-agreements/internal/repository"
	"github.com/nurpe/snowops-agreements/internal/service"
	"github.com/nurpe/snowops-agreements/internal/storage"
	"github.com/nurpe/snowops-agreements/internal/worker"
)

const jobTimeout = 30 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init storage")
	}

	var (
		drafts draft.Store
		locker worker.Locker
	)
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		drafts = draft.NewRedisStore(client, cfg.Agreements.DraftTTL)
		locker = worker.NewRedisLocker(client)
	} else {
		log.Warn().Msg("REDIS_URL not set, drafts and job locks are kept in process")
		drafts = draft.NewMemoryStore(cfg.Agreements.DraftTTL)
		locker = worker.NewLocalLocker()
	}

	agreementRepo := repository.NewAgreementRepository(database)
	directoryRepo := repository.NewDirectoryRepository(database)
	mailer := notify.NewMailer(notify.NewSMTPSender(cfg.Mail))

	agreementService := service.NewAgreementService(service.Dependencies{
		Agreements: agreementRepo,
		Directory:  directoryRepo,
		Drafts:     drafts,
		Storage:    files,
		Notifier:   mailer,
		Excel:      excel.NewGenerator(),
		PDF:        pdf.NewGenerator(),
		Logger:     log,
	}, cfg)

	if cfg.Scheduler.Enabled {
		scheduler := worker.NewScheduler(locker, cfg.Location(), jobTimeout, log)
		if err := registerJobs(scheduler, cfg, agreementRepo, mailer, files, drafts, log); err != nil {
			log.Fatal().Err(err).Msg("failed to schedule jobs")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(agreementService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, log, httphandler.RouterConfig{
		Environment:       cfg.Environment,
		AllowedOrigins:    cfg.HTTP.AllowedOrigins,
		MaxAttachmentSize: cfg.Agreements.MaxAttachmentSize,
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("starting agreements service")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("agreements service stopped")
}

func registerJobs(
	scheduler *worker.Scheduler,
	cfg *config.Config,
	agreements *repository.AgreementRepository,
	mailer *notify.Mailer,
	files storage.Storage,
	drafts draft.Store,
	log zerolog.Logger,
) error {
	reminders := worker.NewReminderJob(agreements, mailer, log.With().Str("job", worker.JobReminders).Logger())
	reaper := worker.NewTempReaper(files, drafts, cfg.Agreements.DraftTTL, log.With().Str("job", worker.JobReaper).Logger())
	loc := cfg.Location()

	if err := scheduler.Register(worker.JobReminders, cfg.Scheduler.ReminderSchedule, func(ctx context.Context) error {
		_, err := reminders.Run(ctx, model.DateOnly(time.Now().In(loc)))
		return err
	}); err != nil {
		return err
	}
	return scheduler.Register(worker.JobReaper, cfg.Scheduler.ReaperSchedule, func(ctx context.Context) error {
		_, err := reaper.Run(ctx, time.Now())
		return err
	})
}
