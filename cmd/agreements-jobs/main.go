// Command agreements-jobs runs one batch job and exits, for use with an
// external trigger such as a Kubernetes CronJob.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nurpe/snowops-agreements/internal/config"
	"github.com/nurpe/snowops-agreements/internal/db"
	"github.com/nurpe/snowops-agreements/internal/draft"
	"github.com/nurpe/snowops-agreements/internal/logger"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/notify"
	"github.com/nurpe/snowops-agreements/internal/repository"
	"github.com/nurpe/snowops-agreements/internal/storage"
	"github.com/nurpe/snowops-agreements/internal/worker"
)

func main() {
	job := flag.String("job", worker.JobReminders, "job to run: reminders or reaper")
	date := flag.String("date", "", "run reminders as of this day (YYYY-MM-DD), defaults to today")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment).With().Str("job", *job).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var locker worker.Locker = worker.NewLocalLocker()
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		locker = worker.NewRedisLocker(redisClient)
	}

	var task worker.Task
	switch *job {
	case worker.JobReminders:
		today := model.DateOnly(time.Now().In(cfg.Location()))
		if *date != "" {
			parsed, err := time.Parse("2006-01-02", *date)
			if err != nil {
				log.Fatal().Err(err).Msg("invalid -date")
			}
			today = parsed
		}
		database, err := db.New(cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect database")
		}
		reminders := worker.NewReminderJob(
			repository.NewAgreementRepository(database),
			notify.NewMailer(notify.NewSMTPSender(cfg.Mail)),
			log,
		)
		task = func(ctx context.Context) error {
			_, err := reminders.Run(ctx, today)
			return err
		}
	case worker.JobReaper:
		if redisClient == nil {
			log.Fatal().Msg("the reaper needs REDIS_URL to see live drafts")
		}
		files, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init storage")
		}
		reaper := worker.NewTempReaper(files, draft.NewRedisStore(redisClient, cfg.Agreements.DraftTTL), cfg.Agreements.DraftTTL, log)
		task = func(ctx context.Context) error {
			_, err := reaper.Run(ctx, time.Now())
			return err
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown job %q\n", *job)
		os.Exit(2)
	}

	scheduler := worker.NewScheduler(locker, cfg.Location(), 0, log)
	if err := scheduler.Run(ctx, *job, task); err != nil {
		if errors.Is(err, worker.ErrJobLocked) {
			log.Info().Msg("another instance is running this job")
			return
		}
		log.Error().Err(err).Msg("job failed")
		os.Exit(1)
	}
}
