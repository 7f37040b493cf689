package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"SubredditOfTheDay/internal/config"
	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/extract"
	"SubredditOfTheDay/internal/infrastructure/datesearch"
	"SubredditOfTheDay/internal/infrastructure/discord"
	"SubredditOfTheDay/internal/infrastructure/reddit"
	"SubredditOfTheDay/internal/infrastructure/rehearsal"
	"SubredditOfTheDay/internal/infrastructure/scheduler"
	"SubredditOfTheDay/internal/infrastructure/storage"
	"SubredditOfTheDay/internal/infrastructure/telegram"
	"SubredditOfTheDay/internal/notify"
	"SubredditOfTheDay/internal/ports"
	"SubredditOfTheDay/internal/publish"
	"SubredditOfTheDay/internal/readiness"
	"SubredditOfTheDay/internal/schedule"
	"SubredditOfTheDay/internal/store"
	"SubredditOfTheDay/internal/usecase"
)

// ErrLocked is returned when another process holds the run lock.
var ErrLocked = errors.New("another run is in progress")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	platform  ports.Platform
	notifier  ports.Notifier
	snapshots ports.SnapshotStore
	dates     ports.DateSearcher
	lock      *flock.Flock
	closers   []func() error
}

// Deps lets callers replace the outward-facing adapters. Nil fields are
// built from configuration.
type Deps struct {
	Platform  ports.Platform
	Notifier  ports.Notifier
	Snapshots ports.SnapshotStore
	Dates     ports.DateSearcher
}

// New builds the application from configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, deps Deps) (*Application, error) {
	if baseLogger == nil {
		baseLogger = slog.New(slog.DiscardHandler)
	}
	a := &Application{cfg: cfg, logger: baseLogger, lock: flock.New(cfg.Run.LockFile)}

	a.platform = deps.Platform
	if a.platform == nil {
		a.platform = reddit.NewClient(reddit.Config{
			ClientID:     cfg.Reddit.ClientID,
			ClientSecret: cfg.Reddit.ClientSecret,
			Username:     cfg.Reddit.Username,
			Password:     cfg.Reddit.Password,
			UserAgent:    cfg.Reddit.UserAgent,
			APIBase:      cfg.Reddit.APIBase,
			TokenURL:     cfg.Reddit.TokenURL,
		}, nil)
	}

	a.notifier = deps.Notifier
	if a.notifier == nil {
		n, err := buildNotifier(cfg, baseLogger.With("component", "notify"))
		if err != nil {
			return nil, err
		}
		a.notifier = n
	}

	if cfg.Rehearsal() {
		baseLogger.Info("rehearsal mode: platform writes and notifications are logged only")
		a.platform = rehearsal.NewPlatform(a.platform, baseLogger.With("component", "rehearsal"))
		a.notifier = rehearsal.NewNotifier(baseLogger.With("component", "rehearsal"))
	}

	a.snapshots = deps.Snapshots
	if a.snapshots == nil {
		snapshots, closer, err := openSnapshots(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		a.snapshots = snapshots
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	a.dates = deps.Dates
	if a.dates == nil {
		a.dates = datesearch.New()
	}

	return a, nil
}

func buildNotifier(cfg config.Config, logger *slog.Logger) (ports.Notifier, error) {
	var sinks []notify.Sink

	if url := cfg.Notifications.Discord.WebhookURL; url != "" {
		webhook, err := discord.NewWebhook(url)
		if err != nil {
			return nil, fmt.Errorf("discord webhook: %w", err)
		}
		sinks = append(sinks, notify.Sink{Name: "discord", Notifier: webhook})
	}

	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		sinks = append(sinks, notify.Sink{Name: "telegram", Notifier: telegram.NewNotifier(tg.BotToken, tg.ChatID)})
	}

	dispatcher := notify.NewDispatcher(logger, sinks...)
	if dispatcher.Len() == 0 {
		logger.Warn("no notification channel configured")
	}
	return dispatcher, nil
}

func openSnapshots(ctx context.Context, cfg config.StorageConfig) (ports.SnapshotStore, func() error, error) {
	switch cfg.Driver {
	case "", "json":
		return storage.NewJSONFile(cfg.Path), nil, nil
	case "sqlite":
		db, err := storage.OpenSQL(ctx, "sqlite", cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case "postgres":
		db, err := storage.OpenSQL(ctx, "postgres", cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// RunOnce performs one guarded run at trigger. The snapshot is saved even
// when the run fails so completed side effects are not repeated.
func (a *Application) RunOnce(ctx context.Context, trigger time.Time) error {
	logger := a.logger.With("run", uuid.NewString())

	locked, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer func() {
		if err := a.lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", "error", err)
		}
	}()

	now := trigger.In(a.cfg.Scheduler.Location())
	logger.Info("run started", "now", now.Format(time.RFC3339), "mode", a.cfg.Mode)

	st := store.Load(ctx, a.snapshots, logger.With("component", "store"))
	report, runErr := a.pipeline(st, logger).Run(ctx, now)

	if a.cfg.Rehearsal() {
		logger.Info("rehearsal mode: snapshot not saved")
	} else if err := st.Save(ctx, a.snapshots); err != nil {
		if runErr != nil {
			return errors.Join(runErr, err)
		}
		return err
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("run finished",
		"records", st.Len(),
		"next_post", st.NextPost(),
		"window", report.Window,
		"result", string(report.Result),
	)
	return nil
}

// Serve repeats RunOnce every interval until ctx ends or a run fails on
// authentication.
func (a *Application) Serve(ctx context.Context, every time.Duration) error {
	run := func(ctx context.Context, trigger time.Time) error {
		err := a.RunOnce(ctx, trigger)
		if errors.Is(err, ErrLocked) {
			a.logger.Warn("skipping run", "reason", err)
			return nil
		}
		return err
	}
	return usecase.NewScheduler(scheduler.NewTicker(every), run, a.logger.With("component", "scheduler")).Serve(ctx)
}

// Preview computes the calendar from the stored snapshot without contacting
// the platform.
func (a *Application) Preview(ctx context.Context, trigger time.Time) schedule.Plan {
	now := trigger.In(a.cfg.Scheduler.Location())
	st := store.Load(ctx, a.snapshots, a.logger.With("component", "store"))
	return schedule.Build(st.Records(), schedule.Options{
		Today:     now,
		Horizon:   a.cfg.Scheduler.HorizonDays,
		SkipToday: st.LastPostDay() == now.Day(),
	})
}

// Close releases storage handles.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func (a *Application) pipeline(st *store.Store, logger *slog.Logger) *usecase.Pipeline {
	cfg := a.cfg
	tags := readiness.Tags{
		Ready:          cfg.Tags.Ready,
		Emergency:      cfg.Tags.Emergency,
		WorkInProgress: cfg.Tags.WorkInProgress,
	}

	var attribution *domain.Attribution
	if attr := cfg.Notifications.Attribution; attr.Name != "" {
		attribution = &domain.Attribution{Name: attr.Name, URL: attr.URL, IconURL: attr.IconURL}
	}

	machine := readiness.New(readiness.Deps{
		Store:       st,
		Extractor:   extract.New(a.dates, logger.With("component", "extract")),
		Notifier:    a.notifier,
		Tags:        tags,
		Attribution: attribution,
		Logger:      logger.With("component", "readiness"),
	})

	gate := publish.NewGate(publish.Deps{
		Platform: a.platform,
		Store:    st,
		Notifier: a.notifier,
		Tags:     tags,
		Config: publish.Config{
			Venue:     cfg.Venues.Publish,
			FeedLimit: cfg.Venues.FeedLimit,
			MinGap:    cfg.Publish.MinGap(),
			OpenHour:  cfg.Publish.OpenHour,
		},
		Logger: logger.With("component", "publish"),
	})

	return usecase.NewPipeline(usecase.PipelineDeps{
		Platform: a.platform,
		Store:    st,
		Machine:  machine,
		Gate:     gate,
		Notifier: a.notifier,
		Config: usecase.PipelineConfig{
			StagingVenue:   cfg.Venues.Staging,
			StagingLimit:   cfg.Venues.StagingLimit,
			SchedulePostID: cfg.Venues.SchedulePostID,
			Horizon:        cfg.Scheduler.HorizonDays,
			Rehearsal:      cfg.Rehearsal(),
		},
		Logger: logger.With("component", "pipeline"),
	})
}
