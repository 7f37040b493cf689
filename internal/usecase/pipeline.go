package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
	"SubredditOfTheDay/internal/publish"
	"SubredditOfTheDay/internal/readiness"
	"SubredditOfTheDay/internal/schedule"
	"SubredditOfTheDay/internal/store"
)

const defaultStagingLimit = 15

// Authenticator is implemented by platforms that need a session before use.
type Authenticator interface {
	Login(ctx context.Context) error
}

// PipelineConfig carries the venue and calendar settings of a run.
type PipelineConfig struct {
	StagingVenue   string
	StagingLimit   int
	SchedulePostID string
	Horizon        int
	// Rehearsal leaves today unplanned so nothing gets designated for posting.
	Rehearsal bool
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Platform ports.Platform
	Store    *store.Store
	Machine  *readiness.Machine
	Gate     *publish.Gate
	Notifier ports.Notifier
	Config   PipelineConfig
	Logger   *slog.Logger
}

// Pipeline runs one full bot cycle against the store.
type Pipeline struct {
	platform ports.Platform
	store    *store.Store
	machine  *readiness.Machine
	gate     *publish.Gate
	notifier ports.Notifier
	cfg      PipelineConfig
	logger   *slog.Logger
}

// Report summarises a run.
type Report struct {
	Observed  int
	Created   int
	Deleted   int
	Announced int
	Plan      schedule.Plan
	Window    bool
	Result    publish.Result
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	cfg := deps.Config
	if cfg.StagingLimit <= 0 {
		cfg.StagingLimit = defaultStagingLimit
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = schedule.DefaultHorizon
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		platform: deps.Platform,
		store:    deps.Store,
		machine:  deps.Machine,
		gate:     deps.Gate,
		notifier: deps.Notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes ingest, planning, schedule refresh and the publish attempt.
// Only authentication failures abort the run; anything else is logged and
// the remaining steps still execute.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (Report, error) {
	var report Report

	if auth, ok := p.platform.(Authenticator); ok {
		if err := auth.Login(ctx); err != nil {
			return report, fmt.Errorf("login: %w", err)
		}
	}

	if err := p.ingest(ctx, now, &report); err != nil {
		if fatal(err) {
			return report, err
		}
		p.logger.Error("ingest failed", "error", err)
	}

	report.Plan = p.plan(now)
	p.reportStale(ctx, report.Plan)

	if err := p.refreshSchedule(ctx, report.Plan); err != nil {
		if fatal(err) {
			return report, err
		}
		p.logger.Error("schedule post refresh failed", "error", err)
	}

	if p.gate == nil {
		return report, nil
	}

	open, err := p.gate.CheckTime(ctx, now)
	if err != nil {
		if fatal(err) {
			return report, err
		}
		p.logger.Error("time check failed", "error", err)
		return report, nil
	}
	report.Window = open
	if !open {
		p.logger.Info("outside publish window")
		return report, nil
	}

	result, err := p.gate.Publish(ctx, now)
	if err != nil {
		if fatal(err) {
			return report, err
		}
		p.logger.Error("publish failed", "error", err)
		return report, nil
	}
	report.Result = result
	p.logger.Info("publish attempt finished", "result", string(result))
	return report, nil
}

func (p *Pipeline) ingest(ctx context.Context, now time.Time, report *Report) error {
	subs, err := p.platform.Recent(ctx, p.cfg.StagingVenue, p.cfg.StagingLimit)
	if err != nil {
		return fmt.Errorf("list staging venue: %w", err)
	}

	for _, sub := range subs {
		outcome := p.machine.Observe(ctx, sub, now)
		if outcome.Ignored {
			continue
		}
		report.Observed++
		if outcome.Created {
			report.Created++
		}
		if outcome.Deleted {
			report.Deleted++
		}
		if outcome.Announced {
			report.Announced++
		}
	}

	p.logger.Info("ingest finished",
		"listed", len(subs),
		"observed", report.Observed,
		"created", report.Created,
		"deleted", report.Deleted,
		"announced", report.Announced,
	)
	return nil
}

func (p *Pipeline) plan(now time.Time) schedule.Plan {
	skipToday := p.cfg.Rehearsal || p.store.LastPostDay() == now.Day()

	plan := schedule.Build(p.store.Records(), schedule.Options{
		Today:     now,
		Horizon:   p.cfg.Horizon,
		SkipToday: skipToday,
	})

	if !skipToday {
		if plan.NextPost != "" {
			p.store.SetNextPost(plan.NextPost)
		} else {
			p.store.ClearNextPost()
		}
	}

	p.logger.Info("calendar computed",
		"next_post", p.store.NextPost(),
		"skip_today", skipToday,
		"gaps", plan.Gaps(),
		"stale", len(plan.Stale),
	)
	return plan
}

func (p *Pipeline) reportStale(ctx context.Context, plan schedule.Plan) {
	for _, id := range plan.Stale {
		rec, ok := p.store.Get(id)
		if !ok || rec.MissedReported {
			continue
		}
		p.logger.Warn("ready submission missed its date", "submission", id, "target", rec.Target, "date", rec.Date.String())
		rec.MissedReported = true
		p.notify(ctx, StaleMessage(rec))
	}
}

func (p *Pipeline) refreshSchedule(ctx context.Context, plan schedule.Plan) error {
	if p.cfg.SchedulePostID == "" {
		return nil
	}

	post, err := p.platform.Submission(ctx, p.cfg.SchedulePostID)
	if err != nil {
		return fmt.Errorf("fetch schedule post: %w", err)
	}

	body := schedule.Splice(post.Body, schedule.Render(plan))
	if body == post.Body {
		p.logger.Debug("schedule post unchanged")
		return nil
	}
	if err := p.platform.EditBody(ctx, p.cfg.SchedulePostID, body); err != nil {
		return fmt.Errorf("edit schedule post: %w", err)
	}
	p.logger.Info("schedule post updated", "post", p.cfg.SchedulePostID)
	return nil
}

func (p *Pipeline) notify(ctx context.Context, msg domain.Message) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, msg); err != nil {
		p.logger.Warn("notification failed", "title", msg.Title, "error", err)
	}
}

// StaleMessage tells moderators a ready post was never scheduled.
func StaleMessage(rec *domain.Record) domain.Message {
	date := ""
	if rec.Date != nil {
		date = rec.Date.String()
	}
	return domain.Message{
		Title:       "Missed Post Date",
		Description: fmt.Sprintf("/r/%s was due on %s but never went out. Set a new date or mark it as emergency.", rec.Target, date),
		Color:       domain.ColorRed,
		Fields: []domain.Field{
			{Name: "Submission", Value: rec.ID},
		},
	}
}

func fatal(err error) bool {
	return errors.Is(err, ports.ErrUnauthorized)
}
