// Package publish decides when the daily feature may go out and hands the
// designated candidate over to the platform.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
	"SubredditOfTheDay/internal/readiness"
	"SubredditOfTheDay/internal/store"
)

const (
	defaultFeedLimit = 3
	defaultMinGap    = 22 * time.Hour
	defaultOpenHour  = 12
)

// Config describes the publish venue and time window.
type Config struct {
	Venue     string
	FeedLimit int
	MinGap    time.Duration
	OpenHour  int
}

// Result names the outcome of a publish attempt.
type Result string

const (
	ResultPublished   Result = "published"
	ResultNoCandidate Result = "no_candidate"
	ResultGhost       Result = "ghost"
)

// Deps wires the gate.
type Deps struct {
	Platform ports.Platform
	Store    *store.Store
	Notifier ports.Notifier
	Tags     readiness.Tags
	Config   Config
	Logger   *slog.Logger
}

// Gate owns the publish decision and hand-off.
type Gate struct {
	platform ports.Platform
	store    *store.Store
	notifier ports.Notifier
	tags     readiness.Tags
	cfg      Config
	logger   *slog.Logger
}

// NewGate applies defaults to the window settings.
func NewGate(deps Deps) *Gate {
	cfg := deps.Config
	if cfg.FeedLimit <= 0 {
		cfg.FeedLimit = defaultFeedLimit
	}
	if cfg.MinGap <= 0 {
		cfg.MinGap = defaultMinGap
	}
	if cfg.OpenHour <= 0 {
		cfg.OpenHour = defaultOpenHour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gate{
		platform: deps.Platform,
		store:    deps.Store,
		notifier: deps.Notifier,
		tags:     deps.Tags,
		cfg:      cfg,
		logger:   logger,
	}
}

// CheckTime reports whether now is inside the publish window: nothing live
// was posted in the last MinGap and the local hour has reached OpenHour.
func (g *Gate) CheckTime(ctx context.Context, now time.Time) (bool, error) {
	entries, err := g.platform.Listing(ctx, g.cfg.Venue, g.cfg.FeedLimit)
	if err != nil {
		return false, fmt.Errorf("list %s: %w", g.cfg.Venue, err)
	}

	for _, entry := range entries {
		if entry.Removed {
			continue
		}
		if age := now.Sub(entry.CreatedAt); age < g.cfg.MinGap {
			g.logger.Info("last post is too recent", "post", entry.ID, "age", age.Round(time.Minute).String())
			return false, nil
		}
	}

	return now.Hour() >= g.cfg.OpenHour, nil
}

// Publish posts the record NEXT_POST points at.
func (g *Gate) Publish(ctx context.Context, now time.Time) (Result, error) {
	id := g.store.NextPost()
	if id == "" {
		g.reportEmpty(ctx, now)
		return ResultNoCandidate, nil
	}

	rec, ok := g.store.Get(id)
	if !ok {
		g.logger.Warn("next post missing from store", "submission", id)
		g.store.ClearNextPost()
		return ResultGhost, nil
	}

	live, err := g.platform.Submission(ctx, id)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		g.logger.Warn("next post not found on platform", "submission", id)
		live = domain.Submission{ID: id, Removed: true}
	case err != nil:
		return "", fmt.Errorf("fetch %s: %w", id, err)
	}

	if live.Removed || !g.tags.Publishable(live.Tag) {
		g.logger.Warn("ghost in store, dropping", "submission", id, "tag", live.Tag)
		g.store.Delete(id)
		g.store.ClearNextPost()
		return ResultGhost, nil
	}

	title := Title(now, rec)
	posted, err := g.platform.SubmitText(ctx, g.cfg.Venue, title, rec.Text)
	if err != nil {
		return "", fmt.Errorf("submit feature post: %w", err)
	}
	g.logger.Info("feature posted", "submission", id, "post", posted.ID, "title", title)

	g.notify(ctx, domain.Message{
		Title:       "Posted To Subreddit!",
		Description: posted.URL(),
		Color:       domain.ColorGreen,
		URL:         posted.URL(),
	})

	target := rec.Target
	g.store.SetLastPostDay(now.Day())
	g.store.Delete(id)
	g.store.ClearNextPost()

	congrats := fmt.Sprintf("Congratulations, /r/%s! You are Subreddit of the Day!", target)
	if _, err := g.platform.SubmitLink(ctx, target, congrats, posted.URL()); err != nil {
		if errors.Is(err, ports.ErrUnauthorized) {
			return ResultPublished, fmt.Errorf("submit congratulation post: %w", err)
		}
		g.logger.Warn("congratulation post failed", "target", target, "error", err)
	}

	return ResultPublished, nil
}

func (g *Gate) reportEmpty(ctx context.Context, now time.Time) {
	for _, rec := range g.store.Records() {
		if rec.Ready && rec.Emergency() {
			g.logger.Debug("no next post designated, emergency pool not empty")
			return
		}
	}

	if g.store.NoSubAlertDay() == now.Day() {
		g.logger.Debug("no next post, already alerted today")
		return
	}

	g.logger.Warn("no candidate to publish")
	g.notify(ctx, domain.Message{
		Title:       "Error Posting Post",
		Description: "Couldn't find NEXT_POST in DB",
		Color:       domain.ColorRed,
	})
	g.store.SetNoSubAlertDay(now.Day())
}

func (g *Gate) notify(ctx context.Context, msg domain.Message) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.Notify(ctx, msg); err != nil {
		g.logger.Warn("notification failed", "title", msg.Title, "error", err)
	}
}
