// Package rehearsal wraps the outward-facing adapters so a run can be
// exercised against live data without changing anything.
package rehearsal

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
)

// Platform passes reads through and logs writes instead of performing them.
type Platform struct {
	next   ports.Platform
	logger *slog.Logger
	seq    atomic.Int64
}

var _ ports.Platform = (*Platform)(nil)

// NewPlatform wraps next.
func NewPlatform(next ports.Platform, logger *slog.Logger) *Platform {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Platform{next: next, logger: logger}
}

// Login forwards to the wrapped platform when it supports authentication.
func (p *Platform) Login(ctx context.Context) error {
	if auth, ok := p.next.(interface{ Login(context.Context) error }); ok {
		return auth.Login(ctx)
	}
	return nil
}

func (p *Platform) Recent(ctx context.Context, venue string, limit int) ([]domain.Submission, error) {
	return p.next.Recent(ctx, venue, limit)
}

func (p *Platform) Listing(ctx context.Context, venue string, limit int) ([]domain.Submission, error) {
	return p.next.Listing(ctx, venue, limit)
}

func (p *Platform) Submission(ctx context.Context, id string) (domain.Submission, error) {
	return p.next.Submission(ctx, id)
}

func (p *Platform) SubmitText(_ context.Context, venue, title, body string) (domain.Submission, error) {
	p.logger.Info("rehearsal: would submit text post", "venue", venue, "title", title, "body_len", len(body))
	return p.fake(venue, title), nil
}

func (p *Platform) SubmitLink(_ context.Context, venue, title, url string) (domain.Submission, error) {
	p.logger.Info("rehearsal: would submit link post", "venue", venue, "title", title, "url", url)
	return p.fake(venue, title), nil
}

func (p *Platform) EditBody(_ context.Context, id, body string) error {
	p.logger.Info("rehearsal: would edit post", "post", id, "body_len", len(body))
	return nil
}

func (p *Platform) fake(venue, title string) domain.Submission {
	id := fmt.Sprintf("rehearsal%d", p.seq.Add(1))
	return domain.Submission{
		ID:        id,
		Title:     title,
		Permalink: fmt.Sprintf("/r/%s/comments/%s/", venue, id),
	}
}

// Notifier logs messages instead of delivering them.
type Notifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = Notifier{}

// NewNotifier builds a log-only notifier.
func NewNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return Notifier{logger: logger}
}

func (n Notifier) Notify(_ context.Context, msg domain.Message) error {
	n.logger.Info("rehearsal: would notify", "title", msg.Title, "description", msg.Description, "color", string(msg.Color))
	return nil
}
