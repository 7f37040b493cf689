// Package readiness applies a submission's current tag and extracted fields
// to its record, keeps the Ready flag consistent with the record contents and
// announces a record the first time it becomes publishable.
package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/extract"
	"SubredditOfTheDay/internal/ports"
	"SubredditOfTheDay/internal/store"
)

const previewLength = 45

// Tags maps platform tag labels onto lanes.
type Tags struct {
	Ready          string
	Emergency      string
	WorkInProgress string
}

// Lane classifies a tag label; unknown labels are rejected.
func (t Tags) Lane(label string) (domain.Lane, bool) {
	label = strings.TrimSpace(label)
	switch {
	case label == "":
		return "", false
	case label == t.Ready:
		return domain.LaneStandard, true
	case label == t.Emergency:
		return domain.LaneEmergency, true
	case label == t.WorkInProgress:
		return domain.LaneWorkInProgress, true
	default:
		return "", false
	}
}

// Publishable reports whether the label still marks a submission as ready
// to go out.
func (t Tags) Publishable(label string) bool {
	lane, ok := t.Lane(label)
	return ok && lane != domain.LaneWorkInProgress
}

// Outcome describes what one observation did.
type Outcome struct {
	Ignored     bool
	Deleted     bool
	Created     bool
	BecameReady bool
	Announced   bool
}

// Deps wires the collaborators of the machine.
type Deps struct {
	Store       *store.Store
	Extractor   *extract.Extractor
	Notifier    ports.Notifier
	Tags        Tags
	Attribution *domain.Attribution
	Logger      *slog.Logger
}

// Machine drives record transitions from observed submissions.
type Machine struct {
	store       *store.Store
	extractor   *extract.Extractor
	notifier    ports.Notifier
	tags        Tags
	attribution *domain.Attribution
	logger      *slog.Logger
}

// New constructs the state machine.
func New(deps Deps) *Machine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Machine{
		store:       deps.Store,
		extractor:   deps.Extractor,
		notifier:    deps.Notifier,
		tags:        deps.Tags,
		attribution: deps.Attribution,
		logger:      logger,
	}
}

// Observe applies one observation of a submission.
func (m *Machine) Observe(ctx context.Context, sub domain.Submission, now time.Time) Outcome {
	if sub.Removed {
		if _, ok := m.store.Get(sub.ID); ok {
			m.logger.Info("submission removed, dropping record", "submission", sub.ID)
			m.store.Delete(sub.ID)
			return Outcome{Deleted: true}
		}
		return Outcome{Ignored: true}
	}

	lane, ok := m.tags.Lane(sub.Tag)
	if !ok {
		m.logger.Debug("skipping untagged submission", "submission", sub.ID, "tag", sub.Tag)
		return Outcome{Ignored: true}
	}

	rec, created := m.store.Ensure(sub.ID)
	outcome := Outcome{Created: created}
	if created {
		m.logger.Info("tracking new submission", "submission", sub.ID, "tag", sub.Tag)
	}

	rec.Text = sub.Body
	if sub.Author != "" {
		rec.Author = sub.Author
	}
	rec.Lane = lane

	if m.extractor != nil {
		patch := m.extractor.Extract(sub, now, lane != domain.LaneEmergency)
		patch.Apply(rec)
	}

	wasReady := rec.Ready
	rec.Ready = rec.Publishable()
	outcome.BecameReady = rec.Ready && !wasReady

	m.logger.Debug("observed submission",
		"submission", sub.ID,
		"state", rec.State(),
		"target", rec.Target,
		"title", rec.Title,
		"has_date", rec.Date != nil,
	)

	if rec.Ready && !rec.Announced {
		outcome.Announced = m.announce(ctx, rec, sub)
	}

	return outcome
}

func (m *Machine) announce(ctx context.Context, rec *domain.Record, sub domain.Submission) bool {
	rec.Announced = true
	m.logger.Info("announcing ready submission", "submission", rec.ID, "target", rec.Target)

	if m.notifier == nil {
		return false
	}
	if err := m.notifier.Notify(ctx, ReadyMessage(rec, sub, m.attribution)); err != nil {
		m.logger.Warn("ready announcement failed", "submission", rec.ID, "error", err)
		return false
	}
	rec.AnnounceDelivered = true
	return true
}

// ReadyMessage builds the announcement sent when a record becomes ready.
func ReadyMessage(rec *domain.Record, sub domain.Submission, author *domain.Attribution) domain.Message {
	preview := sub.Preview
	if preview == "" {
		preview = rec.Text
	}
	if runes := []rune(preview); len(runes) > previewLength {
		preview = string(runes[:previewLength])
	}

	status := "Normal Post"
	if rec.Emergency() {
		status = "Emergency Post"
	}

	msg := domain.Message{
		Title:       fmt.Sprintf("/r/%s: %s", rec.Target, rec.Title),
		Description: fmt.Sprintf("New Post Ready\n %s\n [...]", preview),
		Color:       domain.ColorGreen,
		URL:         sub.URL(),
		Author:      author,
	}
	if rec.Date != nil {
		msg.Fields = append(msg.Fields, domain.Field{Name: "Date", Value: rec.Date.String()})
	}
	msg.Fields = append(msg.Fields, domain.Field{Name: "Status", Value: status})
	return msg
}
