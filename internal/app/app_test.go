package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"SubredditOfTheDay/internal/config"
	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/infrastructure/storage"
	"SubredditOfTheDay/internal/ports"
	"SubredditOfTheDay/internal/schedule"
)

type quietPlatform struct {
	staging []domain.Submission
	texts   int
}

func (q *quietPlatform) Recent(_ context.Context, venue string, _ int) ([]domain.Submission, error) {
	if venue == "srotd_dev" {
		return q.staging, nil
	}
	return nil, nil
}

func (q *quietPlatform) Listing(ctx context.Context, venue string, limit int) ([]domain.Submission, error) {
	return q.Recent(ctx, venue, limit)
}

func (q *quietPlatform) Submission(_ context.Context, id string) (domain.Submission, error) {
	for _, sub := range q.staging {
		if sub.ID == id {
			return sub, nil
		}
	}
	return domain.Submission{}, ports.ErrNotFound
}

func (q *quietPlatform) SubmitText(context.Context, string, string, string) (domain.Submission, error) {
	q.texts++
	return domain.Submission{ID: "feature"}, nil
}

func (q *quietPlatform) SubmitLink(context.Context, string, string, string) (domain.Submission, error) {
	return domain.Submission{ID: "link"}, nil
}

func (q *quietPlatform) EditBody(context.Context, string, string) error { return nil }

type countingNotifier struct{ sent int }

func (c *countingNotifier) Notify(context.Context, domain.Message) error {
	c.sent++
	return nil
}

type fixedDates struct{}

func (fixedDates) SearchDates(string, time.Time) ([]ports.FoundDate, error) { return nil, nil }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("SROTD_CONFIG", "")
	t.Setenv("SROTD_MODE", "")
	cfg := config.Load()
	dir := t.TempDir()
	cfg.Storage.Path = filepath.Join(dir, "db.json")
	cfg.Run.LockFile = filepath.Join(dir, "srotd.lock")
	return cfg
}

func newApp(t *testing.T, cfg config.Config, p ports.Platform, n ports.Notifier) *Application {
	t.Helper()
	a, err := New(context.Background(), cfg, nil, Deps{Platform: p, Notifier: n, Dates: fixedDates{}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

var afternoon = time.Date(2026, time.June, 5, 13, 0, 0, 0, time.UTC)

func TestRunOnceSavesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	n := &countingNotifier{}
	a := newApp(t, cfg, &quietPlatform{}, n)

	if err := a.RunOnce(context.Background(), afternoon); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n.sent != 1 {
		t.Fatalf("expected the empty-pipeline alert, got %d messages", n.sent)
	}

	snap, err := storage.NewJSONFile(cfg.Storage.Path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.NoSubAlertDay != 5 {
		t.Fatalf("alert day not persisted: %+v", snap)
	}

	if err := a.RunOnce(context.Background(), afternoon.Add(time.Hour)); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n.sent != 1 {
		t.Fatalf("alert must not repeat on the same day")
	}
}

func TestRunOnceRehearsalDoesNotSave(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = config.ModeRehearsal
	p := &quietPlatform{staging: []domain.Submission{{
		ID:    "abc",
		Title: "r/testsub [full]",
		Tag:   "EMERGENCY READY",
	}}}
	a := newApp(t, cfg, p, &countingNotifier{})

	if err := a.RunOnce(context.Background(), afternoon); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(cfg.Storage.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("rehearsal must not write the snapshot: %v", err)
	}
	if p.texts != 0 {
		t.Fatalf("rehearsal must not publish")
	}
}

func TestRunOnceRespectsLock(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg, &quietPlatform{}, &countingNotifier{})

	other := flock.New(cfg.Run.LockFile)
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not take lock: %v", err)
	}
	defer other.Unlock()

	if err := a.RunOnce(context.Background(), afternoon); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestPreviewUsesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	err := storage.NewJSONFile(cfg.Storage.Path).Save(context.Background(), domain.Snapshot{
		Records: []domain.Record{{
			ID: "abc", Target: "testsub", Title: "T", Ready: true, Lane: domain.LaneStandard,
			Date: &domain.Date{Day: 6, Month: 6, Year: 2026},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	plan := newApp(t, cfg, &quietPlatform{}, &countingNotifier{}).Preview(context.Background(), afternoon)
	if plan.Rows[0].Status != schedule.StatusGap || plan.Rows[1].RecordID != "abc" {
		t.Fatalf("unexpected plan rows %+v %+v", plan.Rows[0], plan.Rows[1])
	}
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "redis"
	if _, err := New(context.Background(), cfg, nil, Deps{Platform: &quietPlatform{}, Notifier: &countingNotifier{}}); err == nil {
		t.Fatalf("expected error")
	}
}
