package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/extract"
	"SubredditOfTheDay/internal/ports"
	"SubredditOfTheDay/internal/publish"
	"SubredditOfTheDay/internal/readiness"
	"SubredditOfTheDay/internal/schedule"
	"SubredditOfTheDay/internal/store"
)

const (
	staging   = "srotd_dev"
	venue     = "subredditoftheday"
	schedPost = "sched"
)

type phraseDates map[string]ports.FoundDate

func (p phraseDates) SearchDates(text string, _ time.Time) ([]ports.FoundDate, error) {
	var found []ports.FoundDate
	for phrase, date := range p {
		if strings.Contains(text, phrase) {
			date.Text = phrase
			found = append(found, date)
		}
	}
	return found, nil
}

type post struct {
	venue, title, body string
}

type fakePlatform struct {
	feeds    map[string][]domain.Submission
	live     map[string]domain.Submission
	loginErr error
	listErr  error
	logins   int
	texts    []post
	links    []post
	edits    []post
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		feeds: map[string][]domain.Submission{},
		live: map[string]domain.Submission{
			schedPost: {ID: schedPost, Body: "Upcoming features\n\n" + schedule.FieldMarker + "\nstale table"},
		},
	}
}

func (f *fakePlatform) Login(context.Context) error {
	f.logins++
	return f.loginErr
}

func (f *fakePlatform) Recent(_ context.Context, v string, _ int) ([]domain.Submission, error) {
	if v == staging && f.listErr != nil {
		return nil, f.listErr
	}
	return f.feeds[v], nil
}

func (f *fakePlatform) Listing(ctx context.Context, v string, limit int) ([]domain.Submission, error) {
	return f.Recent(ctx, v, limit)
}

func (f *fakePlatform) Submission(_ context.Context, id string) (domain.Submission, error) {
	sub, ok := f.live[id]
	if !ok {
		return domain.Submission{}, fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}
	return sub, nil
}

func (f *fakePlatform) SubmitText(_ context.Context, v, title, body string) (domain.Submission, error) {
	f.texts = append(f.texts, post{v, title, body})
	return domain.Submission{ID: "feature", Permalink: "/r/" + v + "/comments/feature/"}, nil
}

func (f *fakePlatform) SubmitLink(_ context.Context, v, title, url string) (domain.Submission, error) {
	f.links = append(f.links, post{v, title, url})
	return domain.Submission{ID: "congrats"}, nil
}

func (f *fakePlatform) EditBody(_ context.Context, id, body string) error {
	f.edits = append(f.edits, post{"", id, body})
	return nil
}

type collectNotifier struct{ messages []domain.Message }

func (c *collectNotifier) Notify(_ context.Context, msg domain.Message) error {
	c.messages = append(c.messages, msg)
	return nil
}

func (c *collectNotifier) titles() []string {
	out := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		out = append(out, m.Title)
	}
	return out
}

var tags = readiness.Tags{Ready: "BOT READY", Emergency: "EMERGENCY READY", WorkInProgress: "WORK IN PROGRESS"}

func newPipeline(p *fakePlatform, s *store.Store, n *collectNotifier, rehearsal bool) *Pipeline {
	extractor := extract.New(phraseDates{"June 5th": {Day: 5, Month: 6}, "June 1st": {Day: 1, Month: 6}}, nil)
	return NewPipeline(PipelineDeps{
		Platform: p,
		Store:    s,
		Machine:  readiness.New(readiness.Deps{Store: s, Extractor: extractor, Notifier: n, Tags: tags}),
		Gate:     publish.NewGate(publish.Deps{Platform: p, Store: s, Notifier: n, Tags: tags, Config: publish.Config{Venue: venue}}),
		Notifier: n,
		Config: PipelineConfig{
			StagingVenue:   staging,
			SchedulePostID: schedPost,
			Rehearsal:      rehearsal,
		},
	})
}

func readySubmission(now time.Time) domain.Submission {
	return domain.Submission{
		ID:        "abc",
		Title:     "r/testsub will be live on June 5th",
		Body:      "Welcome to testsub",
		Author:    "writer",
		Tag:       "BOT READY",
		CreatedAt: now.Add(-48 * time.Hour),
		Permalink: "/r/srotd_dev/comments/abc/",
		Comments: []domain.Comment{
			{ID: "c1", Body: "[title] Tests are great", CreatedAt: now.Add(-47 * time.Hour)},
		},
	}
}

func TestRunPublishesTodaysCandidate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 5, 13, 0, 0, 0, time.UTC)
	p := newFakePlatform()
	sub := readySubmission(now)
	p.feeds[staging] = []domain.Submission{sub}
	p.feeds[venue] = []domain.Submission{{ID: "old", CreatedAt: now.Add(-30 * time.Hour)}}
	p.live[sub.ID] = sub

	s := store.New()
	n := &collectNotifier{}

	report, err := newPipeline(p, s, n, false).Run(context.Background(), now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if p.logins != 1 {
		t.Fatalf("expected one login, got %d", p.logins)
	}
	if report.Created != 1 || report.Announced != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Plan.NextPost != "abc" || !report.Window || report.Result != publish.ResultPublished {
		t.Fatalf("unexpected report %+v", report)
	}

	if len(p.edits) != 1 {
		t.Fatalf("schedule post not edited")
	}
	edited := p.edits[0].body
	if !strings.HasPrefix(edited, "Upcoming features\n\n"+schedule.FieldMarker) || strings.Contains(edited, "stale table") || !strings.Contains(edited, "testsub") {
		t.Fatalf("unexpected schedule body:\n%s", edited)
	}

	if len(p.texts) != 1 || p.texts[0].title != "June 5th, 2026 - /r/testsub: Tests are great" || p.texts[0].body != "Welcome to testsub" {
		t.Fatalf("unexpected feature post %+v", p.texts)
	}
	if len(p.links) != 1 || p.links[0].venue != "testsub" {
		t.Fatalf("unexpected congratulation post %+v", p.links)
	}

	if _, ok := s.Get("abc"); ok {
		t.Fatalf("published record must be removed")
	}
	if s.NextPost() != "" || s.LastPostDay() != 5 {
		t.Fatalf("unexpected store scalars next=%q last=%d", s.NextPost(), s.LastPostDay())
	}

	titles := n.titles()
	if len(titles) != 2 || titles[0] != "/r/testsub: Tests are great" || titles[1] != "Posted To Subreddit!" {
		t.Fatalf("unexpected notifications %v", titles)
	}
}

func TestRunSecondPassSameDayDoesNothing(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 5, 13, 0, 0, 0, time.UTC)
	p := newFakePlatform()
	s := store.New()
	s.SetLastPostDay(5)
	rec, _ := s.Ensure("other")
	rec.Target, rec.Title, rec.Lane, rec.Ready = "x", "X", domain.LaneEmergency, true

	report, err := newPipeline(p, s, &collectNotifier{}, false).Run(context.Background(), now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Plan.Rows[0].Status != schedule.StatusSkipped || s.NextPost() != "" {
		t.Fatalf("day 0 must be skipped after posting today: %+v", report.Plan.Rows[0])
	}
	if report.Plan.Rows[1].RecordID != "other" {
		t.Fatalf("emergency should fill tomorrow: %+v", report.Plan.Rows[1])
	}
	if len(p.texts) != 0 {
		t.Fatalf("nothing may be posted")
	}
}

func TestRunOutsideWindowKeepsPointer(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 5, 9, 0, 0, 0, time.UTC)
	p := newFakePlatform()
	sub := readySubmission(now)
	p.feeds[staging] = []domain.Submission{sub}
	p.live[sub.ID] = sub

	s := store.New()
	report, err := newPipeline(p, s, &collectNotifier{}, false).Run(context.Background(), now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Window || report.Result != "" {
		t.Fatalf("unexpected report %+v", report)
	}
	if s.NextPost() != "abc" {
		t.Fatalf("pointer should designate abc, got %q", s.NextPost())
	}
	if len(p.texts) != 0 {
		t.Fatalf("nothing may be posted before the window opens")
	}
}

func TestRunRehearsalLeavesTodayUnplanned(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 5, 13, 0, 0, 0, time.UTC)
	p := newFakePlatform()
	sub := readySubmission(now)
	p.feeds[staging] = []domain.Submission{sub}
	p.live[sub.ID] = sub

	s := store.New()
	n := &collectNotifier{}
	report, err := newPipeline(p, s, n, true).Run(context.Background(), now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Plan.NextPost != "" || s.NextPost() != "" {
		t.Fatalf("rehearsal must not designate a post")
	}
	if len(p.texts) != 0 {
		t.Fatalf("rehearsal must not publish")
	}
	if report.Result != publish.ResultNoCandidate {
		t.Fatalf("unexpected result %q", report.Result)
	}
}

func TestRunReportsStaleOnce(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 5, 9, 0, 0, 0, time.UTC)
	p := newFakePlatform()
	s := store.New()
	rec, _ := s.Ensure("late")
	rec.Target, rec.Title, rec.Ready = "late", "Late", true
	rec.Date = &domain.Date{Day: 1, Month: 6, Year: 2026}

	n := &collectNotifier{}
	pipeline := newPipeline(p, s, n, false)

	for i := 0; i < 2; i++ {
		report, err := pipeline.Run(context.Background(), now)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if len(report.Plan.Stale) != 1 {
			t.Fatalf("expected one stale record, got %v", report.Plan.Stale)
		}
	}

	titles := n.titles()
	if len(titles) != 1 || titles[0] != "Missed Post Date" {
		t.Fatalf("stale record must be reported exactly once, got %v", titles)
	}
	if !rec.MissedReported {
		t.Fatalf("flag not set")
	}
}

func TestRunAbortsOnUnauthorized(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 5, 13, 0, 0, 0, time.UTC)

	p := newFakePlatform()
	p.loginErr = fmt.Errorf("%w: bad password", ports.ErrUnauthorized)
	if _, err := newPipeline(p, store.New(), &collectNotifier{}, false).Run(context.Background(), now); !errors.Is(err, ports.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized from login, got %v", err)
	}

	p = newFakePlatform()
	p.listErr = fmt.Errorf("%w: token revoked", ports.ErrUnauthorized)
	if _, err := newPipeline(p, store.New(), &collectNotifier{}, false).Run(context.Background(), now); !errors.Is(err, ports.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized from listing, got %v", err)
	}
	if len(p.edits) != 0 {
		t.Fatalf("run must stop before touching the schedule post")
	}
}

func TestRunContinuesAfterListingFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 5, 9, 0, 0, 0, time.UTC)
	p := newFakePlatform()
	p.listErr = errors.New("503 service unavailable")

	if _, err := newPipeline(p, store.New(), &collectNotifier{}, false).Run(context.Background(), now); err != nil {
		t.Fatalf("transient errors must not abort the run: %v", err)
	}
	if len(p.edits) != 1 {
		t.Fatalf("schedule post should still be refreshed")
	}
}
