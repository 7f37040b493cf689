package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"SubredditOfTheDay/internal/domain"
)

func TestNotifyPostsForm(t *testing.T) {
	t.Parallel()

	var (
		path string
		form map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"text":       r.PostForm.Get("text"),
			"parse_mode": r.PostForm.Get("parse_mode"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("token", "42")
	n.apiBase = srv.URL
	n.client = srv.Client()

	err := n.Notify(context.Background(), domain.Message{
		Title:       "Posted To Subreddit!",
		Description: "all good",
		Color:       domain.ColorGreen,
		URL:         "https://reddit.com/r/x",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if path != "/bottoken/sendMessage" {
		t.Fatalf("unexpected path %s", path)
	}
	if form["chat_id"] != "42" || form["parse_mode"] != "Markdown" {
		t.Fatalf("unexpected form %+v", form)
	}
	if !strings.HasPrefix(form["text"], "🟢 *Posted To Subreddit!*") || !strings.HasSuffix(form["text"], "https://reddit.com/r/x") {
		t.Fatalf("unexpected text %q", form["text"])
	}
}

func TestNotifyReportsHTTPFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier("token", "42")
	n.apiBase = srv.URL
	if err := n.Notify(context.Background(), domain.Message{Title: "x"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNotifyMisconfigured(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "").Notify(context.Background(), domain.Message{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormatMessageFields(t *testing.T) {
	t.Parallel()

	got := formatMessage(domain.Message{
		Title:  "Missed Post Date",
		Color:  domain.ColorRed,
		Fields: []domain.Field{{Name: "Submission", Value: "abc"}},
	})
	want := "🔴 *Missed Post Date*\n\n_Submission_: abc"
	if got != want {
		t.Fatalf("formatMessage = %q, want %q", got, want)
	}
}
