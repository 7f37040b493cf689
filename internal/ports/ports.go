package ports

import (
	"context"
	"time"

	"SubredditOfTheDay/internal/domain"
)

// Platform is the content platform hosting the staging and publish venues.
type Platform interface {
	// Recent lists the newest submissions of a venue, newest first, with
	// their top-level comments.
	Recent(ctx context.Context, venue string, limit int) ([]domain.Submission, error)
	// Listing is Recent without comments.
	Listing(ctx context.Context, venue string, limit int) ([]domain.Submission, error)
	Submission(ctx context.Context, id string) (domain.Submission, error)
	SubmitText(ctx context.Context, venue, title, body string) (domain.Submission, error)
	SubmitLink(ctx context.Context, venue, title, url string) (domain.Submission, error)
	EditBody(ctx context.Context, id, body string) error
}

// Notifier delivers structured messages to the operators' channel.
type Notifier interface {
	Notify(ctx context.Context, msg domain.Message) error
}

// SnapshotStore loads and saves the candidate store image.
type SnapshotStore interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snap domain.Snapshot) error
}

// FoundDate is one date located in free text. Zero fields were not stated.
type FoundDate struct {
	Text  string
	Day   int
	Month int
	Year  int
}

// DateSearcher locates natural-language dates inside longer text.
type DateSearcher interface {
	SearchDates(text string, now time.Time) ([]FoundDate, error)
}

// Scheduler controls when recurring runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
