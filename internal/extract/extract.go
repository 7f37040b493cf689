// Package extract derives the publish date, display title and target
// community of a candidate from free-form submission and comment text.
//
// Extraction never fails: a field that cannot be found is simply absent from
// the returned Patch.
package extract

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
)

const (
	markerDate  = "[date]"
	markerFull  = "[full]"
	markerTitle = "[title]"
)

// Extractor runs the field extraction rules against a submission.
type Extractor struct {
	dates  ports.DateSearcher
	logger *slog.Logger
}

// New builds an extractor backed by the given date searcher.
func New(dates ports.DateSearcher, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{dates: dates, logger: logger}
}

// Extract produces the patch for one observation. Date extraction is skipped
// when withDate is false.
func (e *Extractor) Extract(sub domain.Submission, now time.Time, withDate bool) Patch {
	var patch Patch

	if withDate {
		if date, ok := e.Date(sub, now); ok {
			patch.Date = &date
		}
	}
	if title, ok := Title(sub); ok {
		patch.Title = &title
	}
	if target, ok := Target(sub.Title); ok {
		patch.Target = &target
	}

	return patch
}

// Date searches the submission title first, then date-tagged comments in
// creation order. The first valid date wins.
func (e *Extractor) Date(sub domain.Submission, now time.Time) (domain.Date, bool) {
	if date, ok := e.searchDate(unescape(sub.Title), now); ok {
		e.logger.Info("found date in title", "submission", sub.ID, "date", date.String())
		return date, true
	}

	for _, comment := range chronological(sub.Comments) {
		body := unescape(comment.Body)
		if !containsFold(body, markerDate) && !containsFold(body, markerFull) {
			continue
		}
		if date, ok := e.searchDate(body, now); ok {
			e.logger.Info("found date comment", "submission", sub.ID, "comment", comment.ID, "date", date.String())
			return date, true
		}
	}

	return domain.Date{}, false
}

func (e *Extractor) searchDate(text string, now time.Time) (domain.Date, bool) {
	if e.dates == nil || strings.TrimSpace(text) == "" {
		return domain.Date{}, false
	}

	found, err := e.dates.SearchDates(text, now)
	if err != nil {
		e.logger.Warn("date search failed", "error", err)
		return domain.Date{}, false
	}
	if len(found) == 0 {
		return domain.Date{}, false
	}
	if len(found) > 1 {
		e.logger.Error("more than one date found, using the first", "count", len(found), "first", found[0].Text)
	}

	date := InferDate(found[0], now)
	if !date.Valid() {
		e.logger.Warn("day or month missing from date", "text", found[0].Text)
		return domain.Date{}, false
	}
	return date, true
}

// InferDate fills in the year of a found date. An explicit year is kept as
// stated; otherwise the current year is used, moving to the next one when a
// January date is mentioned in December.
func InferDate(found ports.FoundDate, now time.Time) domain.Date {
	date := domain.Date{Day: found.Day, Month: found.Month, Year: found.Year}
	if date.Year != 0 {
		return date
	}

	date.Year = now.Year()
	if date.Month == int(time.January) && now.Month() == time.December {
		date.Year++
	}
	return date
}

func chronological(comments []domain.Comment) []domain.Comment {
	ordered := make([]domain.Comment, len(comments))
	copy(ordered, comments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered
}

// unescape drops the backslashes the new reddit editor inserts.
func unescape(s string) string {
	return strings.ReplaceAll(s, `\`, "")
}

func containsFold(s, marker string) bool {
	return strings.Contains(cases.Fold().String(s), marker)
}

// indexFold finds an ASCII needle in s ignoring case and returns its byte offset.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
