// Package datesearch finds calendar dates in free text with go-dateparser.
package datesearch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"

	"SubredditOfTheDay/internal/ports"
)

var (
	monthName = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\b`)
	numeric   = regexp.MustCompile(`\b(\d{1,4})[./-](\d{1,2})(?:[./-](\d{2,4}))?\b`)
	dayNumber = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\b`)
	yearToken = regexp.MustCompile(`\b\d{4}\b`)
	relative  = regexp.MustCompile(`(?i)\b(today|tomorrow|yesterday)\b`)
)

// Searcher implements ports.DateSearcher. Only the components actually
// written in the matched text are reported; the rest stay zero.
type Searcher struct{}

var _ ports.DateSearcher = Searcher{}

// New returns a searcher.
func New() Searcher {
	return Searcher{}
}

// SearchDates returns every date found in text, in order of appearance.
// Text is read as English; language detection is not attempted.
func (Searcher) SearchDates(text string, now time.Time) ([]ports.FoundDate, error) {
	cfg := &dps.Configuration{
		CurrentTime: now,
		Languages:   []string{"en"},
	}

	_, results, err := dps.Search(cfg, text)
	if err != nil {
		return nil, fmt.Errorf("search dates: %w", err)
	}

	found := make([]ports.FoundDate, 0, len(results))
	for _, r := range results {
		found = append(found, Stated(r.Text, r.Date.Time))
	}
	return found, nil
}

// Stated keeps the parts of parsed that the matched text spells out.
// A bare weekday or month therefore yields a date without a day.
func Stated(match string, parsed time.Time) ports.FoundDate {
	fd := ports.FoundDate{Text: match}

	if relative.MatchString(match) {
		fd.Day, fd.Month, fd.Year = parsed.Day(), int(parsed.Month()), parsed.Year()
		return fd
	}

	if m := numeric.FindStringSubmatch(match); m != nil {
		fd.Day, fd.Month = parsed.Day(), int(parsed.Month())
		if len(m[1]) == 4 || len(m[3]) == 4 || len(m[3]) == 2 {
			fd.Year = parsed.Year()
		}
		return fd
	}

	if monthName.MatchString(match) {
		fd.Month = int(parsed.Month())
		if hasDay(match) {
			fd.Day = parsed.Day()
		}
		if yearToken.MatchString(match) {
			fd.Year = parsed.Year()
		}
	}
	return fd
}

func hasDay(match string) bool {
	for _, m := range dayNumber.FindAllStringSubmatch(match, -1) {
		n, err := strconv.Atoi(strings.TrimLeft(m[1], "0"))
		if err == nil && n >= 1 && n <= 31 {
			return true
		}
	}
	return false
}
