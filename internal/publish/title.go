package publish

import (
	"fmt"
	"time"

	"SubredditOfTheDay/internal/domain"
)

// FormatDate renders a day the way feature titles do, e.g. "June 1st, 2026".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s %d%s, %d", t.Month(), t.Day(), ordinal(t.Day()), t.Year())
}

func ordinal(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// Title builds the feature post title for a record published at t.
func Title(t time.Time, rec *domain.Record) string {
	return fmt.Sprintf("%s - /r/%s: %s", FormatDate(t), rec.Target, rec.Title)
}
