package extract

import "SubredditOfTheDay/internal/domain"

// Patch holds the fields found by one extraction pass. Nil fields were not
// found and leave the record untouched.
type Patch struct {
	Date   *domain.Date
	Title  *string
	Target *string
}

// Empty reports whether the pass found nothing.
func (p Patch) Empty() bool {
	return p.Date == nil && p.Title == nil && p.Target == nil
}

// Apply merges the patch into the record; the latest observation wins for
// every field it carries.
func (p Patch) Apply(rec *domain.Record) {
	if p.Date != nil {
		date := *p.Date
		rec.Date = &date
	}
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Target != nil {
		rec.Target = *p.Target
	}
}
