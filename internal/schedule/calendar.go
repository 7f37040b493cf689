// Package schedule assigns ready candidates to the days of the publishing
// calendar and renders the result for the public schedule post.
package schedule

import (
	"time"

	"SubredditOfTheDay/internal/domain"
)

// DefaultHorizon is the number of calendar days planned ahead, today included.
const DefaultHorizon = 30

// Status labels a calendar row.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusEmergency Status = "Emergency"
	StatusGap       Status = "Gap"
	StatusSkipped   Status = "Skipped"
)

// Row is one day of the calendar.
type Row struct {
	Offset   int
	Day      domain.Date
	RecordID string
	Target   string
	Status   Status
}

// Assigned reports whether a record fills the row.
func (r Row) Assigned() bool {
	return r.RecordID != ""
}

// Plan is the outcome of one calendar computation.
type Plan struct {
	Rows []Row
	// NextPost is the record assigned to today, empty when today is a gap or skipped.
	NextPost string
	// Stale lists ready dated records whose day has already passed.
	Stale []string
}

// Gaps counts rows with no candidate.
func (p Plan) Gaps() int {
	n := 0
	for _, row := range p.Rows {
		if row.Status == StatusGap {
			n++
		}
	}
	return n
}

// Options tune a calendar computation.
type Options struct {
	Today   time.Time
	Horizon int
	// SkipToday leaves day 0 unassigned.
	SkipToday bool
}

// Build assigns records to days greedily. Only ready records take part; they
// are split into an emergency pool and a dated pool, both kept in encounter
// order. Each day takes the first dated record matching it exactly and falls
// back to the oldest emergency record.
func Build(records []*domain.Record, opts Options) Plan {
	horizon := opts.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	var ready, emergency []*domain.Record
	for _, rec := range records {
		if rec == nil || !rec.Ready {
			continue
		}
		if rec.Emergency() {
			emergency = append(emergency, rec)
		} else {
			ready = append(ready, rec)
		}
	}

	plan := Plan{Rows: make([]Row, 0, horizon)}
	today := opts.Today

	for i := 0; i < horizon; i++ {
		day := today.AddDate(0, 0, i)
		row := Row{Offset: i, Day: domain.DateOf(day)}

		if i == 0 && opts.SkipToday {
			row.Status = StatusSkipped
			plan.Rows = append(plan.Rows, row)
			continue
		}

		if idx := matchDay(ready, day); idx >= 0 {
			rec := ready[idx]
			ready = append(ready[:idx], ready[idx+1:]...)
			row.RecordID, row.Target, row.Status = rec.ID, rec.Target, StatusScheduled
		} else if len(emergency) > 0 {
			rec := emergency[0]
			emergency = emergency[1:]
			row.RecordID, row.Target, row.Status = rec.ID, rec.Target, StatusEmergency
		} else {
			row.Status = StatusGap
		}

		if i == 0 {
			plan.NextPost = row.RecordID
		}
		plan.Rows = append(plan.Rows, row)
	}

	for _, rec := range ready {
		if rec.Date != nil && rec.Date.Before(today) {
			plan.Stale = append(plan.Stale, rec.ID)
		}
	}

	return plan
}

func matchDay(pool []*domain.Record, day time.Time) int {
	for i, rec := range pool {
		if rec.Date != nil && rec.Date.On(day) {
			return i
		}
	}
	return -1
}
