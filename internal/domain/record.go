package domain

import (
	"fmt"
	"time"
)

// Date is the calendar day a candidate asked to be featured on.
type Date struct {
	Day   int
	Month int
	Year  int
}

// Valid reports whether both day and month are known.
func (d Date) Valid() bool {
	return d.Day > 0 && d.Month > 0
}

// On reports whether the date falls on the calendar day of t.
func (d Date) On(t time.Time) bool {
	return d.Day == t.Day() && d.Month == int(t.Month()) && d.Year == t.Year()
}

// Before reports whether the date lies strictly before the calendar day of t.
func (d Date) Before(t time.Time) bool {
	if d.Year != t.Year() {
		return d.Year < t.Year()
	}
	if d.Month != int(t.Month()) {
		return d.Month < int(t.Month())
	}
	return d.Day < t.Day()
}

// String renders the date the way the schedule post shows it (d.m.yyyy).
func (d Date) String() string {
	return fmt.Sprintf("%d.%d.%d", d.Day, d.Month, d.Year)
}

// DateOf converts a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}
}

// Lane is the mutually exclusive classification driven by a submission's tag.
type Lane string

const (
	LaneStandard       Lane = "standard"
	LaneEmergency      Lane = "emergency"
	LaneWorkInProgress Lane = "work_in_progress"
)

// State summarises a record for logs and reports.
type State string

const (
	StateNew            State = "new"
	StateWorkInProgress State = "work-in-progress"
	StateEmergency      State = "emergency"
	StateCandidate      State = "candidate"
	StateReady          State = "ready"
)

// Record is the persisted metadata tracked for one staging submission.
type Record struct {
	ID     string
	Target string
	Title  string
	Date   *Date
	Text   string
	Author string

	Lane  Lane
	Ready bool

	// Announced is set before the ready announcement goes out and
	// AnnounceDelivered once the notifier accepted it.
	Announced         bool
	AnnounceDelivered bool

	// MissedReported marks a ready record whose date passed unscheduled
	// and has already been surfaced.
	MissedReported bool
}

// Emergency reports whether the record sits in the emergency pool.
func (r *Record) Emergency() bool {
	return r.Lane == LaneEmergency
}

// WorkInProgress reports whether the record is still being drafted.
func (r *Record) WorkInProgress() bool {
	return r.Lane == LaneWorkInProgress
}

// Publishable evaluates readiness from the extracted fields, independent of
// the persisted Ready flag.
func (r *Record) Publishable() bool {
	if r.WorkInProgress() {
		return false
	}
	if r.Title == "" || r.Target == "" {
		return false
	}
	return r.Date != nil || r.Emergency()
}

// State derives the coarse lifecycle state.
func (r *Record) State() State {
	switch {
	case r.WorkInProgress():
		return StateWorkInProgress
	case r.Ready:
		return StateReady
	case r.Emergency():
		return StateEmergency
	case r.Title != "" || r.Target != "":
		return StateCandidate
	default:
		return StateNew
	}
}
