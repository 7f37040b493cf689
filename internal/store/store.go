// Package store holds the candidate records and scheduling scalars for the
// duration of one run. It is loaded once from a snapshot at process start and
// saved once at the end; nothing in between touches durable storage.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
)

// Store is the in-memory candidate store. It is owned by a single run and is
// not safe for concurrent use.
type Store struct {
	records map[string]*domain.Record
	order   []string

	nextPost      string
	lastPostDay   int
	noSubAlertDay int
}

// New returns an empty store.
func New() *Store {
	return &Store{records: map[string]*domain.Record{}}
}

// Get returns the record for id.
func (s *Store) Get(id string) (*domain.Record, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Ensure returns the record for id, creating it on first observation.
func (s *Store) Ensure(id string) (*domain.Record, bool) {
	if rec, ok := s.records[id]; ok {
		return rec, false
	}
	rec := &domain.Record{ID: id, Lane: domain.LaneStandard}
	s.records[id] = rec
	s.order = append(s.order, id)
	return rec, true
}

// Delete drops a record; a pointer to it is cleared as well.
func (s *Store) Delete(id string) {
	if _, ok := s.records[id]; !ok {
		return
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.nextPost == id {
		s.nextPost = ""
	}
}

// Records lists records in encounter order.
func (s *Store) Records() []*domain.Record {
	out := make([]*domain.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Len reports the number of records.
func (s *Store) Len() int {
	return len(s.order)
}

// NextPost is the identifier designated to publish next, empty when unset.
func (s *Store) NextPost() string {
	return s.nextPost
}

func (s *Store) SetNextPost(id string) {
	s.nextPost = id
}

func (s *Store) ClearNextPost() {
	s.nextPost = ""
}

// LastPostDay is the day-of-month of the latest publish, 0 when never.
func (s *Store) LastPostDay() int {
	return s.lastPostDay
}

func (s *Store) SetLastPostDay(day int) {
	s.lastPostDay = day
}

// NoSubAlertDay is the day-of-month the empty-pipeline alert last went out.
func (s *Store) NoSubAlertDay() int {
	return s.noSubAlertDay
}

func (s *Store) SetNoSubAlertDay(day int) {
	s.noSubAlertDay = day
}

// Snapshot copies the store into its durable form.
func (s *Store) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		Records:       make([]domain.Record, 0, len(s.order)),
		NextPost:      s.nextPost,
		LastPostDay:   s.lastPostDay,
		NoSubAlertDay: s.noSubAlertDay,
	}
	for _, rec := range s.Records() {
		cp := *rec
		if rec.Date != nil {
			date := *rec.Date
			cp.Date = &date
		}
		snap.Records = append(snap.Records, cp)
	}
	return snap
}

// Restore replaces the store contents with a snapshot. Duplicate or empty
// identifiers are skipped.
func (s *Store) Restore(snap domain.Snapshot) {
	s.records = make(map[string]*domain.Record, len(snap.Records))
	s.order = s.order[:0]
	for i := range snap.Records {
		rec := snap.Records[i]
		if rec.ID == "" {
			continue
		}
		if _, dup := s.records[rec.ID]; dup {
			continue
		}
		if rec.Lane == "" {
			rec.Lane = domain.LaneStandard
		}
		s.records[rec.ID] = &rec
		s.order = append(s.order, rec.ID)
	}
	s.nextPost = snap.NextPost
	s.lastPostDay = snap.LastPostDay
	s.noSubAlertDay = snap.NoSubAlertDay
}

// Load builds a store from durable storage. Any read failure yields an empty
// store so a corrupt snapshot never blocks a run.
func Load(ctx context.Context, snapshots ports.SnapshotStore, logger *slog.Logger) *Store {
	s := New()
	if snapshots == nil {
		return s
	}

	snap, err := snapshots.Load(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("snapshot unreadable, starting with an empty store", "error", err)
		}
		return s
	}
	s.Restore(snap)
	if logger != nil {
		logger.Debug("store loaded", "records", s.Len(), "next_post", s.nextPost)
	}
	return s
}

// Save writes the store to durable storage.
func (s *Store) Save(ctx context.Context, snapshots ports.SnapshotStore) error {
	if snapshots == nil {
		return nil
	}
	if err := snapshots.Save(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
