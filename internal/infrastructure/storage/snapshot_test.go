package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"SubredditOfTheDay/internal/domain"
)

const legacyDB = `{"zzz": {"text": "hello", "author": "a", "sub": "testsub", "title": "Tests", "date": {"day": 5, "month": 6, "year": 2026}, "IS_READY": null, "ANNOUNCED": null, "DEFINITELY_ANNOUNCED": null},
 "aaa": {"text": "", "author": "b", "EMERGENCY": null},
 "mmm": {"text": "draft", "author": "c", "WORK_IN_PROGRESS": null, "MISSED_DATE_REPORTED": null},
 "NEXT_POST": "zzz", "LAST_POST_DAY": 4, "HAS_POSTED_ABOUT_NO_SUB": 3}`

func sampleSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Records: []domain.Record{
			{ID: "q2", Target: "b", Title: "B", Date: &domain.Date{Day: 1, Month: 7, Year: 2026}, Lane: domain.LaneStandard, Ready: true, Announced: true},
			{ID: "a1", Target: "a", Title: "A", Lane: domain.LaneEmergency, Ready: true, AnnounceDelivered: true, Announced: true},
			{ID: "m3", Text: "draft", Author: "x", Lane: domain.LaneWorkInProgress, MissedReported: true},
		},
		NextPost:      "q2",
		LastPostDay:   30,
		NoSubAlertDay: 12,
	}
}

func TestJSONFileReadsLegacyLayout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte(legacyDB), 0o600); err != nil {
		t.Fatal(err)
	}

	snap, err := NewJSONFile(path).Load(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(snap.Records))

	ids := []string{snap.Records[0].ID, snap.Records[1].ID, snap.Records[2].ID}
	assert.Equal(t, []string{"zzz", "aaa", "mmm"}, ids)

	first := snap.Records[0]
	assert.Equal(t, "testsub", first.Target)
	assert.Equal(t, domain.Date{Day: 5, Month: 6, Year: 2026}, *first.Date)
	assert.Equal(t, true, first.Ready)
	assert.Equal(t, true, first.Announced)
	assert.Equal(t, true, first.AnnounceDelivered)
	assert.Equal(t, domain.LaneStandard, first.Lane)

	assert.Equal(t, domain.LaneEmergency, snap.Records[1].Lane)
	assert.Equal(t, true, snap.Records[1].Date == nil)
	assert.Equal(t, domain.LaneWorkInProgress, snap.Records[2].Lane)
	assert.Equal(t, true, snap.Records[2].MissedReported)

	assert.Equal(t, "zzz", snap.NextPost)
	assert.Equal(t, 4, snap.LastPostDay)
	assert.Equal(t, 3, snap.NoSubAlertDay)
}

func TestJSONFileMissingIsEmpty(t *testing.T) {
	t.Parallel()

	snap, err := NewJSONFile(filepath.Join(t.TempDir(), "absent.json")).Load(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(snap.Records))
	assert.Equal(t, "", snap.NextPost)
}

func TestJSONFileRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.json")
	if err := os.WriteFile(path, []byte(`[1,2`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewJSONFile(path).Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestJSONFileSaveKeepsOrderAndFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	file := NewJSONFile(path)

	want := sampleSnapshot()
	assert.Equal(t, nil, file.Save(context.Background(), want))

	raw, err := os.ReadFile(path)
	assert.Equal(t, nil, err)
	text := string(raw)
	if !(strings.Index(text, `"q2"`) < strings.Index(text, `"a1"`) && strings.Index(text, `"a1"`) < strings.Index(text, `"m3"`)) {
		t.Fatalf("record order lost: %s", text)
	}
	for _, key := range []string{`"IS_READY":null`, `"EMERGENCY":null`, `"WORK_IN_PROGRESS":null`, `"NEXT_POST": "q2"`} {
		if !strings.Contains(text, key) {
			t.Fatalf("missing %s in %s", key, text)
		}
	}

	got, err := file.Load(context.Background())
	assert.Equal(t, nil, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(dir)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(entries))
}

func TestSQLSnapshotSqlite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := OpenSQL(ctx, "sqlite", filepath.Join(t.TempDir(), "srotd.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	empty, err := store.Load(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(empty.Records))

	want := sampleSnapshot()
	assert.Equal(t, nil, store.Save(ctx, want))

	got, err := store.Load(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, want, got)

	want.Records = want.Records[1:]
	want.NextPost = ""
	assert.Equal(t, nil, store.Save(ctx, want))

	got, err = store.Load(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(got.Records))
	assert.Equal(t, "a1", got.Records[0].ID)
	assert.Equal(t, "", got.NextPost)
}

func TestNewSQLSnapshotRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := NewSQLSnapshot(nil, "mysql"); err == nil {
		t.Fatalf("expected error")
	}
}
