package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
)

// Reserved top-level keys of the snapshot file.
const (
	keyNextPost    = "NEXT_POST"
	keyLastPostDay = "LAST_POST_DAY"
	keyNoSubAlert  = "HAS_POSTED_ABOUT_NO_SUB"
)

// Presence flags: the key exists (with a null value) when the flag is set.
const (
	flagEmergency      = "EMERGENCY"
	flagWorkInProgress = "WORK_IN_PROGRESS"
	flagReady          = "IS_READY"
	flagAnnounced      = "ANNOUNCED"
	flagDelivered      = "DEFINITELY_ANNOUNCED"
	flagMissed         = "MISSED_DATE_REPORTED"
)

var present = json.RawMessage("null")

type jsonDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

type jsonRecord struct {
	Sub    string    `json:"sub,omitempty"`
	Title  string    `json:"title,omitempty"`
	Date   *jsonDate `json:"date,omitempty"`
	Text   string    `json:"text"`
	Author string    `json:"author"`

	Emergency      *json.RawMessage `json:"EMERGENCY,omitempty"`
	WorkInProgress *json.RawMessage `json:"WORK_IN_PROGRESS,omitempty"`
	Ready          *json.RawMessage `json:"IS_READY,omitempty"`
	Announced      *json.RawMessage `json:"ANNOUNCED,omitempty"`
	Delivered      *json.RawMessage `json:"DEFINITELY_ANNOUNCED,omitempty"`
	Missed         *json.RawMessage `json:"MISSED_DATE_REPORTED,omitempty"`
}

// JSONFile keeps the snapshot in a single JSON document. Record order in the
// file is the encounter order of the store.
type JSONFile struct {
	path string
}

var _ ports.SnapshotStore = (*JSONFile)(nil)

// NewJSONFile stores snapshots at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Load reads the snapshot. A missing file is an empty snapshot.
func (f *JSONFile) Load(_ context.Context) (domain.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Snapshot{}, nil
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Snapshot{}, nil
	}
	return decodeSnapshot(data)
}

// Save replaces the file atomically.
func (f *JSONFile) Save(_ context.Context, snap domain.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func decodeSnapshot(data []byte) (domain.Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: expected object")
	}

	var snap domain.Snapshot
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("decode snapshot key: %w", err)
		}
		key, _ := tok.(string)

		switch key {
		case keyNextPost:
			var v *string
			if err := dec.Decode(&v); err != nil {
				return domain.Snapshot{}, fmt.Errorf("decode %s: %w", key, err)
			}
			if v != nil {
				snap.NextPost = *v
			}
		case keyLastPostDay:
			if err := dec.Decode(&snap.LastPostDay); err != nil {
				return domain.Snapshot{}, fmt.Errorf("decode %s: %w", key, err)
			}
		case keyNoSubAlert:
			if err := dec.Decode(&snap.NoSubAlertDay); err != nil {
				return domain.Snapshot{}, fmt.Errorf("decode %s: %w", key, err)
			}
		default:
			var raw map[string]json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return domain.Snapshot{}, fmt.Errorf("decode record %s: %w", key, err)
			}
			rec, err := recordFromJSON(key, raw)
			if err != nil {
				return domain.Snapshot{}, err
			}
			snap.Records = append(snap.Records, rec)
		}
	}

	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot end: %w", err)
	}
	return snap, nil
}

func recordFromJSON(id string, raw map[string]json.RawMessage) (domain.Record, error) {
	rec := domain.Record{ID: id, Lane: domain.LaneStandard}

	text := func(key string, dst *string) error {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("decode %s.%s: %w", id, key, err)
		}
		return nil
	}
	for key, dst := range map[string]*string{"sub": &rec.Target, "title": &rec.Title, "text": &rec.Text, "author": &rec.Author} {
		if err := text(key, dst); err != nil {
			return domain.Record{}, err
		}
	}

	if v, ok := raw["date"]; ok && string(v) != "null" {
		var d jsonDate
		if err := json.Unmarshal(v, &d); err != nil {
			return domain.Record{}, fmt.Errorf("decode %s.date: %w", id, err)
		}
		rec.Date = &domain.Date{Day: d.Day, Month: d.Month, Year: d.Year}
	}

	has := func(key string) bool {
		_, ok := raw[key]
		return ok
	}
	switch {
	case has(flagWorkInProgress):
		rec.Lane = domain.LaneWorkInProgress
	case has(flagEmergency):
		rec.Lane = domain.LaneEmergency
	}
	rec.Ready = has(flagReady)
	rec.Announced = has(flagAnnounced)
	rec.AnnounceDelivered = has(flagDelivered)
	rec.MissedReported = has(flagMissed)

	return rec, nil
}

func recordToJSON(rec domain.Record) jsonRecord {
	out := jsonRecord{
		Sub:    rec.Target,
		Title:  rec.Title,
		Text:   rec.Text,
		Author: rec.Author,
	}
	if rec.Date != nil {
		out.Date = &jsonDate{Day: rec.Date.Day, Month: rec.Date.Month, Year: rec.Date.Year}
	}

	flag := func(set bool) *json.RawMessage {
		if set {
			return &present
		}
		return nil
	}
	out.Emergency = flag(rec.Emergency())
	out.WorkInProgress = flag(rec.WorkInProgress())
	out.Ready = flag(rec.Ready)
	out.Announced = flag(rec.Announced)
	out.Delivered = flag(rec.AnnounceDelivered)
	out.Missed = flag(rec.MissedReported)
	return out
}

func encodeSnapshot(snap domain.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	member := func(key string, value any) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if !first {
			buf.WriteString(", ")
		}
		first = false
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
		return nil
	}

	for _, rec := range snap.Records {
		if err := member(rec.ID, recordToJSON(rec)); err != nil {
			return nil, err
		}
	}
	if snap.NextPost != "" {
		if err := member(keyNextPost, snap.NextPost); err != nil {
			return nil, err
		}
	}
	if snap.LastPostDay != 0 {
		if err := member(keyLastPostDay, snap.LastPostDay); err != nil {
			return nil, err
		}
	}
	if snap.NoSubAlertDay != 0 {
		if err := member(keyNoSubAlert, snap.NoSubAlertDay); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
