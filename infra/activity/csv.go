package activity

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/fbellom/parking-rfid-sim/core/activity"
	"github.com/fbellom/parking-rfid-sim/core/model"
)

// csvHeader is the fixed column set. Every row carries every column so the
// file schema cannot drift between writes.
var csvHeader = []string{
	"Time", "Event", "RFID", "Size", "Driver Name", "Entry Time",
	"Exit Time", "Lat", "Long", "Status", "Last Status Change", "Reason", "Gate",
}

// CSVStore appends activity records to a CSV file. Appends reopen the file
// each time under a mutex, so a torn process never holds it open.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVStore ensures the file exists, writing the header row when it has
// to create it. The second return value reports whether the file already
// existed.
func NewCSVStore(path string) (*CSVStore, bool, error) {
	if _, err := os.Stat(path); err == nil {
		return &CSVStore{path: path}, true, nil
	} else if !os.IsNotExist(err) {
		return nil, false, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, false, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, false, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, false, err
	}
	if err := f.Close(); err != nil {
		return nil, false, err
	}
	return &CSVStore{path: path}, false, nil
}

func (s *CSVStore) Append(ctx context.Context, rec activity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	w := csv.NewWriter(f)
	if err := w.Write(encodeRow(rec)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Query reads the whole file back, skipping the header and any row that
// fails to parse, and returns the records matching q.
func (s *CSVStore) Query(ctx context.Context, q activity.Query) ([]activity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	var res []activity.Record
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rec, err := decodeRow(row)
		if err != nil {
			continue
		}
		if q.Match(rec) {
			res = append(res, rec)
		}
	}
	return res, nil
}

func (s *CSVStore) Close() error { return nil }

func encodeRow(rec activity.Record) []string {
	return []string{
		rec.Time.Format(time.RFC3339),
		string(rec.Event),
		rec.RFID,
		string(rec.Size),
		rec.DriverName,
		formatCSVTime(rec.EntryTime),
		formatCSVTime(rec.ExitTime),
		strconv.FormatFloat(rec.Latitude, 'f', -1, 64),
		strconv.FormatFloat(rec.Longitude, 'f', -1, 64),
		rec.Status,
		formatCSVTime(rec.StatusStartTime),
		rec.Reason,
		rec.GateID,
	}
}

func decodeRow(row []string) (activity.Record, error) {
	if len(row) != len(csvHeader) {
		return activity.Record{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}
	ts, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return activity.Record{}, err
	}
	lat, err := strconv.ParseFloat(row[7], 64)
	if err != nil {
		return activity.Record{}, err
	}
	long, err := strconv.ParseFloat(row[8], 64)
	if err != nil {
		return activity.Record{}, err
	}
	return activity.Record{
		Time:            ts,
		Event:           activity.EventKind(row[1]),
		RFID:            row[2],
		Size:            model.SizeClass(row[3]),
		DriverName:      row[4],
		EntryTime:       parseCSVTime(row[5]),
		ExitTime:        parseCSVTime(row[6]),
		Latitude:        lat,
		Longitude:       long,
		Status:          row[9],
		StatusStartTime: parseCSVTime(row[10]),
		Reason:          row[11],
		GateID:          row[12],
	}, nil
}

func formatCSVTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseCSVTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
