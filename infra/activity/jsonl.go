package activity

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/fbellom/parking-rfid-sim/core/activity"
)

// JSONLStore stores activity records in a JSONL file.
type JSONLStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONLStore ensures the file exists. The second return value reports
// whether it already existed.
func NewJSONLStore(path string) (*JSONLStore, bool, error) {
	if _, err := os.Stat(path); err == nil {
		return &JSONLStore{path: path}, true, nil
	} else if !os.IsNotExist(err) {
		return nil, false, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, false, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, false, cerr
	}
	return &JSONLStore{path: path}, false, nil
}

func (s *JSONLStore) Append(ctx context.Context, rec activity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	return enc.Encode(rec)
}

// Query scans the file, skipping malformed lines, and returns records
// matching q.
func (s *JSONLStore) Query(ctx context.Context, q activity.Query) ([]activity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var res []activity.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r activity.Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		if q.Match(r) {
			res = append(res, r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *JSONLStore) Close() error { return nil }
