package activity

import (
	"context"
	"time"

	"github.com/fbellom/parking-rfid-sim/core/model"
)

// EventKind labels what happened to a vehicle in a record.
type EventKind string

const (
	EventEntry  EventKind = "entry"
	EventParked EventKind = "parked"
	EventExit   EventKind = "exit"
)

// Record captures one vehicle transition for the activity log. Every field
// is fixed so the sink schema cannot drift between writes.
type Record struct {
	Time            time.Time       `json:"time"`
	Event           EventKind       `json:"event"`
	RFID            string          `json:"rfid"`
	Size            model.SizeClass `json:"size"`
	DriverName      string          `json:"driver_name"`
	EntryTime       time.Time       `json:"entry_time"`
	ExitTime        time.Time       `json:"exit_time,omitempty"`
	Latitude        float64         `json:"latitude"`
	Longitude       float64         `json:"longitude"`
	Status          string          `json:"status"`
	StatusStartTime time.Time       `json:"status_start_time"`
	Reason          string          `json:"reason,omitempty"`
	GateID          string          `json:"gateid"`
}

// NewRecord builds a Record from the vehicle's state at event time.
func NewRecord(kind EventKind, ts time.Time, v model.Vehicle) Record {
	return Record{
		Time:            ts,
		Event:           kind,
		RFID:            v.RFID,
		Size:            v.Size,
		DriverName:      v.DriverName,
		EntryTime:       v.EntryTime,
		ExitTime:        v.ExitTime,
		Latitude:        v.Latitude,
		Longitude:       v.Longitude,
		Status:          string(v.Status),
		StatusStartTime: v.StatusStartTime,
		Reason:          v.Reason,
		GateID:          v.GateID,
	}
}

// Query defines filters for retrieving records from a store.
type Query struct {
	Start time.Time
	End   time.Time
	RFID  string
	Event EventKind
}

// Sink durably appends activity records. Append failures must be treated
// as non-fatal by callers; a lost data point never aborts a tick.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	Close() error
}

// Store is a Sink whose records can be read back with filters.
type Store interface {
	Sink
	Query(ctx context.Context, q Query) ([]Record, error)
}

// Match reports whether the record passes the query filters.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Time.After(q.End) {
		return false
	}
	if q.RFID != "" && r.RFID != q.RFID {
		return false
	}
	if q.Event != "" && r.Event != q.Event {
		return false
	}
	return true
}
