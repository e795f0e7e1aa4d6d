package sim

import (
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fbellom/parking-rfid-sim/core/logger"
	"github.com/fbellom/parking-rfid-sim/core/model"
)

var (
	// ErrNotRunning is returned when an operation needs an active
	// simulation and none has been started.
	ErrNotRunning = errors.New("no simulation running")
	// ErrVehicleNotFound is returned when a removal targets a vehicle no
	// longer in the ledger. Callers log it and keep going; the same
	// vehicle can legitimately be targeted twice within one tick.
	ErrVehicleNotFound = errors.New("vehicle not in parking data")
)

// Lot is the active lot configuration, set by Start and cleared by Stop.
type Lot struct {
	Location  model.LotLocation
	Capacity  int
	GateID    string
	GateDesc  string
	StartedAt time.Time
}

// State is the occupancy ledger: the lot configuration plus every vehicle
// currently inside it. One State models exactly one lot per process. The
// tick engine is the only writer besides Start and Stop; HTTP readers take
// consistent snapshots. Locking is per-operation, so a reader between the
// two tick phases observes the partially updated ledger, which is accepted.
type State struct {
	mu       sync.Mutex
	lot      *Lot
	vehicles []model.Vehicle

	clock func() time.Time
	log   logger.Logger
}

// StateOption configures a State.
type StateOption func(*State)

// WithStateClock overrides the wall clock, used by tests.
func WithStateClock(fn func() time.Time) StateOption {
	return func(s *State) { s.clock = fn }
}

// NewState creates an empty ledger with no active simulation.
func NewState(log logger.Logger, opts ...StateOption) *State {
	s := &State{clock: time.Now, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start activates a simulation for the requested lot and returns the fresh
// gate identifier. A running simulation is silently reinitialized, matching
// the original service behavior; prior vehicles are discarded with only a
// warning to show for it.
func (s *State) Start(req model.SimulationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot != nil {
		s.log.Warnf("simulation already running at gate %s, reinitializing", s.lot.GateID)
	}
	id := uuid.New()
	s.lot = &Lot{
		Location:  model.LotLocation{Latitude: req.Latitude, Longitude: req.Longitude},
		Capacity:  req.LotSize,
		GateID:    hex.EncodeToString(id[:]),
		GateDesc:  req.GateDesc,
		StartedAt: s.clock(),
	}
	s.vehicles = nil
	return s.lot.GateID, nil
}

// Stop clears all lot state and returns how long the simulation ran.
func (s *State) Stop() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil {
		return 0, ErrNotRunning
	}
	d := s.clock().Sub(s.lot.StartedAt)
	s.lot = nil
	s.vehicles = nil
	return d, nil
}

// Running reports whether a simulation is active.
func (s *State) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lot != nil
}

// Capacity returns the lot size, or zero when idle.
func (s *State) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil {
		return 0
	}
	return s.lot.Capacity
}

// Location returns the lot center, or a zero location when idle.
func (s *State) Location() model.LotLocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil {
		return model.LotLocation{}
	}
	return s.lot.Location
}

// GateID returns the active gate identifier, or empty when idle.
func (s *State) GateID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil {
		return ""
	}
	return s.lot.GateID
}

// Len returns the number of vehicles inside the lot, searching included.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vehicles)
}

// Insert appends a newly arrived vehicle to the ledger. Every mutation
// checks that the simulation is still active so a stop racing a suspended
// tick degrades to a no-op.
func (s *State) Insert(v model.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil {
		return ErrNotRunning
	}
	s.vehicles = append(s.vehicles, v)
	return nil
}

// MarkParked transitions a searching vehicle to parked and resets its
// status start time. The updated vehicle is returned by value.
func (s *State) MarkParked(rfid string, now time.Time) (model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil {
		return model.Vehicle{}, ErrNotRunning
	}
	for i := range s.vehicles {
		if s.vehicles[i].RFID == rfid && s.vehicles[i].Status == model.StatusSearching {
			s.vehicles[i].Status = model.StatusParked
			s.vehicles[i].StatusStartTime = now
			return s.vehicles[i], nil
		}
	}
	return model.Vehicle{}, ErrVehicleNotFound
}

// Release marks the vehicle as leaving with the given reason and removes
// it from the ledger in one step. The final vehicle state is returned so
// the caller can log it; departed vehicles live only in the activity log.
func (s *State) Release(rfid string, now time.Time, reason string) (model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil {
		return model.Vehicle{}, ErrNotRunning
	}
	for i := range s.vehicles {
		if s.vehicles[i].RFID != rfid {
			continue
		}
		v := s.vehicles[i]
		v.ExitTime = now
		v.Reason = reason
		v.Status = model.StatusLeaving
		s.vehicles = append(s.vehicles[:i], s.vehicles[i+1:]...)
		return v, nil
	}
	return model.Vehicle{}, ErrVehicleNotFound
}

// ParkedCount returns how many vehicles currently hold a spot.
func (s *State) ParkedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parkedLocked()
}

func (s *State) parkedLocked() int {
	n := 0
	for i := range s.vehicles {
		if s.vehicles[i].Status == model.StatusParked {
			n++
		}
	}
	return n
}

// Occupancy aggregates spot usage. When no simulation is running a zeroed
// result is returned alongside ErrNotRunning, which also guards the
// division by a zero capacity.
func (s *State) Occupancy() (model.Occupancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil || s.lot.Capacity == 0 {
		return model.Occupancy{}, ErrNotRunning
	}
	inUse := s.parkedLocked()
	return model.Occupancy{
		SpotsInUse: inUse,
		SpotsAvail: s.lot.Capacity - inUse,
		UsageRate:  float64(inUse) / float64(s.lot.Capacity) * 100,
	}, nil
}

// Snapshot copies the vehicle list in insertion order. The copy keeps push
// loops and queries consistent while the tick engine mutates the ledger.
func (s *State) Snapshot() []model.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Vehicle, len(s.vehicles))
	copy(out, s.vehicles)
	return out
}

// GateInfo describes the active gate.
func (s *State) GateInfo() (model.GateInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil {
		return model.GateInfo{}, ErrNotRunning
	}
	return model.GateInfo{
		GateID:    s.lot.GateID,
		GateDesc:  s.lot.GateDesc,
		Latitude:  s.lot.Location.Latitude,
		Longitude: s.lot.Location.Longitude,
	}, nil
}
