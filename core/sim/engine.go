package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/fbellom/parking-rfid-sim/core/activity"
	"github.com/fbellom/parking-rfid-sim/core/logger"
	"github.com/fbellom/parking-rfid-sim/core/model"
	"github.com/fbellom/parking-rfid-sim/core/probability"
	"github.com/fbellom/parking-rfid-sim/internal/eventbus"
)

const rfidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// EngineConfig tunes the tick behavior.
type EngineConfig struct {
	// Seed feeds the single pseudo-random source behind every draw, so a
	// fixed seed makes a full run reproducible.
	Seed int64 `json:"seed"`
	// PauseSeconds is the deliberate suspension between the arrival phase
	// and the exit-evaluation phase of a tick.
	PauseSeconds int `json:"pause_seconds"`
	// MinParkedSeconds is the minimum dwell before a parked vehicle may
	// leave; MinSearchingSeconds the same for a vehicle still searching.
	MinParkedSeconds    int `json:"min_parked_seconds"`
	MinSearchingSeconds int `json:"min_searching_seconds"`
}

// SetDefaults applies the original simulation tuning.
func (c *EngineConfig) SetDefaults() {
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.PauseSeconds == 0 {
		c.PauseSeconds = 5
	}
	if c.MinParkedSeconds == 0 {
		c.MinParkedSeconds = 900
	}
	if c.MinSearchingSeconds == 0 {
		c.MinSearchingSeconds = 120
	}
}

// Validate checks mandatory fields.
func (c EngineConfig) Validate() error {
	if c.PauseSeconds < 0 {
		return fmt.Errorf("pause seconds must not be negative")
	}
	if c.MinParkedSeconds <= 0 || c.MinSearchingSeconds <= 0 {
		return fmt.Errorf("minimum dwell durations must be positive")
	}
	return nil
}

// Engine advances the simulation by one interval per Tick call. It is the
// single mutator of the ledger; the caller must not overlap invocations.
type Engine struct {
	state *State
	table *probability.Table
	bus   *eventbus.Bus[activity.Record]
	log   logger.Logger

	rng          *rand.Rand
	clock        func() time.Time
	pause        time.Duration
	minParked    time.Duration
	minSearching time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the wall clock, used by tests to pin the hour and
// weekday the probability lookup sees.
func WithClock(fn func() time.Time) EngineOption {
	return func(e *Engine) { e.clock = fn }
}

// NewEngine creates a tick engine over the given ledger and probability
// table. Records for every transition are published on bus.
func NewEngine(state *State, table *probability.Table, bus *eventbus.Bus[activity.Record], cfg EngineConfig, log logger.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		state:        state,
		table:        table,
		bus:          bus,
		log:          log,
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		clock:        time.Now,
		pause:        time.Duration(cfg.PauseSeconds) * time.Second,
		minParked:    time.Duration(cfg.MinParkedSeconds) * time.Second,
		minSearching: time.Duration(cfg.MinSearchingSeconds) * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Tick runs one simulated interval: decide an arrival, pause, evaluate one
// exit candidate, then age searching vehicles into spots. Order matters;
// the probability tuning assumes entries are decided before the exit draw
// and the exit draw before the aging pass. A tick on an idle ledger is a
// no-op, as is the tail of a tick whose simulation was stopped mid-pause.
func (e *Engine) Tick(ctx context.Context) {
	if !e.state.Running() {
		e.log.Warnf("initial parking info needed, use start_sim to set the gate")
		return
	}

	now := e.clock()
	quarter := probability.NearestQuarter(now)
	slot := e.table.Lookup(quarter)
	entryProb := probability.AdjustForWeekday(slot.Entry, now.Weekday())
	exitProb := slot.Exit

	capacity := e.state.Capacity()
	parked := e.state.ParkedCount()
	e.log.Infof("tick: quarter=%v entry_prob=%.3f exit_prob=%.3f rush=%v", quarter, entryProb, exitProb, slot.Rush)
	e.log.Infof("occupancy %d/%d (%.1f%%)", parked, capacity, float64(parked)/float64(capacity)*100)

	// Phase 1: arrival.
	if e.rng.Float64() < entryProb && e.state.Len() < capacity {
		e.admitVehicle(now)
	}

	// Deliberate suspension between phases; queries and push loops may
	// observe the half-updated ledger meanwhile.
	if e.pause > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.pause):
		}
	}

	// Phase 2: one exit candidate, drawn uniformly regardless of ledger
	// size. Large lots therefore have a vanishing per-vehicle exit rate;
	// the probability tables are tuned around that.
	if vehicles := e.state.Snapshot(); len(vehicles) > 0 {
		candidate := vehicles[e.rng.Intn(len(vehicles))]

		adjusted := exitProb
		if e.state.Len() == capacity {
			e.log.Infof("parking lot full")
			adjusted *= 1.2
		} else if slot.Rush {
			adjusted *= 0.9
		}
		shouldExit := e.rng.Float64() < adjusted

		dwell := candidate.DwellTime(now)
		eligible := (candidate.Status == model.StatusParked && dwell >= e.minParked) ||
			(candidate.Status == model.StatusSearching && dwell >= e.minSearching)
		if eligible && shouldExit {
			e.releaseVehicle(candidate, now)
		}
	}

	// Aging pass: searching vehicles find spots once the lot has room.
	if e.state.Len() < capacity {
		e.ageSearching(capacity)
	}
}

// admitVehicle synthesizes one arriving vehicle around the lot center and
// inserts it as searching.
func (e *Engine) admitVehicle(now time.Time) {
	center := e.state.Location()
	v := model.Vehicle{
		RFID:            e.randomString(6),
		Size:            model.SizeClasses[e.rng.Intn(len(model.SizeClasses))],
		DriverName:      e.randomString(5),
		EntryTime:       now,
		Latitude:        center.Latitude + e.randomOffset(0.01),
		Longitude:       center.Longitude + e.randomOffset(0.01),
		Status:          model.StatusSearching,
		StatusStartTime: now,
		GateID:          e.state.GateID(),
	}
	if err := e.state.Insert(v); err != nil {
		e.log.Warnf("insert skipped: %v", err)
		return
	}
	e.bus.Publish(activity.NewRecord(activity.EventEntry, now, v))
	e.log.Infof("vehicle entered and searching for spot: %s", v.RFID)
}

// releaseVehicle marks the candidate leaving and removes it. A missing
// vehicle is logged and ignored; the tick carries on.
func (e *Engine) releaseVehicle(candidate model.Vehicle, now time.Time) {
	reason := model.ExitReasonNormal
	if candidate.Status == model.StatusSearching {
		reason = model.ExitReasonLotFull
	}
	v, err := e.state.Release(candidate.RFID, now, reason)
	if err != nil {
		e.log.Errorf("attempted to remove a vehicle not in parking data: %s: %v", candidate.RFID, err)
		return
	}
	e.bus.Publish(activity.NewRecord(activity.EventExit, now, v))
	e.log.Infof("vehicle exiting parking lot: %s reason=%s", v.RFID, v.Reason)
}

// ageSearching parks vehicles that have searched long enough. The search
// threshold scales with occupancy, capped at the two minute base, so an
// empty lot parks arrivals immediately while a full one makes them circle.
func (e *Engine) ageSearching(capacity int) {
	now := e.clock()
	occupancyRate := float64(e.state.ParkedCount()) / float64(capacity)
	base := e.minSearching.Minutes()
	threshold := base * occupancyRate
	if threshold > base {
		threshold = base
	}
	for _, v := range e.state.Snapshot() {
		if v.Status != model.StatusSearching {
			continue
		}
		if v.DwellTime(now).Minutes() < threshold {
			continue
		}
		parked, err := e.state.MarkParked(v.RFID, now)
		if err != nil {
			e.log.Errorf("park transition for %s: %v", v.RFID, err)
			continue
		}
		e.bus.Publish(activity.NewRecord(activity.EventParked, now, parked))
		e.log.Infof("vehicle parked: %s", parked.RFID)
	}
}

func (e *Engine) randomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = rfidAlphabet[e.rng.Intn(len(rfidAlphabet))]
	}
	return string(b)
}

func (e *Engine) randomOffset(radius float64) float64 {
	return (e.rng.Float64()*2 - 1) * radius
}
