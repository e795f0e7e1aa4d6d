package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbellom/parking-rfid-sim/core/activity"
	"github.com/fbellom/parking-rfid-sim/core/model"
	"github.com/fbellom/parking-rfid-sim/core/probability"
	"github.com/fbellom/parking-rfid-sim/infra/logger"
	"github.com/fbellom/parking-rfid-sim/internal/eventbus"
)

// mondayNoon pins the weekday multiplier to 1.2 and the hour inside the
// rush window.
var mondayNoon = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

// certainTable floors every probability at 1.0, making the arrival draw a
// certainty and leaving exits gated only by dwell eligibility.
func certainTable() *probability.Table {
	cfg := probability.CurveConfig{MinProb: 1.0}
	cfg.SetDefaults()
	return probability.BuildHourlyTable(cfg)
}

func newTestEngine(t *testing.T, capacity int, tbl *probability.Table, clock func() time.Time) (*Engine, *State, *eventbus.Bus[activity.Record]) {
	t.Helper()
	state := NewState(logger.NopLogger{})
	_, err := state.Start(testRequest(capacity))
	require.NoError(t, err)

	bus := eventbus.New[activity.Record]()
	cfg := EngineConfig{Seed: 42, PauseSeconds: 0, MinParkedSeconds: 900, MinSearchingSeconds: 120}
	eng := NewEngine(state, tbl, bus, cfg, logger.NopLogger{}, WithClock(clock))
	return eng, state, bus
}

func TestTickOnIdleStateIsNoOp(t *testing.T) {
	state := NewState(logger.NopLogger{})
	bus := eventbus.New[activity.Record]()
	cfg := EngineConfig{Seed: 1, MinParkedSeconds: 900, MinSearchingSeconds: 120}
	eng := NewEngine(state, certainTable(), bus, cfg, logger.NopLogger{})

	eng.Tick(context.Background())
	assert.Equal(t, 0, state.Len())
}

func TestCertainArrivalInsertsOneVehicle(t *testing.T) {
	eng, state, bus := newTestEngine(t, 2, certainTable(), func() time.Time { return mondayNoon })
	sub := bus.Subscribe()

	eng.Tick(context.Background())

	require.Equal(t, 1, state.Len())
	v := state.Snapshot()[0]
	assert.Len(t, v.RFID, 6)
	assert.Contains(t, model.SizeClasses, v.Size)
	assert.Equal(t, mondayNoon, v.EntryTime)
	assert.InDelta(t, 18.4, v.Latitude, 0.01)
	assert.InDelta(t, -66.0, v.Longitude, 0.01)
	assert.NotEmpty(t, v.GateID)

	// The arrival and its immediate park (empty lot, zero search
	// threshold) are both on the bus.
	rec := <-sub
	assert.Equal(t, activity.EventEntry, rec.Event)
	assert.Equal(t, v.RFID, rec.RFID)
}

func TestEmptyLotParksArrivalSameTick(t *testing.T) {
	// With no parked vehicles the occupancy-scaled search threshold is
	// zero, so a fresh arrival parks during the same tick's aging pass.
	eng, state, _ := newTestEngine(t, 2, certainTable(), func() time.Time { return mondayNoon })

	eng.Tick(context.Background())

	require.Equal(t, 1, state.Len())
	assert.Equal(t, model.StatusParked, state.Snapshot()[0].Status)
}

func TestArrivalStaysSearchingUnderOccupancyPressure(t *testing.T) {
	eng, state, _ := newTestEngine(t, 4, certainTable(), func() time.Time { return mondayNoon })
	require.NoError(t, state.Insert(model.Vehicle{
		RFID: "PARK01", Status: model.StatusParked,
		StatusStartTime: mondayNoon.Add(-time.Minute),
	}))

	eng.Tick(context.Background())

	require.Equal(t, 2, state.Len())
	for _, v := range state.Snapshot() {
		if v.RFID == "PARK01" {
			continue
		}
		// Occupancy rate 0.25 puts the search threshold at 30s; the new
		// arrival has zero dwell and must still be searching.
		assert.Equal(t, model.StatusSearching, v.Status)
	}
}

func TestArrivalRejectedWhenLotFull(t *testing.T) {
	eng, state, _ := newTestEngine(t, 1, certainTable(), func() time.Time { return mondayNoon })
	require.NoError(t, state.Insert(model.Vehicle{
		RFID: "PARK01", Status: model.StatusParked,
		StatusStartTime: mondayNoon.Add(-time.Minute),
	}))

	eng.Tick(context.Background())

	// Full lot: the arrival attempt is rejected, and the lone candidate
	// is not dwell-eligible to exit yet.
	assert.Equal(t, 1, state.Len())
	assert.Equal(t, "PARK01", state.Snapshot()[0].RFID)
}

func TestAgingThresholdScalesWithOccupancy(t *testing.T) {
	// One parked vehicle in a lot of five puts the occupancy rate at 0.2
	// after the certain arrival, so the search threshold is 24 seconds.
	// Nobody is dwell-eligible to exit, which keeps phase two inert.
	eng, state, bus := newTestEngine(t, 5, certainTable(), func() time.Time { return mondayNoon })
	require.NoError(t, state.Insert(model.Vehicle{
		RFID: "PARK01", Status: model.StatusParked,
		StatusStartTime: mondayNoon.Add(-time.Minute),
	}))
	require.NoError(t, state.Insert(model.Vehicle{
		RFID: "OLDCAR", Status: model.StatusSearching,
		StatusStartTime: mondayNoon.Add(-time.Minute),
	}))
	require.NoError(t, state.Insert(model.Vehicle{
		RFID: "NEWCAR", Status: model.StatusSearching,
		StatusStartTime: mondayNoon.Add(-10 * time.Second),
	}))
	sub := bus.Subscribe()

	eng.Tick(context.Background())

	statuses := map[string]model.VehicleStatus{}
	for _, v := range state.Snapshot() {
		statuses[v.RFID] = v.Status
	}
	assert.Equal(t, model.StatusParked, statuses["OLDCAR"])
	assert.Equal(t, model.StatusSearching, statuses["NEWCAR"])

	parked := false
	for len(sub) > 0 {
		if rec := <-sub; rec.Event == activity.EventParked && rec.RFID == "OLDCAR" {
			parked = true
		}
	}
	assert.True(t, parked)
}

func TestExitOfDwellEligibleSearchingVehicle(t *testing.T) {
	// A lone searching vehicle past its two minute dwell is the certain
	// exit candidate; with exit probability 1.0 it leaves as lot_full.
	// Capacity 1 keeps the lot full so no arrival interferes.
	eng, state, bus := newTestEngine(t, 1, certainTable(), func() time.Time { return mondayNoon })
	require.NoError(t, state.Insert(model.Vehicle{
		RFID: "WAITER", Status: model.StatusSearching,
		EntryTime:       mondayNoon.Add(-10 * time.Minute),
		StatusStartTime: mondayNoon.Add(-10 * time.Minute),
	}))
	sub := bus.Subscribe()

	eng.Tick(context.Background())

	assert.Equal(t, 0, state.Len())
	rec := <-sub
	assert.Equal(t, activity.EventExit, rec.Event)
	assert.Equal(t, "WAITER", rec.RFID)
	assert.Equal(t, model.ExitReasonLotFull, rec.Reason)
	assert.Equal(t, string(model.StatusLeaving), rec.Status)
	assert.Equal(t, mondayNoon, rec.ExitTime)
}

func TestExitOfParkedVehicleIsNormalLeaving(t *testing.T) {
	eng, state, bus := newTestEngine(t, 1, certainTable(), func() time.Time { return mondayNoon })
	require.NoError(t, state.Insert(model.Vehicle{
		RFID: "LONGPK", Status: model.StatusParked,
		EntryTime:       mondayNoon.Add(-time.Hour),
		StatusStartTime: mondayNoon.Add(-16 * time.Minute),
	}))
	sub := bus.Subscribe()

	eng.Tick(context.Background())

	assert.Equal(t, 0, state.Len())
	rec := <-sub
	assert.Equal(t, activity.EventExit, rec.Event)
	assert.Equal(t, model.ExitReasonNormal, rec.Reason)
}

func TestParkedUnderMinimumDwellStays(t *testing.T) {
	eng, state, _ := newTestEngine(t, 1, certainTable(), func() time.Time { return mondayNoon })
	require.NoError(t, state.Insert(model.Vehicle{
		RFID: "FRESH1", Status: model.StatusParked,
		StatusStartTime: mondayNoon.Add(-5 * time.Minute),
	}))

	eng.Tick(context.Background())

	// 5 minutes parked is under the 900 second minimum.
	assert.Equal(t, 1, state.Len())
}

func TestFixedSeedIsReproducible(t *testing.T) {
	run := func() []VehicleView {
		eng, state, _ := newTestEngine(t, 5, certainTable(), func() time.Time { return mondayNoon })
		for i := 0; i < 20; i++ {
			eng.Tick(context.Background())
		}
		views := state.DetailView()
		for i := range views {
			views[i].GateID = "" // fresh per run, not part of the draw sequence
		}
		return views
	}
	assert.Equal(t, run(), run())
}

func TestDetailViewIdempotentBetweenTicks(t *testing.T) {
	eng, state, _ := newTestEngine(t, 3, certainTable(), func() time.Time { return mondayNoon })
	eng.Tick(context.Background())

	first := state.DetailView()
	second := state.DetailView()
	assert.Equal(t, first, second)
}
