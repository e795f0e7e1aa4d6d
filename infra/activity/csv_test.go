package activity

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbellom/parking-rfid-sim/core/activity"
	"github.com/fbellom/parking-rfid-sim/core/model"
)

func sampleRecord(rfid string, kind activity.EventKind, ts time.Time) activity.Record {
	return activity.Record{
		Time:            ts,
		Event:           kind,
		RFID:            rfid,
		Size:            model.SizeMedium,
		DriverName:      "SMITH",
		EntryTime:       ts,
		Latitude:        18.405,
		Longitude:       -66.003,
		Status:          string(model.StatusSearching),
		StatusStartTime: ts,
		GateID:          "gate-1",
	}
}

func TestCSVStoreEnsureExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.csv")

	_, existed, err := NewCSVStore(path)
	require.NoError(t, err)
	assert.False(t, existed)

	_, existed, err = NewCSVStore(path)
	require.NoError(t, err)
	assert.True(t, existed)

	// Reopening must not duplicate the header.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "Driver Name"))
}

func TestCSVStoreAppendQueryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.csv")
	store, _, err := NewCSVStore(path)
	require.NoError(t, err)

	base := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, sampleRecord("AAA111", activity.EventEntry, base)))
	exit := sampleRecord("AAA111", activity.EventExit, base.Add(20*time.Minute))
	exit.ExitTime = base.Add(20 * time.Minute)
	exit.Status = string(model.StatusLeaving)
	exit.Reason = model.ExitReasonNormal
	require.NoError(t, store.Append(ctx, exit))
	require.NoError(t, store.Append(ctx, sampleRecord("BBB222", activity.EventEntry, base.Add(time.Hour))))

	all, err := store.Query(ctx, activity.Query{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := store.Query(ctx, activity.Query{RFID: "AAA111", Event: activity.EventExit})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ExitReasonNormal, got[0].Reason)
	assert.True(t, got[0].ExitTime.Equal(exit.ExitTime))
	assert.InDelta(t, 18.405, got[0].Latitude, 1e-9)

	ranged, err := store.Query(ctx, activity.Query{End: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}

func TestNewStoreFactory(t *testing.T) {
	dir := t.TempDir()

	cfg := Config{Backend: "csv", Path: filepath.Join(dir, "log.csv")}
	store, existed, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.IsType(t, &CSVStore{}, store)

	cfg = Config{Backend: "jsonl", Path: filepath.Join(dir, "log.jsonl")}
	store, _, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &JSONLStore{}, store)

	_, _, err = New(Config{Backend: "xml", Path: "x"})
	assert.Error(t, err)
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, "csv", cfg.Backend)
	assert.Equal(t, "parking_simulation_log.csv", cfg.Path)
	assert.NoError(t, cfg.Validate())

	assert.Error(t, Config{Backend: "sqlite", Path: "x"}.Validate())
	assert.Error(t, Config{Backend: "csv"}.Validate())
}
