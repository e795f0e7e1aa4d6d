package probability

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Slot holds the entry and exit probabilities for one quarter hour of the
// day, plus whether that quarter falls inside the high-activity window.
type Slot struct {
	Entry float64
	Exit  float64
	Rush  bool
}

// Neutral is the fallback slot used when a lookup misses the table, which
// can happen when boundary rounding produces 24.0.
var Neutral = Slot{Entry: 0.5, Exit: 0.5}

// CurveConfig parameterizes the two Gaussian peaks shaping daily activity.
type CurveConfig struct {
	DayStart        float64 `json:"day_start"`
	MidDay          float64 `json:"mid_day"`
	DayEnd          float64 `json:"day_end"`
	EntryPeakMean   float64 `json:"entry_peak_mean"`
	EntryPeakStdDev float64 `json:"entry_peak_std_dev"`
	ExitPeakMean    float64 `json:"exit_peak_mean"`
	ExitPeakStdDev  float64 `json:"exit_peak_std_dev"`
	MinProb         float64 `json:"min_prob"`
}

// SetDefaults applies the tuned curve parameters.
func (c *CurveConfig) SetDefaults() {
	if c.DayStart == 0 {
		c.DayStart = 7.0
	}
	if c.MidDay == 0 {
		c.MidDay = 14.25
	}
	if c.DayEnd == 0 {
		c.DayEnd = 20.0
	}
	if c.EntryPeakMean == 0 {
		c.EntryPeakMean = 10.25
	}
	if c.EntryPeakStdDev == 0 {
		c.EntryPeakStdDev = 1.0
	}
	if c.ExitPeakMean == 0 {
		c.ExitPeakMean = 16.5
	}
	if c.ExitPeakStdDev == 0 {
		c.ExitPeakStdDev = 1.75
	}
	if c.MinProb == 0 {
		c.MinProb = 0.1
	}
}

// Validate checks mandatory curve constraints.
func (c CurveConfig) Validate() error {
	if c.EntryPeakStdDev <= 0 || c.ExitPeakStdDev <= 0 {
		return fmt.Errorf("peak std dev must be positive")
	}
	if !(c.DayStart <= c.MidDay && c.MidDay <= c.DayEnd) {
		return fmt.Errorf("day window must satisfy start <= mid <= end")
	}
	return nil
}

// Table maps each quarter hour of the day (0.0, 0.25, ... 23.75) to its
// entry/exit probabilities. Built once at startup and read-only after.
type Table struct {
	slots map[float64]Slot
}

// BuildHourlyTable precomputes the probability table from the configured
// Gaussian peaks. Before mid-day the exit curve is inflated so entries win
// the normalization; after mid-day the entry curve is inflated instead.
// Probabilities are normalized against each other and floored at MinProb.
func BuildHourlyTable(cfg CurveConfig) *Table {
	entry := distuv.Normal{Mu: cfg.EntryPeakMean, Sigma: cfg.EntryPeakStdDev}
	exit := distuv.Normal{Mu: cfg.ExitPeakMean, Sigma: cfg.ExitPeakStdDev}

	slots := make(map[float64]Slot, 96)
	for i := 0; i < 96; i++ {
		h := float64(i) * 0.25
		entryProb := entry.Prob(h)
		exitProb := exit.Prob(h)

		switch {
		case h >= cfg.DayStart && h < cfg.MidDay:
			exitProb *= 1.2
		case h >= cfg.MidDay && h < cfg.DayEnd:
			entryProb *= 1.2
		}

		if total := entryProb + exitProb; total > 0 {
			entryProb /= total
			exitProb /= total
		}
		entryProb = math.Max(entryProb, cfg.MinProb)
		exitProb = math.Max(exitProb, cfg.MinProb)

		slots[h] = Slot{
			Entry: entryProb,
			Exit:  exitProb,
			Rush:  h >= cfg.DayStart && h < cfg.DayEnd,
		}
	}
	return &Table{slots: slots}
}

// Lookup rounds the hour fraction to the nearest quarter and returns its
// slot, or Neutral when the rounded key is outside the table.
func (t *Table) Lookup(hour float64) Slot {
	q := math.Round(hour*4) / 4
	s, ok := t.slots[q]
	if !ok {
		return Neutral
	}
	return s
}

// NearestQuarter converts a wall-clock time to its hour fraction rounded to
// the nearest quarter hour.
func NearestQuarter(now time.Time) float64 {
	hour := float64(now.Hour()) + float64(now.Minute())/60
	return math.Round(hour*4) / 4
}
