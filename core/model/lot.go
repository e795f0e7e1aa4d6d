package model

import "fmt"

// LotLocation is the geographic center of the parking lot.
type LotLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Occupancy aggregates current lot utilization. Only parked vehicles count
// as spots in use; searching vehicles hold no spot yet.
type Occupancy struct {
	SpotsInUse int     `json:"spots_in_use"`
	SpotsAvail int     `json:"spots_avail"`
	UsageRate  float64 `json:"usage_rate"`
}

// GateInfo describes the entry gate of the active lot.
type GateInfo struct {
	GateID    string  `json:"gate_id"`
	GateDesc  string  `json:"gate_desc"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SimulationRequest carries the parameters of a start command.
type SimulationRequest struct {
	LotSize   int     `json:"lot_size"`
	GateDesc  string  `json:"gate_desc"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the requested lot is sound.
func (r SimulationRequest) Validate() error {
	if r.LotSize <= 0 {
		return fmt.Errorf("lot size must be positive")
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %v", r.Latitude)
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %v", r.Longitude)
	}
	return nil
}
