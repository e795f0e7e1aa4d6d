package model

import "time"

// VehicleStatus describes where a vehicle is in its parking lifecycle.
// A vehicle only moves forward: searching to parked, then leaving, or
// searching straight to leaving when it gives up without a spot.
type VehicleStatus string

const (
	StatusSearching VehicleStatus = "searching"
	StatusParked    VehicleStatus = "parked"
	StatusLeaving   VehicleStatus = "leaving"
)

// SizeClass categorizes vehicles by footprint.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// SizeClasses lists every valid size, in the order arrivals draw from.
var SizeClasses = []SizeClass{SizeSmall, SizeMedium, SizeLarge}

// ExitReasonNormal and ExitReasonLotFull are the two terminal reasons a
// vehicle leaves with. LotFull means it never found a spot.
const (
	ExitReasonNormal  = "normal_leaving"
	ExitReasonLotFull = "lot_full"
)

// Vehicle is one simulated car occupying a ledger slot. ExitTime and Reason
// stay zero-valued until the vehicle is marked leaving.
type Vehicle struct {
	RFID            string        `json:"rfid"`
	Size            SizeClass     `json:"size"`
	DriverName      string        `json:"driver_name"`
	EntryTime       time.Time     `json:"entry_time"`
	ExitTime        time.Time     `json:"exit_time,omitempty"`
	Latitude        float64       `json:"latitude"`
	Longitude       float64       `json:"longitude"`
	Status          VehicleStatus `json:"status"`
	StatusStartTime time.Time     `json:"status_start_time"`
	Reason          string        `json:"reason,omitempty"`
	GateID          string        `json:"gateid"`
}

// DwellTime returns how long the vehicle has held its current status.
func (v Vehicle) DwellTime(now time.Time) time.Duration {
	return now.Sub(v.StatusStartTime)
}
