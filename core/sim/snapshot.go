package sim

import (
	"time"

	"github.com/fbellom/parking-rfid-sim/core/model"
)

// VehicleView is the client-facing shape of a vehicle, with timestamps
// rendered as RFC3339 text so they round-trip through JSON unchanged.
type VehicleView struct {
	RFID            string  `json:"rfid"`
	Size            string  `json:"size"`
	DriverName      string  `json:"driver_name"`
	EntryTime       string  `json:"entry_time"`
	ExitTime        string  `json:"exit_time,omitempty"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Status          string  `json:"status"`
	StatusStartTime string  `json:"status_start_time"`
	Reason          string  `json:"reason,omitempty"`
	GateID          string  `json:"gateid"`
}

// DetailView renders every vehicle currently in the lot. The result is
// stable between ticks: two calls with no intervening mutation are equal.
func (s *State) DetailView() []VehicleView {
	vehicles := s.Snapshot()
	views := make([]VehicleView, 0, len(vehicles))
	for _, v := range vehicles {
		views = append(views, VehicleView{
			RFID:            v.RFID,
			Size:            string(v.Size),
			DriverName:      v.DriverName,
			EntryTime:       formatTime(v.EntryTime),
			ExitTime:        formatTime(v.ExitTime),
			Latitude:        v.Latitude,
			Longitude:       v.Longitude,
			Status:          string(v.Status),
			StatusStartTime: formatTime(v.StatusStartTime),
			Reason:          v.Reason,
			GateID:          v.GateID,
		})
	}
	return views
}

// UtilView renders aggregate utilization, zeroed when nothing is running.
func (s *State) UtilView() model.Occupancy {
	occ, err := s.Occupancy()
	if err != nil {
		return model.Occupancy{}
	}
	return occ
}

// GateView renders the gate descriptor, zeroed when nothing is running.
func (s *State) GateView() model.GateInfo {
	gate, err := s.GateInfo()
	if err != nil {
		return model.GateInfo{}
	}
	return gate
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
