// Package parking exposes the simulation over the /parking HTTP surface.
package parking

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fbellom/parking-rfid-sim/core/activity"
	"github.com/fbellom/parking-rfid-sim/core/logger"
	"github.com/fbellom/parking-rfid-sim/core/model"
	"github.com/fbellom/parking-rfid-sim/core/sim"
)

const moduleName = "parking"

// Handler serves the parking module routes.
type Handler struct {
	state *sim.State
	store activity.Store
	log   logger.Logger

	pushInterval time.Duration
}

// NewHandler creates the parking API handler.
func NewHandler(state *sim.State, store activity.Store, pushInterval time.Duration, log logger.Logger) *Handler {
	return &Handler{state: state, store: store, log: log, pushInterval: pushInterval}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/parking", h.index)
	mux.HandleFunc("/parking/start_sim", h.startSim)
	mux.HandleFunc("/parking/stop_sim", h.stopSim)
	mux.HandleFunc("/parking/available", h.available)
	mux.HandleFunc("/parking/detail", h.detail)
	mux.HandleFunc("/parking/gate", h.gate)
	mux.HandleFunc("/parking/activity_log", h.activityLog)
	mux.HandleFunc("/parking/ws/parking_activity", h.pushActivity)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Hello to module: %s", moduleName),
		"module":  moduleName,
	})
}

func (h *Handler) startSim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req model.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.state.Start(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.log.Infof("simulation started for parking lot at gate: %s", req.GateDesc)
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": fmt.Sprintf("Simulation started for parking lot at gate : %s", req.GateDesc),
	})
}

func (h *Handler) stopSim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	d, err := h.state.Stop()
	if err != nil {
		if errors.Is(err, sim.ErrNotRunning) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.log.Infof("simulation stopped, duration: %.0f secs", d.Seconds())
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": fmt.Sprintf("Simulation Stopped. Duration: %.0f secs", d.Seconds()),
	})
}

func (h *Handler) available(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.state.UtilView())
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.state.DetailView())
}

func (h *Handler) gate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.state.GateView())
}

// activityLog queries the durable activity store with optional start/end
// (RFC3339), rfid and event filters.
func (h *Handler) activityLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := activity.Query{}
	if s := r.URL.Query().Get("start"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.Start = t
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.End = t
		}
	}
	q.RFID = r.URL.Query().Get("rfid")
	q.Event = activity.EventKind(r.URL.Query().Get("event"))
	records, err := h.store.Query(r.Context(), q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []activity.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
