// Package app assembles the simulation service from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fbellom/parking-rfid-sim/api/parking"
	"github.com/fbellom/parking-rfid-sim/config"
	coreactivity "github.com/fbellom/parking-rfid-sim/core/activity"
	"github.com/fbellom/parking-rfid-sim/core/probability"
	"github.com/fbellom/parking-rfid-sim/core/sim"
	infraactivity "github.com/fbellom/parking-rfid-sim/infra/activity"
	"github.com/fbellom/parking-rfid-sim/infra/logger"
	"github.com/fbellom/parking-rfid-sim/infra/metrics"
	"github.com/fbellom/parking-rfid-sim/internal/eventbus"
)

// Service orchestrates the tick engine, the activity sinks and the HTTP
// surface.
type Service struct {
	cfg    *config.Config
	log    logger.Logger
	state  *sim.State
	engine *sim.Engine
	bus    *eventbus.Bus[coreactivity.Record]
	store  coreactivity.Store
	sink   coreactivity.Sink
	prom   *metrics.PromSink
	server *http.Server
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	store, existed, err := infraactivity.New(cfg.Activity)
	if err != nil {
		return nil, fmt.Errorf("activity store: %w", err)
	}
	if existed {
		logg.Infof("appending to existing file %s", cfg.Activity.Path)
	} else {
		logg.Infof("created new file %s", cfg.Activity.Path)
	}

	sinks := []coreactivity.Sink{store}
	if cfg.Influx.Enabled {
		sinks = append(sinks, infraactivity.NewInfluxSinkWithFallback(cfg.Influx, logger.New("influx-sink")))
	}
	if cfg.MQTT.Enabled {
		pub, err := infraactivity.NewMQTTPublisher(cfg.MQTT, logger.New("mqtt-publisher"))
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		sinks = append(sinks, pub)
	}
	sink := coreactivity.NewMultiSink(sinks...)

	var prom *metrics.PromSink
	if cfg.Metrics.PrometheusEnabled {
		prom, err = metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
	}

	state := sim.NewState(logger.New("ledger"))
	table := probability.BuildHourlyTable(cfg.Curves)
	bus := eventbus.New[coreactivity.Record]()
	engine := sim.NewEngine(state, table, bus, cfg.Simulation, logger.New("tick-engine"))

	mux := http.NewServeMux()
	handler := parking.NewHandler(state, store, time.Duration(cfg.Server.PushSeconds)*time.Second, logger.New("api"))
	handler.Register(mux)

	return &Service{
		cfg:    cfg,
		log:    logg,
		state:  state,
		engine: engine,
		bus:    bus,
		store:  store,
		sink:   sink,
		prom:   prom,
		server: &http.Server{Addr: cfg.Server.Addr, Handler: mux},
	}, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.writeActivity(ctx)

	if s.prom != nil {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http server shutdown: %v", err)
		}
	}()

	go s.tickLoop(ctx)

	s.log.Infof("listening on %s", s.cfg.Server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// tickLoop invokes the engine on the configured cadence. Each tick runs to
// completion before the next fires, so ticks never overlap even when the
// mid-tick pause outlasts the interval.
func (s *Service) tickLoop(ctx context.Context) {
	interval := time.Duration(s.cfg.Server.TickSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			s.engine.Tick(ctx)
			if s.prom != nil {
				s.prom.ObserveTick(time.Since(start).Seconds())
				occ, err := s.state.Occupancy()
				if err == nil {
					s.prom.SetOccupancy(occ)
				}
			}
		}
	}
}

// writeActivity drains the bus into the durable sinks. Sink failures are
// logged and the record dropped; the tick engine never waits on I/O.
func (s *Service) writeActivity(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-sub:
			if !ok {
				return
			}
			if err := s.sink.Append(ctx, rec); err != nil {
				s.log.Errorf("activity append: %v", err)
			}
			if s.prom != nil {
				s.prom.RecordEvent(string(rec.Event))
			}
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	return s.sink.Close()
}
