package activity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/fbellom/parking-rfid-sim/core/activity"
	"github.com/fbellom/parking-rfid-sim/core/logger"
)

// InfluxConfig defines the optional InfluxDB mirror of the activity log.
type InfluxConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// Validate checks mandatory fields when the sink is enabled.
func (c InfluxConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" || c.Org == "" || c.Bucket == "" {
		return fmt.Errorf("influx url, org and bucket are required")
	}
	return nil
}

// InfluxSink writes activity records to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given endpoint.
func NewInfluxSink(cfg InfluxConfig, log logger.Logger) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      log,
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and degrades to a
// NopSink when the health check fails, so a missing database never takes
// the simulation down.
func NewInfluxSinkWithFallback(cfg InfluxConfig, log logger.Logger) activity.Sink {
	sink := NewInfluxSink(cfg, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			log.Errorf("influx health check error: %v", err)
		} else {
			log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return activity.NopSink{}
	}
	return sink
}

// Append writes one record as a point tagged by vehicle, event and gate.
func (s *InfluxSink) Append(ctx context.Context, rec activity.Record) error {
	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("parking_activity").
		AddTag("rfid", rec.RFID).
		AddTag("event", string(rec.Event)).
		AddTag("gateid", rec.GateID).
		AddField("size", string(rec.Size)).
		AddField("driver_name", rec.DriverName).
		AddField("latitude", rec.Latitude).
		AddField("longitude", rec.Longitude).
		AddField("status", rec.Status).
		AddField("reason", rec.Reason).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(wctx, p)
}

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
