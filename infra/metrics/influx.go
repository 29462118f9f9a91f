package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/battsched/battsched/core/metrics"
	"github.com/battsched/battsched/infra/logger"
)

// InfluxSink writes scheduling events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordOptimization writes the optimizer run as a point.
func (s *InfluxSink) RecordOptimization(ev coremetrics.OptimizationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("optimizer_run").
		AddTag("component", "optimizer").
		AddTag("intervals", strconv.Itoa(ev.Intervals)).
		AddField("total_cost", round3(ev.TotalCost)).
		AddField("baseline_cost", round3(ev.BaselineCost)).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPlannerRun writes the planner outcome as a point.
func (s *InfluxSink) RecordPlannerRun(ev coremetrics.PlannerEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("planner_run").
		AddTag("component", "planner").
		AddTag("strategy", ev.Strategy).
		AddTag("converged", strconv.FormatBool(ev.Converged)).
		AddField("iterations", ev.Iterations).
		AddField("injected_kwh", round3(ev.InjectedKWh)).
		AddField("protection_kwh", round3(ev.ProtectionKWh)).
		AddField("violations", ev.Violations).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPlanEvent writes a plan lifecycle transition as a point.
func (s *InfluxSink) RecordPlanEvent(ev coremetrics.PlanLifecycleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("charging_plan_event").
		AddTag("component", "plan_manager").
		AddTag("plan_id", ev.PlanID).
		AddTag("requester", ev.Requester).
		AddTag("action", ev.Action).
		AddField("energy_kwh", round3(ev.EnergyKWh)).
		AddField("cost", round3(ev.Cost)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTimeline writes the published timeline summary as a point.
func (s *InfluxSink) RecordTimeline(snap coremetrics.TimelineSnapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("timeline_refresh").
		AddTag("component", "scheduler").
		AddField("intervals", snap.Intervals).
		AddField("degraded", snap.Degraded).
		AddField("total_cost", round3(snap.TotalCost)).
		AddField("final_soc_kwh", round3(snap.FinalSoCKWh)).
		AddField("min_soc_kwh", round3(snap.MinSoCKWh)).
		SetTime(snap.RefreshedAt)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
