// Package metrics exposes publish-cycle counters and the last known battery
// readings on an optional Prometheus endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Set holds the process metrics. A nil *Set is valid and records nothing,
// so callers never have to branch on whether the endpoint is enabled.
type Set struct {
	publishCycles prometheus.Counter
	publishSkips  prometheus.Counter

	batteryCharge      prometheus.Gauge
	batteryVoltage     prometheus.Gauge
	batteryCurrent     prometheus.Gauge
	batteryTemperature prometheus.Gauge
}

func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		publishCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "pijuice_publish_cycles_total",
			Help: "Completed publish cycles that produced a status message.",
		}),
		publishSkips: factory.NewCounter(prometheus.CounterOpts{
			Name: "pijuice_publish_skips_total",
			Help: "Publish cycles skipped because a hardware read failed.",
		}),
		batteryCharge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pijuice_battery_charge_percent",
			Help: "Last published battery charge level.",
		}),
		batteryVoltage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pijuice_battery_voltage_volts",
			Help: "Last published battery voltage.",
		}),
		batteryCurrent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pijuice_battery_current_amps",
			Help: "Last published battery current, negative while discharging.",
		}),
		batteryTemperature: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pijuice_battery_temperature_celsius",
			Help: "Last published battery temperature.",
		}),
	}
}

// RecordPublish notes one completed cycle and the values it carried.
func (s *Set) RecordPublish(charge int, voltage, current float64, temperature int) {
	if s == nil {
		return
	}
	s.publishCycles.Inc()
	s.batteryCharge.Set(float64(charge))
	s.batteryVoltage.Set(voltage)
	s.batteryCurrent.Set(current)
	s.batteryTemperature.Set(float64(temperature))
}

// RecordSkip notes a cycle aborted by a hardware read failure.
func (s *Set) RecordSkip() {
	if s == nil {
		return
	}
	s.publishSkips.Inc()
}

// Serve blocks serving /metrics on listen.
func Serve(listen string, gatherer prometheus.Gatherer, logger *logrus.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Infof("Serving metrics on %s", listen)
	return server.ListenAndServe()
}
