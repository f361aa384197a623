package main

import (
	"context"
	"flag"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"pijuice2mqtt/internal/config"
	"pijuice2mqtt/internal/daemon"
	"pijuice2mqtt/internal/hass"
	"pijuice2mqtt/internal/metrics"
	"pijuice2mqtt/internal/mqtt"
	"pijuice2mqtt/internal/pijuice"
	"pijuice2mqtt/internal/publisher"
	"pijuice2mqtt/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Configuration yaml file")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Infof("Starting %s as %s, publishing every %ds", config.ServiceName, cfg.DeviceID(), cfg.PublishPeriod)

	device, err := pijuice.Open(pijuice.DefaultBus, pijuice.DefaultAddress)
	if err != nil {
		logger.Fatalf("Failed to open PiJuice: %v", err)
	}
	defer device.Close()

	var stats *metrics.Set
	if cfg.Metrics.Listen != "" {
		registry := prometheus.NewRegistry()
		stats = metrics.New(registry)
		go func() {
			if err := metrics.Serve(cfg.Metrics.Listen, registry, logger); err != nil {
				logger.Errorf("Metrics server stopped: %v", err)
			}
		}()
	}

	client := mqtt.New(cfg, logger)
	announcer := hass.NewAnnouncer(cfg, device, logger)
	statusPublisher := publisher.New(cfg, device, client, stats, logger)
	sched := scheduler.New(cfg.PublishInterval(), logger, statusPublisher.PublishCycle)

	d := daemon.New(cfg, client, sched, announcer, logger)
	if err := d.Run(context.Background()); err != nil {
		logger.Fatalf("Failed to connect to MQTT: %v", err)
	}
}
