package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/infra/logger"
	"github.com/kilianp07/hems/infra/metrics"
)

func main() {
	log := logger.New("simulator")
	cfg := parseFlags()
	if err := cfg.Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	if cfg.InfluxURL != "" {
		sink = metrics.NewInfluxSinkWithFallback(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	}

	cli, err := newMQTTClient(cfg.Broker, "hems-simulator")
	if err != nil {
		log.Errorf("mqtt: %v", err)
		os.Exit(1)
	}
	defer cli.Disconnect(250)

	h := NewHousehold(cfg.TopicPrefix, RandomAck{After: cfg.AckLatency, DropRate: cfg.DropRate}, sink)
	if err := h.Run(ctx, cli); err != nil {
		log.Errorf("simulator: %v", err)
		os.Exit(1)
	}
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.TopicPrefix, "topic-prefix", "hems", "MQTT topic prefix")
	flag.DurationVar(&cfg.AckLatency, "ack-latency", 100*time.Millisecond, "ack latency")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "ack drop rate")
	flag.StringVar(&cfg.InfluxURL, "influx-url", "", "InfluxDB URL")
	flag.StringVar(&cfg.InfluxToken, "influx-token", "", "InfluxDB token")
	flag.StringVar(&cfg.InfluxOrg, "influx-org", "", "InfluxDB organization")
	flag.StringVar(&cfg.InfluxBucket, "influx-bucket", "", "InfluxDB bucket")
	flag.Parse()
	return cfg
}
