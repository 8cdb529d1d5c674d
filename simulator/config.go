package main

import (
	"fmt"
	"time"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker       string
	TopicPrefix  string
	AckLatency   time.Duration
	DropRate     float64
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop rate must be within [0,1], got %v", c.DropRate)
	}
	if c.AckLatency < 0 {
		return fmt.Errorf("ack latency must be positive")
	}
	return nil
}
