package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// AckStrategy decides whether and when a device acknowledges a command.
type AckStrategy interface {
	// Delay returns how long to wait before acking, or false to drop the ack.
	Delay() (time.Duration, bool)
}

// AutoAck acks every command after a fixed delay.
type AutoAck struct {
	After time.Duration
}

func (a AutoAck) Delay() (time.Duration, bool) { return a.After, true }

// RandomAck drops acknowledgments with the configured probability.
type RandomAck struct {
	After    time.Duration
	DropRate float64
}

func (r RandomAck) Delay() (time.Duration, bool) {
	if r.DropRate > 0 && rng.Float64() < r.DropRate {
		return 0, false
	}
	return r.After, true
}

func ackPayload(commandID string) ([]byte, error) {
	return json.Marshal(struct {
		CommandID string `json:"command_id"`
	}{CommandID: commandID})
}

func publishAck(ctx context.Context, cli paho.Client, topic, commandID string, strat AckStrategy) error {
	delay, ok := strat.Delay()
	if !ok {
		return nil
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	payload, err := ackPayload(commandID)
	if err != nil {
		return err
	}
	token := cli.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return context.DeadlineExceeded
	}
	return token.Error()
}
