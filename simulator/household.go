package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/infra/logger"
)

type command struct {
	CommandID string    `json:"command_id"`
	DeviceID  string    `json:"device_id"`
	On        bool      `json:"on"`
	Timestamp time.Time `json:"timestamp"`
}

// Household simulates every device behind the controller: it applies the
// commands it receives and acknowledges them.
type Household struct {
	Prefix   string
	Strategy AckStrategy
	Metrics  coremetrics.MetricsSink

	mu     sync.Mutex
	states map[string]bool
	log    logger.Logger
}

func NewHousehold(prefix string, strat AckStrategy, sink coremetrics.MetricsSink) *Household {
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Household{
		Prefix:   strings.TrimSuffix(prefix, "/"),
		Strategy: strat,
		Metrics:  sink,
		states:   make(map[string]bool),
		log:      logger.New("simulator"),
	}
}

func (h *Household) commandTopic() string { return h.Prefix + "/device/+/command" }

func (h *Household) ackTopic(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/ack", h.Prefix, deviceID)
}

// apply decodes a command and records the new device state.
func (h *Household) apply(payload []byte) (command, error) {
	var cmd command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, err
	}
	if cmd.DeviceID == "" || cmd.CommandID == "" {
		return cmd, fmt.Errorf("command without device or command id")
	}
	h.mu.Lock()
	h.states[cmd.DeviceID] = cmd.On
	h.mu.Unlock()
	if rec, ok := h.Metrics.(coremetrics.DeviceStateRecorder); ok {
		ev := coremetrics.DeviceStateEvent{Device: model.Device{ID: cmd.DeviceID, IsOn: cmd.On}, Time: time.Now()}
		if err := rec.RecordDeviceState(ev); err != nil {
			h.log.Warnf("record device %s: %v", cmd.DeviceID, err)
		}
	}
	return cmd, nil
}

// States returns a copy of the current device states.
func (h *Household) States() map[string]bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]bool, len(h.states))
	for id, on := range h.states {
		out[id] = on
	}
	return out
}

// Run subscribes to the command topics and acks until ctx is done.
func (h *Household) Run(ctx context.Context, cli paho.Client) error {
	handler := func(c paho.Client, msg paho.Message) {
		cmd, err := h.apply(msg.Payload())
		if err != nil {
			h.log.Errorf("decode command on %s: %v", msg.Topic(), err)
			return
		}
		h.log.Infof("device %s switched on=%t", cmd.DeviceID, cmd.On)
		go func() {
			if err := publishAck(ctx, c, h.ackTopic(cmd.DeviceID), cmd.CommandID, h.Strategy); err != nil && ctx.Err() == nil {
				h.log.Errorf("ack %s: %v", cmd.CommandID, err)
			}
		}()
	}
	if token := cli.Subscribe(h.commandTopic(), 1, handler); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	<-ctx.Done()
	cli.Unsubscribe(h.commandTopic()).WaitTimeout(time.Second)
	return nil
}
