// Package actuator pushes the device states decided by a tick to the
// hardware layer.
package actuator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/model"
)

// ErrNotConnected is returned when the transport is down.
var ErrNotConnected = errors.New("actuator not connected")

// Command switches one device.
type Command struct {
	CommandID string    `json:"command_id"`
	DeviceID  string    `json:"device_id"`
	On        bool      `json:"on"`
	Timestamp time.Time `json:"timestamp"`
}

// Result reports the outcome of one command.
type Result struct {
	Command Command
	Err     error
}

// Actuator applies device states. Implementations decide whether unchanged
// states are re-sent.
type Actuator interface {
	Apply(ctx context.Context, devices []model.Device) []Result
}

// StatePublisher is implemented by actuators that also broadcast the full
// household snapshot after each tick.
type StatePublisher interface {
	PublishState(ctx context.Context, st model.State, warnings []string) error
}

// Failed counts the results carrying an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// NopActuator ignores every command.
type NopActuator struct{}

func (NopActuator) Apply(context.Context, []model.Device) []Result { return nil }

// LogActuator logs the commands it would send. It is used when no hardware
// transport is configured.
type LogActuator struct {
	Logger logger.Logger
}

func (a LogActuator) Apply(_ context.Context, devices []model.Device) []Result {
	out := make([]Result, 0, len(devices))
	now := time.Now()
	for _, d := range devices {
		cmd := Command{DeviceID: d.ID, On: d.IsOn, Timestamp: now}
		if a.Logger != nil {
			a.Logger.Debugw("device command", map[string]any{"device_id": d.ID, "on": d.IsOn})
		}
		out = append(out, Result{Command: cmd})
	}
	return out
}

// Recorder keeps every applied device list in memory.
type Recorder struct {
	mu      sync.Mutex
	Applied [][]model.Device
	Err     error
}

func (r *Recorder) Apply(_ context.Context, devices []model.Device) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Applied = append(r.Applied, model.CloneDevices(devices))
	out := make([]Result, len(devices))
	for i, d := range devices {
		out[i] = Result{Command: Command{DeviceID: d.ID, On: d.IsOn}, Err: r.Err}
	}
	return out
}

// Calls returns how many times Apply ran.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Applied)
}
