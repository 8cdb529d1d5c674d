package actuator

import (
	"context"
	"errors"
	"testing"

	"github.com/kilianp07/hems/core/model"
)

func TestRecorderAndFailed(t *testing.T) {
	r := &Recorder{Err: errors.New("offline")}
	devices := []model.Device{{ID: "a", IsOn: true}, {ID: "b"}}
	res := r.Apply(context.Background(), devices)
	devices[0].IsOn = false
	if r.Calls() != 1 || !r.Applied[0][0].IsOn {
		t.Fatalf("recorder should keep a copy of the applied states")
	}
	if Failed(res) != 2 {
		t.Fatalf("expected 2 failures, got %d", Failed(res))
	}
}

func TestLogActuator(t *testing.T) {
	res := LogActuator{}.Apply(context.Background(), []model.Device{{ID: "a", IsOn: true}})
	if len(res) != 1 || res[0].Command.DeviceID != "a" || !res[0].Command.On || Failed(res) != 0 {
		t.Fatalf("unexpected results %+v", res)
	}
}
