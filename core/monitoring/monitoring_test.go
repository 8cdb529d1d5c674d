package monitoring

import (
	"errors"
	"testing"
	"time"
)

type captureMonitor struct{ errs []error }

func (c *captureMonitor) CaptureException(err error, _ map[string]string) { c.errs = append(c.errs, err) }
func (c *captureMonitor) Flush(time.Duration)                            {}

func TestCapturePanic(t *testing.T) {
	m := &captureMonitor{}
	Init(m)
	t.Cleanup(func() { Init(NopMonitor{}) })

	if CapturePanic(nil, nil) != nil {
		t.Fatalf("nil panic value should not be reported")
	}
	boom := errors.New("boom")
	err := CapturePanic(boom, map[string]string{"component": "tick"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	_ = CapturePanic("text", nil)
	CaptureException(nil, nil)
	if len(m.errs) != 2 {
		t.Fatalf("expected 2 captured errors, got %d", len(m.errs))
	}
}
