package metrics

import "errors"

// MultiSink fans records out to multiple sinks. Every sink is attempted;
// the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordTick(rec TickRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordTick(rec))
	}
	return errors.Join(errs...)
}

// RecordDeviceState forwards to sinks implementing DeviceStateRecorder.
func (m *MultiSink) RecordDeviceState(ev DeviceStateEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(DeviceStateRecorder); ok {
			errs = append(errs, rec.RecordDeviceState(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordOverride forwards to sinks implementing OverrideRecorder.
func (m *MultiSink) RecordOverride(ev OverrideEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(OverrideRecorder); ok {
			errs = append(errs, rec.RecordOverride(ev))
		}
	}
	return errors.Join(errs...)
}
