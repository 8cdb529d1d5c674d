// Package metrics defines the sinks that observe committed ticks. Sinks such
// as PromSink, InfluxSink and KafkaSink record tick summaries and per-device
// states and can be combined with NewMultiSink. The factory helpers return a
// MultiSink automatically when multiple sinks are configured.
package metrics
