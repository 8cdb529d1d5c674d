// Package infra holds the adapters behind the core interfaces: the MQTT
// actuator, metrics sinks, the remote forecast client, the SQLite energy
// store, the zerolog logger and the Sentry monitor.
package infra
