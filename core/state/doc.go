// Package state holds the single source of truth for the household: battery
// level, device inventory with on/off states and the override flag.
package state
