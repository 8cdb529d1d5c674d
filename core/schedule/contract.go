package schedule

import (
	"fmt"

	"github.com/kilianp07/hems/core/model"
)

// ContractError is the panic value raised when invalid input reaches the
// core. Callers are expected to run model.TimestepInput.Validate first.
type ContractError struct {
	Op  string
	Err error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("schedule: %s: contract violation: %v", e.Op, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

func mustValid(op string, in model.TimestepInput) {
	if err := in.Validate(); err != nil {
		panic(&ContractError{Op: op, Err: err})
	}
}

func mustPositive(op string, timestepHours float64) {
	if !(timestepHours > 0) {
		panic(&ContractError{Op: op, Err: fmt.Errorf("timestep must be positive, got %v", timestepHours)})
	}
}
