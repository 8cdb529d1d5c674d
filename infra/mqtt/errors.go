package mqtt

import "errors"

// ErrAckTimeout is returned when a device does not acknowledge a command in time.
var ErrAckTimeout = errors.New("ack timeout")
