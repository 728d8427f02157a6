// SPDX-License-Identifier: Apache-2.0

package supervisor

import "fmt"

// State is the lifecycle state of the supervised consumer.
type State int32

const (
	StateCreated State = iota
	StateStarting
	StateRunning
	StateFaulted
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFaulted:
		return "faulted"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// canTransition returns true if the supervisor can move from the current
// state into the target one. Once stopping, the only valid transition is to
// stopped.
func (s State) canTransition(to State) bool {
	switch s {
	case StateStopped:
		return false
	case StateStopping:
		return to == StateStopped
	default:
		return s != to
	}
}
