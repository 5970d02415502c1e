package pipeline

import "fmt"

// State is a step of a report run
type State string

// Run states
const (
	StateStart       State = "start"
	StateAggregating State = "aggregating"
	StatePrompting   State = "prompting"
	StateInvoking    State = "invoking"
	StateParsing     State = "parsing"
	StateAssembling  State = "assembling"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// IsTerminal reports whether the state ends a run
func IsTerminal(s State) bool {
	return s == StateDone || s == StateFailed
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StateStart:
		return to == StateAggregating || to == StateFailed
	case StateAggregating:
		return to == StatePrompting
	case StatePrompting:
		return to == StateInvoking
	case StateInvoking:
		return to == StateParsing || to == StateFailed
	case StateParsing:
		return to == StateAssembling
	case StateAssembling:
		return to == StateDone
	default:
		return false
	}
}

// machine tracks the state of one run and the path it took
type machine struct {
	current State
	trail   []State
}

func newMachine() *machine {
	return &machine{current: StateStart, trail: []State{StateStart}}
}

func (m *machine) advance(to State) error {
	if !isAllowedTransition(m.current, to) {
		return fmt.Errorf("disallowed transition: %s -> %s", m.current, to)
	}
	m.current = to
	m.trail = append(m.trail, to)
	return nil
}
