package domain

// State is a step of an upload or delete.
type State int

const (
	StateValidating State = iota
	StateWritingPrimary
	StateWritingSecondary
	StateCompensating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateWritingPrimary:
		return "writing_primary"
	case StateWritingSecondary:
		return "writing_secondary"
	case StateCompensating:
		return "compensating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Operation names the compound operation a transition belongs to.
type Operation string

const (
	OperationUpload Operation = "upload"
	OperationDelete Operation = "delete"
)

// StateObserver is told about every state change of every operation.
type StateObserver interface {
	Transition(op Operation, from, to State)
}

// ObserverFunc adapts a function to StateObserver.
type ObserverFunc func(op Operation, from, to State)

func (f ObserverFunc) Transition(op Operation, from, to State) {
	f(op, from, to)
}
