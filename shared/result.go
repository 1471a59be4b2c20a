package shared

// Result is what every façade operation returns. Exactly one of Value
// (State == StateDone) or Err (State == StateFailed) is meaningful.
type Result[T any] struct {
	State    State
	Value    T
	Err      *Error
	Warnings []*Error

	// Strategy is set once Reconciling ran.
	Strategy Strategy
	// Signatures of every submitted batch, in submission order.
	Signatures []string
	// Transitions lists every state entered, in order.
	Transitions []State
}

func (r *Result[T]) OK() bool {
	return r.State == StateDone
}

// HasWarning reports whether a warning of kind was attached.
func (r *Result[T]) HasWarning(kind ErrorKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
