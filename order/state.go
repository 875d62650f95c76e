package order

// State represents the routing lifecycle of a single order.
type State string

const (
	StateValidating  State = "VALIDATING"
	StateScoring     State = "SCORING"
	StateAllocating  State = "ALLOCATING"
	StateDispatching State = "DISPATCHING"
	StateCompleted   State = "COMPLETED"
	StateFailed      State = "FAILED"
)
