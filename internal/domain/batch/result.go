package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK      ItemStatus = "ok"
	StatusPartial ItemStatus = "partial"
	StatusError   ItemStatus = "error"
)

// Result is the outcome of processing one item in a batch operation.
type Result[T any] struct {
	id     string
	status ItemStatus
	value  T
	err    error
}

// NewOK creates a successful batch result.
func NewOK[T any](id string, value T) Result[T] {
	return Result[T]{id: id, status: StatusOK, value: value}
}

// NewPartial creates a result whose value is incomplete (query deadline hit).
func NewPartial[T any](id string, value T) Result[T] {
	return Result[T]{id: id, status: StatusPartial, value: value}
}

// NewError creates a failed batch result.
func NewError[T any](id string, err error) Result[T] {
	return Result[T]{id: id, status: StatusError, err: err}
}

// ID returns the item identifier.
func (r Result[T]) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result[T]) Status() ItemStatus { return r.status }

// Value returns the item payload; zero for failed items.
func (r Result[T]) Value() T { return r.value }

// Err returns the error, if any.
func (r Result[T]) Err() error { return r.err }
