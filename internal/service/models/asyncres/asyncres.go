package asyncres

// Resource is the state of one outstanding or completed asynchronous operation.
// Values are replaced as a whole on every transition, never merged.
type Resource[T any] struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Value   *T     `json:"value,omitempty"`
	Success bool   `json:"success"`
}

// Empty returns a resource for an operation that was never issued.
func Empty[T any]() Resource[T] {
	return Resource[T]{}
}

// Pending returns a resource for an issued, unresolved operation.
func Pending[T any]() Resource[T] {
	return Resource[T]{Loading: true}
}

// Succeeded returns a resolved resource carrying v.
func Succeeded[T any](v T) Resource[T] {
	return Resource[T]{Value: &v, Success: true}
}

// Failed returns a resource that resolved with err.
func Failed[T any](err error) Resource[T] {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	return Resource[T]{Error: msg}
}

// IsEmpty reports whether the operation was never issued (or was reset).
func (r Resource[T]) IsEmpty() bool {
	return !r.Loading && !r.Success && r.Error == "" && r.Value == nil
}

// HasFailed reports whether the operation resolved with an error.
func (r Resource[T]) HasFailed() bool {
	return r.Error != ""
}
