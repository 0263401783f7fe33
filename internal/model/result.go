package model

// ResultStatus classifies the outcome of a best-effort fetch.
type ResultStatus string

const (
	// StatusOK means at least one item was produced.
	StatusOK ResultStatus = "ok"
	// StatusEmpty means the fetch worked but yielded no items.
	StatusEmpty ResultStatus = "empty"
	// StatusFailed means the fetch failed; Err holds the cause.
	StatusFailed ResultStatus = "failed"
)

// Result carries scraped items together with an explicit outcome, so
// callers handle "no data" without inspecting errors.
type Result[T any] struct {
	Items  []T
	Status ResultStatus
	Err    error
}

// Collected builds an ok or empty result from items.
func Collected[T any](items []T) Result[T] {
	if len(items) == 0 {
		return Result[T]{Status: StatusEmpty}
	}
	return Result[T]{Items: items, Status: StatusOK}
}

// Failed builds a failed result. Items is always empty.
func Failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusFailed, Err: err}
}

// OK reports whether the result carries items.
func (r Result[T]) OK() bool { return r.Status == StatusOK }
