package models

import "fmt"

// ValidationError reports malformed input rejected before any storage access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced entity that does not exist. Key is set
// instead of ID for string-keyed lookups (SKU, tracking number).
type NotFoundError struct {
	Entity string
	ID     int64
	Key    string
}

func (e *NotFoundError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
	}
	return fmt.Sprintf("%s not found: %d", e.Entity, e.ID)
}

// InsufficientStockError reports a requested quantity exceeding live stock.
// It is an expected, recoverable condition, not a fault; it aborts the
// whole order.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested=%d, available=%d",
		e.ProductName, e.Requested, e.Available)
}

// ConflictError reports a storage-level serialization failure under
// concurrent contention. The caller should resubmit; the coordinator does
// not retry.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict during %s: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }
