package models

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a referenced dish, order or item is absent
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError reports a malformed argument
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConsistencyError reports a data anomaly found while reconciling an order.
// It should never occur while the ledger invariants hold.
type ConsistencyError struct {
	OrderID int64
	Message string
}

func (e ConsistencyError) Error() string {
	return fmt.Sprintf("order %d: %s", e.OrderID, e.Message)
}

// Error kinds as reported to transports
const (
	KindNotFound    = "not_found"
	KindValidation  = "validation"
	KindConsistency = "consistency"
	KindInternal    = "internal"
)

// ErrorKind classifies err into one of the Kind constants
func ErrorKind(err error) string {
	var nf NotFoundError
	var ve ValidationError
	var ce ConsistencyError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &nf):
		return KindNotFound
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ce):
		return KindConsistency
	default:
		return KindInternal
	}
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
