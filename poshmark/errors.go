package poshmark

import (
	"errors"
	"fmt"
)

// StatusUnknown is the DataError status code used when a request
// failed before any HTTP status was received.
const StatusUnknown = 101

// ErrInvalidArgument marks caller mistakes such as a blank item id or
// an out-of-range limit. Wrapped errors carry the detail.
var ErrInvalidArgument = errors.New("invalid argument")

// ItemNotFoundError means the marketplace reported no listing for the
// requested id.
type ItemNotFoundError struct {
	ItemID string
}

func (e ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ItemID)
}

// OrderNotFoundError means an order could not be retrieved or
// assembled. The underlying cause is preserved.
type OrderNotFoundError struct {
	OrderID string
	Err     error
}

func (e OrderNotFoundError) Error() string {
	return fmt.Sprintf("order %s not found: %v", e.OrderID, e.Err)
}

func (e OrderNotFoundError) Unwrap() error { return e.Err }

// DataError is a transport or payload failure: a non-2xx status, an
// unparseable body, or an error object embedded in an otherwise
// successful response.
type DataError struct {
	StatusCode int
	Message    string
}

func (e DataError) Error() string {
	return fmt.Sprintf("data error (status %d): %s", e.StatusCode, e.Message)
}
