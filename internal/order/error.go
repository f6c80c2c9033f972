package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrInvalidStatus  = errors.New("invalid order status")
	ErrMultipleOrders = errors.New("rows belong to more than one order")

	// ErrBeginTx marks a creation that failed before a transaction existed.
	ErrBeginTx = errors.New("begin transaction")
)

// ValidationError lists every missing or invalid header field of a request.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// ItemError aborts an order creation because of one line item. Index is the
// item's position in the request.
type ItemError struct {
	Index  int
	Fields []string
	Reason string
	Err    error
}

func (e *ItemError) Error() string {
	switch {
	case len(e.Fields) > 0:
		return fmt.Sprintf("item %d: missing or invalid fields: %s", e.Index, strings.Join(e.Fields, ", "))
	case e.Reason != "":
		return fmt.Sprintf("item %d: %s", e.Index, e.Reason)
	default:
		return fmt.Sprintf("item %d: %v", e.Index, e.Err)
	}
}

func (e *ItemError) Unwrap() error { return e.Err }

// ImageDecodeError is returned when a product image column is not a JSON
// array of strings.
type ImageDecodeError struct {
	OrderID int64
	ItemID  int64
	Err     error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("order %d item %d: decode product image: %v", e.OrderID, e.ItemID, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }
