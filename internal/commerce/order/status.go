package order

import "fmt"

// Status is the order lifecycle state. Transitions are enforced centrally by
// the Engine; screens must never derive state changes themselves.
type Status string

const (
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusProcessing      Status = "processing"
	StatusShipped         Status = "shipped"
	StatusAwaitingReceipt Status = "awaiting_receipt"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
	StatusReturnRequested Status = "return_requested"
)

var validStatuses = []Status{
	StatusAwaitingPayment,
	StatusProcessing,
	StatusShipped,
	StatusAwaitingReceipt,
	StatusCompleted,
	StatusCancelled,
	StatusReturnRequested,
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// IsValid reports whether the value is a known status.
func (s Status) IsValid() bool {
	for _, candidate := range validStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the engine defines no further transitions from
// this status. Completed is not terminal: review and return still apply.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusReturnRequested
}

// ParseStatus converts raw input into a Status.
func ParseStatus(value string) (Status, error) {
	for _, candidate := range validStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
