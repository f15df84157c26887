package enums

import "fmt"

// OrderStatus tracks the delivery lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// validOrderStatuses is ordered along the forward path; cancelled sits outside it.
var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status change is permitted.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered || o == OrderStatusCancelled
}

func (o OrderStatus) rank() int {
	switch o {
	case OrderStatusPending:
		return 0
	case OrderStatusProcessing:
		return 1
	case OrderStatusShipped:
		return 2
	case OrderStatusDelivered:
		return 3
	}
	return -1
}

// CanTransitionTo reports whether moving from o to next is a forward move.
// Cancellation is allowed from any non-terminal state.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !o.IsValid() || !next.IsValid() || o.IsTerminal() || o == next {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return next.rank() > o.rank()
}

// NextStatuses lists every status reachable from o in one step.
func (o OrderStatus) NextStatuses() []OrderStatus {
	next := make([]OrderStatus, 0, len(validOrderStatuses))
	for _, candidate := range validOrderStatuses {
		if o.CanTransitionTo(candidate) {
			next = append(next, candidate)
		}
	}
	return next
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
