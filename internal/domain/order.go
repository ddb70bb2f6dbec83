package domain

import (
	"fmt"
	"strings"
)

// Order is a customer order numbered within the unit of work that placed it.
type Order struct {
	// Number is the position of the order within its unit of work, starting at 1.
	Number int64

	// Customer is the name the order was placed for.
	Customer string
}

// String renders the order confirmation line.
func (o Order) String() string {
	return fmt.Sprintf("Order #%d for customer: %s", o.Number, o.Customer)
}

// ValidateCustomerName rejects blank customer names.
func ValidateCustomerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("customerName", "must not be empty")
	}

	return nil
}

// JoinOrders renders a batch of orders as a single "; " separated line.
func JoinOrders(orders []Order) string {
	lines := make([]string, len(orders))
	for i, o := range orders {
		lines[i] = o.String()
	}

	return strings.Join(lines, "; ")
}
