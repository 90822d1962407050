package orders

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed input. It is never retryable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateOrder checks the fields a producer must never publish without.
func ValidateOrder(o Order) error {
	if o.OrderID == "" {
		return invalid("orderId", "missing orderId")
	}
	if strings.TrimSpace(o.UserName) == "" {
		return invalid("userName", "missing userName")
	}
	if !o.FoodType.Valid() {
		return invalid("foodType", "%q must be one of %v", o.FoodType, foodTypes)
	}
	if o.Quantity < MinQuantity || o.Quantity > MaxQuantity {
		return invalid("quantity", "must be between %d and %d, got %d", MinQuantity, MaxQuantity, o.Quantity)
	}
	return nil
}

func ValidateStatusUpdate(u OrderStatusUpdate) error {
	if u.OrderID == "" {
		return invalid("orderId", "missing orderId")
	}
	if !u.Status.Valid() {
		return invalid("status", "unknown status %q", u.Status)
	}
	if u.KitchenID == "" {
		return invalid("kitchenId", "missing kitchenId")
	}
	return nil
}

func ValidateReaction(userID, reaction string) error {
	if userID == "" {
		return invalid("userId", "missing userId")
	}
	if !ValidReaction(reaction) {
		return invalid("reaction", "%q is not an allowed reaction", reaction)
	}
	return nil
}
