package enums

import "fmt"

// FulfillmentMode selects how a paid order reaches the customer.
type FulfillmentMode string

const (
	FulfillmentModeDelivery FulfillmentMode = "delivery"
	FulfillmentModePickup   FulfillmentMode = "pickup"
)

var validFulfillmentModes = []FulfillmentMode{
	FulfillmentModeDelivery,
	FulfillmentModePickup,
}

// String implements fmt.Stringer.
func (f FulfillmentMode) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentMode.
func (f FulfillmentMode) IsValid() bool {
	for _, candidate := range validFulfillmentModes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFulfillmentMode converts raw input into a FulfillmentMode.
func ParseFulfillmentMode(value string) (FulfillmentMode, error) {
	for _, candidate := range validFulfillmentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment mode %q", value)
}
