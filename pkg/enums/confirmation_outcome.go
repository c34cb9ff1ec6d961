package enums

import "fmt"

// ConfirmationOutcome is the result the browser reports after confirming with the gateway.
type ConfirmationOutcome string

const (
	ConfirmationOutcomeRedirect  ConfirmationOutcome = "redirect"
	ConfirmationOutcomeSucceeded ConfirmationOutcome = "succeeded"
	ConfirmationOutcomeDeclined  ConfirmationOutcome = "declined"
)

var validConfirmationOutcomes = []ConfirmationOutcome{
	ConfirmationOutcomeRedirect,
	ConfirmationOutcomeSucceeded,
	ConfirmationOutcomeDeclined,
}

// String implements fmt.Stringer.
func (v ConfirmationOutcome) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ConfirmationOutcome.
func (v ConfirmationOutcome) IsValid() bool {
	for _, candidate := range validConfirmationOutcomes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseConfirmationOutcome converts raw input into a ConfirmationOutcome.
func ParseConfirmationOutcome(value string) (ConfirmationOutcome, error) {
	for _, candidate := range validConfirmationOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid confirmation outcome %q", value)
}
