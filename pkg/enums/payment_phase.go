package enums

import "fmt"

// PaymentPhase tracks where a booking sits in the intent/confirmation flow.
type PaymentPhase string

const (
	PaymentPhaseIntake          PaymentPhase = "intake"
	PaymentPhaseIntentRequested PaymentPhase = "intent_requested"
	PaymentPhaseIntentReady     PaymentPhase = "intent_ready"
	PaymentPhaseConfirming      PaymentPhase = "confirming"
	PaymentPhaseDeclined        PaymentPhase = "declined"
	PaymentPhaseRedirected      PaymentPhase = "redirected"
)

var validPaymentPhases = []PaymentPhase{
	PaymentPhaseIntake,
	PaymentPhaseIntentRequested,
	PaymentPhaseIntentReady,
	PaymentPhaseConfirming,
	PaymentPhaseDeclined,
	PaymentPhaseRedirected,
}

// String implements fmt.Stringer.
func (v PaymentPhase) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentPhase.
func (v PaymentPhase) IsValid() bool {
	for _, candidate := range validPaymentPhases {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentPhase converts raw input into a PaymentPhase.
func ParsePaymentPhase(value string) (PaymentPhase, error) {
	for _, candidate := range validPaymentPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment phase %q", value)
}

// Editable reports whether the intake may still be changed in this phase.
func (v PaymentPhase) Editable() bool {
	return v == "" || v == PaymentPhaseIntake
}

// Terminal reports whether control has left the application for the gateway.
func (v PaymentPhase) Terminal() bool {
	return v == PaymentPhaseRedirected
}
