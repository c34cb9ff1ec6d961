package payments

import (
	"context"
	"fmt"
)

// Metadata keys stamped on every intent so the booking can be recovered from
// the gateway alone.
const (
	MetaBookingID = "booking_id"
	MetaForm      = "form"
	MetaTier      = "tier"
	MetaQuantity  = "quantity"
	MetaLocale    = "locale"
)

// IntentRequest describes one authorization to create.
type IntentRequest struct {
	BookingID   string
	AmountMinor int64
	Currency    string
	Description string
	Name        string
	Email       string
	Locale      string
	Form        string
	Tier        string
	Quantity    int
}

// Intent is the gateway handle returned to the orchestrator.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountMinor  int64
	Currency     string
	Metadata     map[string]string
}

// Gateway is the payment capability: create, look up and void intents.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
	CancelIntent(ctx context.Context, id, reason string) error
}

// GatewayError is a failure reported by (or while reaching) the gateway.
// Message is the gateway's own wording and is safe to show to the user.
type GatewayError struct {
	Code        string
	DeclineCode string
	Message     string
	Network     bool
	Err         error
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway %s: %s", e.Code, e.Message)
	}
	return "gateway: " + e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// GatewayCode surfaces the decline code when present, else the error code.
func (e *GatewayError) GatewayCode() string {
	if e.DeclineCode != "" {
		return e.DeclineCode
	}
	return e.Code
}
