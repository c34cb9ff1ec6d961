package payments

import (
	"github.com/sportello-uk/sportello-backend/internal/pricing"
	"github.com/sportello-uk/sportello-backend/pkg/enums"
)

// AuditResult is what the caller learns about the best-effort audit write.
type AuditResult struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Pending bool   `json:"pending,omitempty"`
}

// Attempt is the payment state of one booking session. A new attempt (and
// Booking ID) is started by every submission.
type Attempt struct {
	Phase        enums.PaymentPhase `json:"phase"`
	BookingID    string             `json:"booking_id,omitempty"`
	IntentID     string             `json:"intent_id,omitempty"`
	ClientSecret string             `json:"client_secret,omitempty"`
	ReturnURL    string             `json:"return_url,omitempty"`
	Quote        *pricing.Quote     `json:"quote,omitempty"`
	Audit        *AuditResult       `json:"audit,omitempty"`
	LastError    string             `json:"last_error,omitempty"`
	Declines     int                `json:"declines,omitempty"`
	// PreviousBookingIDs keeps abandoned or failed attempts for correlation.
	PreviousBookingIDs []string `json:"previous_booking_ids,omitempty"`
}

// CurrentPhase treats the zero value as Intake.
func (a *Attempt) CurrentPhase() enums.PaymentPhase {
	if a.Phase == "" {
		return enums.PaymentPhaseIntake
	}
	return a.Phase
}

// HoldsIntent reports whether a live authorization is attached.
func (a *Attempt) HoldsIntent() bool {
	return a.IntentID != ""
}

func (a *Attempt) toIntake() {
	if a.BookingID != "" {
		a.PreviousBookingIDs = append(a.PreviousBookingIDs, a.BookingID)
	}
	a.Phase = enums.PaymentPhaseIntake
	a.BookingID = ""
	a.IntentID = ""
	a.ClientSecret = ""
	a.ReturnURL = ""
	a.Quote = nil
	a.Audit = nil
	a.Declines = 0
}
