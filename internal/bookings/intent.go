package bookings

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sportello-uk/sportello-backend/internal/payments"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
	"github.com/sportello-uk/sportello-backend/pkg/locale"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// IntentInput is the stateless intent request used by pages that price and
// hold their own state.
type IntentInput struct {
	Form      string `json:"form" validate:"required"`
	TierKey   string `json:"tierKey" validate:"required,max=16"`
	Quantity  int    `json:"quantity" validate:"min=0,max=99"`
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Locale    string `json:"locale"`
	BookingID string `json:"bookingId" validate:"required,uuid"`
}

// IntentResult carries only the client secret back to the browser.
type IntentResult struct {
	ClientSecret string `json:"clientSecret"`
}

// CreateIntent prices the tier against the form's own table and opens one
// authorization under the caller's booking id.
func (s *Service) CreateIntent(ctx context.Context, in IntentInput) (IntentResult, error) {
	in.TierKey = strings.TrimSpace(in.TierKey)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return IntentResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment request")
	}
	def, err := s.sagaForm(in.Form)
	if err != nil {
		return IntentResult{}, err
	}
	if !def.Tiers.Has(in.TierKey) {
		return IntentResult{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown tier").
			WithDetails(map[string]any{"tierKey": in.TierKey})
	}
	quote, err := def.Tiers.Quote(in.TierKey, in.Quantity)
	if err != nil {
		return IntentResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown tier")
	}
	loc, ok := locale.Normalize(in.Locale)
	if !ok {
		loc = s.defaultLocale
	}

	intent, err := s.orchestrator.CreateIntent(ctx, payments.IntentRequest{
		BookingID:   in.BookingID,
		AmountMinor: quote.MinorUnits,
		Currency:    quote.Currency,
		Description: def.Service.In(loc),
		Name:        in.Name,
		Email:       in.Email,
		Locale:      loc,
		Form:        def.Slug.String(),
		Tier:        quote.Tier,
		Quantity:    quote.Quantity,
	})
	if err != nil {
		return IntentResult{}, err
	}
	return IntentResult{ClientSecret: intent.ClientSecret}, nil
}
