package payments

import (
	"context"
	"errors"
	"strconv"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/sportello-uk/sportello-backend/pkg/stripe"
)

type intentAPI interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id, reason string) (*stripe.PaymentIntent, error)
	FindPaymentIntentByMetadata(ctx context.Context, key, value string) (*stripe.PaymentIntent, error)
}

var _ intentAPI = (*pkgstripe.Client)(nil)

// StripeGateway adapts the Stripe PaymentIntents API.
type StripeGateway struct {
	api intentAPI
}

func NewStripeGateway(api intentAPI) (*StripeGateway, error) {
	if api == nil {
		return nil, errors.New("stripe client required")
	}
	return &StripeGateway{api: api}, nil
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.AddMetadata(MetaBookingID, req.BookingID)
	params.AddMetadata(MetaForm, req.Form)
	params.AddMetadata(MetaTier, req.Tier)
	params.AddMetadata(MetaQuantity, strconv.Itoa(req.Quantity))
	params.AddMetadata(MetaLocale, req.Locale)
	// one authorization per booking id, even if the request is replayed
	params.SetIdempotencyKey(req.BookingID)

	pi, err := g.api.CreatePaymentIntent(ctx, params)
	if err != nil {
		return Intent{}, translate(err)
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, id string) (Intent, error) {
	pi, err := g.api.GetPaymentIntent(ctx, id)
	if err != nil {
		return Intent{}, translate(err)
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, id, reason string) error {
	if _, err := g.api.CancelPaymentIntent(ctx, id, reason); err != nil {
		return translate(err)
	}
	return nil
}

// FindIntentByBooking looks an intent up by the booking id stamped in its
// metadata. ok is false when the gateway has no such intent.
func (g *StripeGateway) FindIntentByBooking(ctx context.Context, bookingID string) (Intent, bool, error) {
	pi, err := g.api.FindPaymentIntentByMetadata(ctx, MetaBookingID, bookingID)
	if err != nil {
		return Intent{}, false, translate(err)
	}
	if pi == nil {
		return Intent{}, false, nil
	}
	return fromStripe(pi), true, nil
}

func fromStripe(pi *stripe.PaymentIntent) Intent {
	if pi == nil {
		return Intent{}
	}
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func translate(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := se.Msg
		if msg == "" {
			msg = string(se.Code)
		}
		return &GatewayError{
			Code:        string(se.Code),
			DeclineCode: string(se.DeclineCode),
			Message:     msg,
			Network:     se.HTTPStatusCode == 0 && se.Type == "",
			Err:         err,
		}
	}
	return &GatewayError{Message: "payment provider unreachable", Network: true, Err: err}
}
