package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
)

type stubIntentAPI struct {
	params    *stripe.PaymentIntentParams
	createErr error
	cancelled string
	reason    string
}

func (s *stubIntentAPI) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.params = params
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &stripe.PaymentIntent{
		ID:           "pi_123",
		ClientSecret: "pi_123_secret_456",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
		Amount:       *params.Amount,
		Currency:     stripe.Currency(*params.Currency),
		Metadata:     params.Metadata,
	}, nil
}

func (s *stubIntentAPI) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusSucceeded}, nil
}

func (s *stubIntentAPI) CancelPaymentIntent(ctx context.Context, id, reason string) (*stripe.PaymentIntent, error) {
	s.cancelled, s.reason = id, reason
	return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusCanceled}, nil
}

func (s *stubIntentAPI) FindPaymentIntentByMetadata(ctx context.Context, key, value string) (*stripe.PaymentIntent, error) {
	if value == "missing" {
		return nil, nil
	}
	return &stripe.PaymentIntent{ID: "pi_found", Metadata: map[string]string{key: value}}, nil
}

func TestStripeGatewayFindByBooking(t *testing.T) {
	gw, _ := NewStripeGateway(&stubIntentAPI{})
	intent, ok, err := gw.FindIntentByBooking(context.Background(), "b-7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b-7", intent.Metadata[MetaBookingID])

	_, ok, err = gw.FindIntentByBooking(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStripeGatewayCreateIntent(t *testing.T) {
	api := &stubIntentAPI{}
	gw, err := NewStripeGateway(api)
	require.NoError(t, err)

	intent, err := gw.CreateIntent(context.Background(), IntentRequest{
		BookingID:   "b-1",
		AmountMinor: 4000,
		Currency:    "gbp",
		Description: "Passport appointment",
		Email:       "giulia@example.com",
		Locale:      "it",
		Form:        "passport",
		Tier:        "1",
		Quantity:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret_456", intent.ClientSecret)
	assert.Equal(t, int64(4000), intent.AmountMinor)

	require.NotNil(t, api.params)
	assert.Equal(t, "b-1", api.params.Metadata[MetaBookingID])
	assert.Equal(t, "1", api.params.Metadata[MetaQuantity])
	assert.Equal(t, "it", api.params.Metadata[MetaLocale])
	require.NotNil(t, api.params.IdempotencyKey)
	assert.Equal(t, "b-1", *api.params.IdempotencyKey)
	assert.True(t, *api.params.AutomaticPaymentMethods.Enabled)
}

func TestStripeGatewayTranslatesCardErrors(t *testing.T) {
	api := &stubIntentAPI{createErr: &stripe.Error{
		Type:           stripe.ErrorTypeCard,
		Code:           stripe.ErrorCodeCardDeclined,
		DeclineCode:    "insufficient_funds",
		Msg:            "Your card has insufficient funds.",
		HTTPStatusCode: 402,
	}}
	gw, err := NewStripeGateway(api)
	require.NoError(t, err)

	_, err = gw.CreateIntent(context.Background(), IntentRequest{BookingID: "b-1", AmountMinor: 100, Currency: "gbp"})
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "card_declined", gwErr.Code)
	assert.Equal(t, "insufficient_funds", gwErr.GatewayCode())
	assert.Equal(t, "Your card has insufficient funds.", gwErr.Message)
	assert.False(t, gwErr.Network)

	dump := pkgerrors.Dump(err)
	assert.Equal(t, "insufficient_funds", dump.GatewayCode)
}

func TestStripeGatewayNetworkErrors(t *testing.T) {
	api := &stubIntentAPI{createErr: errors.New("dial tcp: connection refused")}
	gw, _ := NewStripeGateway(api)

	_, err := gw.CreateIntent(context.Background(), IntentRequest{BookingID: "b-1"})
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.True(t, gwErr.Network)
}

func TestStripeGatewayCancel(t *testing.T) {
	api := &stubIntentAPI{}
	gw, _ := NewStripeGateway(api)
	require.NoError(t, gw.CancelIntent(context.Background(), "pi_9", "abandoned"))
	assert.Equal(t, "pi_9", api.cancelled)
	assert.Equal(t, "abandoned", api.reason)
}
