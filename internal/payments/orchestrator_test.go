package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportello-uk/sportello-backend/internal/audit"
	"github.com/sportello-uk/sportello-backend/pkg/enums"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
)

func TestSubmitSingleApplicant(t *testing.T) {
	gw := &fakeGateway{}
	sink := &recordingSink{}
	o := newTestOrchestrator(t, gw, sink, true)

	var a Attempt
	receipt, err := o.Submit(context.Background(), &a, passportSubmission(1))
	require.NoError(t, err)

	require.NotEmpty(t, receipt.BookingID)
	assert.Equal(t, int64(4000), receipt.AmountMinor)
	assert.Equal(t, "gbp", receipt.Currency)
	assert.Equal(t, "pk_test_123", receipt.PublishableKey)
	assert.True(t, receipt.Audit.OK)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, receipt.BookingID, records[0].BookingID)
	assert.Equal(t, "Giulia Rossi", records[0].Name)
	assert.Equal(t, 1, records[0].Data["quantity"])
	assert.Equal(t, "40.00", records[0].Data["amount"])

	require.Len(t, gw.requests, 1)
	assert.Equal(t, receipt.BookingID, gw.requests[0].BookingID)
	assert.Equal(t, 1, gw.requests[0].Quantity)
	assert.Equal(t, int64(4000), gw.requests[0].AmountMinor)

	u, err := url.Parse(receipt.ReturnURL)
	require.NoError(t, err)
	assert.Equal(t, "/en/passport/onboarding", u.Path)
	assert.Equal(t, "1", u.Query().Get(QueryPaid))
	assert.Equal(t, receipt.BookingID, u.Query().Get(QueryRef))
	assert.Equal(t, "1", u.Query().Get(QueryQty))

	assert.Equal(t, enums.PaymentPhaseIntentReady, a.Phase)
	assert.Equal(t, receipt.ClientSecret, a.ClientSecret)
	assert.Equal(t, receipt.BookingID, a.BookingID)
}

func TestAuditServerErrorDoesNotBlockIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	sink, err := audit.NewClient(srv.URL, "token")
	require.NoError(t, err)

	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw, sink, true)

	var a Attempt
	receipt, err := o.Submit(context.Background(), &a, passportSubmission(2))
	require.NoError(t, err)
	assert.False(t, receipt.Audit.OK)
	assert.NotEmpty(t, receipt.Audit.Error)
	assert.NotEmpty(t, receipt.ClientSecret)
	require.Len(t, gw.requests, 1)
	assert.Equal(t, enums.PaymentPhaseIntentReady, a.Phase)
}

func TestSlowAuditSinkDoesNotHoldCheckout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()
	defer close(release)
	sink, err := audit.NewClient(srv.URL, "token")
	require.NoError(t, err)

	gw := &fakeGateway{}
	returns, err := NewReturnURLs("https://sportello.example")
	require.NoError(t, err)
	o, err := NewOrchestrator(gw, sink, returns, Config{
		PublishableKey: "pk_test_123",
		AuditTimeout:   3 * time.Second,
		AuditGrace:     50 * time.Millisecond,
	}, nil, quietLogger())
	require.NoError(t, err)

	var a Attempt
	started := time.Now()
	receipt, err := o.Submit(context.Background(), &a, passportSubmission(1))
	elapsed := time.Since(started)
	require.NoError(t, err)

	assert.Less(t, elapsed, time.Second)
	assert.True(t, receipt.Audit.Pending)
	assert.False(t, receipt.Audit.OK)
	assert.Empty(t, receipt.Audit.Error)
	assert.NotEmpty(t, receipt.ClientSecret)
	require.Len(t, gw.requests, 1)
	assert.Equal(t, enums.PaymentPhaseIntentReady, a.Phase)
}

func TestIntentFailureIsSurfacedVerbatim(t *testing.T) {
	gw := &fakeGateway{createErr: &GatewayError{Code: "card_declined", Message: "Your card was declined."}}
	o := newTestOrchestrator(t, gw, &recordingSink{}, true)

	var a Attempt
	_, err := o.Submit(context.Background(), &a, passportSubmission(1))
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeIntentCreation, typed.Code())
	assert.Equal(t, "Your card was declined.", typed.Message())

	assert.Equal(t, enums.PaymentPhaseIntake, a.CurrentPhase())
	assert.Empty(t, a.ClientSecret)
	assert.Empty(t, a.BookingID)
	assert.Equal(t, "Your card was declined.", a.LastError)
	assert.Len(t, a.PreviousBookingIDs, 1)

	gw.createErr = nil
	receipt, err := o.Submit(context.Background(), &a, passportSubmission(1))
	require.NoError(t, err)
	assert.NotEqual(t, a.PreviousBookingIDs[0], receipt.BookingID, "each attempt gets its own booking id")
	assert.Empty(t, a.LastError)
}

func TestIntentNetworkFailure(t *testing.T) {
	gw := &fakeGateway{createErr: &GatewayError{Message: "unreachable", Network: true, Err: errors.New("dial tcp")}}
	o := newTestOrchestrator(t, gw, nil, true)

	var a Attempt
	_, err := o.Submit(context.Background(), &a, passportSubmission(1))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNetwork, pkgerrors.As(err).Code())
}

func TestBackVoidsIntentAndKeepsNothingReusable(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw, &recordingSink{}, true)

	var a Attempt
	first, err := o.Submit(context.Background(), &a, passportSubmission(1))
	require.NoError(t, err)
	intentID := a.IntentID

	require.NoError(t, o.Back(context.Background(), &a, "passport"))
	assert.Equal(t, enums.PaymentPhaseIntake, a.Phase)
	assert.Empty(t, a.ClientSecret)
	assert.Empty(t, a.IntentID)
	assert.Equal(t, []string{intentID + ":abandoned"}, gw.cancelled)

	second, err := o.Submit(context.Background(), &a, passportSubmission(1))
	require.NoError(t, err)
	assert.NotEqual(t, first.BookingID, second.BookingID)
	assert.NotEqual(t, first.ClientSecret, second.ClientSecret)
}

func TestBackWithoutVoiding(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw, nil, false)

	var a Attempt
	_, err := o.Submit(context.Background(), &a, passportSubmission(1))
	require.NoError(t, err)
	require.NoError(t, o.Back(context.Background(), &a, "passport"))
	assert.Empty(t, gw.cancelled)
	assert.Empty(t, a.ClientSecret)
}

func TestVoidFailureIsNotFatal(t *testing.T) {
	gw := &fakeGateway{cancelErr: errors.New("already canceled")}
	o := newTestOrchestrator(t, gw, nil, true)

	var a Attempt
	_, err := o.Submit(context.Background(), &a, passportSubmission(1))
	require.NoError(t, err)
	assert.NoError(t, o.Back(context.Background(), &a, "passport"))
	assert.Equal(t, enums.PaymentPhaseIntake, a.Phase)
}

func TestResubmitReplacesLiveIntent(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw, nil, true)

	var a Attempt
	_, err := o.Submit(context.Background(), &a, passportSubmission(1))
	require.NoError(t, err)
	old := a.IntentID

	_, err = o.Submit(context.Background(), &a, passportSubmission(1))
	require.NoError(t, err)
	assert.Equal(t, []string{old + ":abandoned"}, gw.cancelled)
	assert.NotEqual(t, old, a.IntentID)
}

func TestConfirmationFlow(t *testing.T) {
	gw := &fakeGateway{}
	o := newTestOrchestrator(t, gw, nil, true)
	ctx := context.Background()

	var a Attempt
	err := o.RecordOutcome(ctx, &a, "passport", Outcome{Kind: enums.ConfirmationOutcomeRedirect})
	require.Error(t, err, "nothing to confirm before submission")

	_, err = o.Submit(ctx, &a, passportSubmission(1))
	require.NoError(t, err)

	_, err = o.BeginConfirmation(&a, ConfirmationCheck{Complete: false, FieldErrors: map[string]string{"number": "Your card number is incomplete."}})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConfirmationInvalid, pkgerrors.As(err).Code())
	assert.Equal(t, "Your card number is incomplete.", pkgerrors.As(err).Message())
	assert.Equal(t, enums.PaymentPhaseIntentReady, a.Phase, "local errors are recoverable in place")

	params, err := o.BeginConfirmation(&a, ConfirmationCheck{Complete: true})
	require.NoError(t, err)
	assert.Equal(t, a.ClientSecret, params.ClientSecret)
	assert.Equal(t, a.ReturnURL, params.ReturnURL)
	assert.Equal(t, enums.PaymentPhaseConfirming, a.Phase)

	err = o.RecordOutcome(ctx, &a, "passport", Outcome{Kind: enums.ConfirmationOutcomeDeclined, Code: "card_declined", Message: "Your card was declined."})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePaymentDeclined, pkgerrors.As(err).Code())
	assert.Equal(t, "Your card was declined.", pkgerrors.As(err).Message())
	assert.Equal(t, enums.PaymentPhaseDeclined, a.Phase)
	assert.Equal(t, 1, a.Declines)
	assert.NotEmpty(t, a.ClientSecret, "a decline keeps the same authorization")

	_, err = o.BeginConfirmation(&a, ConfirmationCheck{Complete: true})
	require.NoError(t, err)
	require.NoError(t, o.RecordOutcome(ctx, &a, "passport", Outcome{Kind: enums.ConfirmationOutcomeRedirect}))
	assert.Equal(t, enums.PaymentPhaseRedirected, a.Phase)

	err = o.Back(ctx, &a, "passport")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestSucceededOutcomeIsVerified(t *testing.T) {
	gw := &fakeGateway{status: "requires_payment_method"}
	o := newTestOrchestrator(t, gw, nil, true)
	ctx := context.Background()

	var a Attempt
	_, err := o.Submit(ctx, &a, passportSubmission(1))
	require.NoError(t, err)
	_, err = o.BeginConfirmation(&a, ConfirmationCheck{Complete: true})
	require.NoError(t, err)

	err = o.RecordOutcome(ctx, &a, "passport", Outcome{Kind: enums.ConfirmationOutcomeSucceeded})
	require.Error(t, err)
	assert.Equal(t, enums.PaymentPhaseDeclined, a.Phase)

	gw.status = "succeeded"
	_, err = o.BeginConfirmation(&a, ConfirmationCheck{Complete: true})
	require.NoError(t, err)
	require.NoError(t, o.RecordOutcome(ctx, &a, "passport", Outcome{Kind: enums.ConfirmationOutcomeSucceeded}))
	assert.Equal(t, enums.PaymentPhaseRedirected, a.Phase)
}
