package onboarding

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportello-uk/sportello-backend/internal/attachments"
	"github.com/sportello-uk/sportello-backend/internal/forms"
	"github.com/sportello-uk/sportello-backend/internal/payments"
	"github.com/sportello-uk/sportello-backend/pkg/config"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
)

type recordingSubmitter struct {
	mu    sync.Mutex
	forms []string
	sent  []Payload
	err   error
}

func (s *recordingSubmitter) Submit(ctx context.Context, formSlug string, p Payload) (Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = append(s.forms, formSlug)
	s.sent = append(s.sent, p)
	if s.err != nil {
		return Ack{}, s.err
	}
	return Ack{OK: true}, nil
}

type stubReader struct {
	intents map[string]payments.Intent
	byRef   map[string]payments.Intent
	err     error
}

func (r *stubReader) GetIntent(ctx context.Context, id string) (payments.Intent, error) {
	if r.err != nil {
		return payments.Intent{}, r.err
	}
	in, ok := r.intents[id]
	if !ok {
		return payments.Intent{}, errors.New("no such intent")
	}
	return in, nil
}

func (r *stubReader) FindIntentByBooking(ctx context.Context, bookingID string) (payments.Intent, bool, error) {
	if r.err != nil {
		return payments.Intent{}, false, r.err
	}
	in, ok := r.byRef[bookingID]
	return in, ok, nil
}

func newService(t *testing.T, gateway IntentReader, sub Submitter) *Service {
	t.Helper()
	cat, err := forms.NewCatalogue(forms.Options{
		Currency: "gbp",
		Attachments: config.AttachmentsConfig{
			AllowedTypes: []string{"application/pdf", "image/jpeg", "image/png"},
			DefaultMaxMB: 5,
		},
	})
	require.NoError(t, err)
	svc, err := NewService(Options{
		Catalogue:     cat,
		Gateway:       gateway,
		Submitter:     sub,
		MaxQueryBytes: 2048,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func pdfSource() *attachments.Source {
	src := attachments.FromBytes("document", "proof.pdf", "application/pdf", []byte("%PDF-1.4\n%test document\n"))
	return &src
}

func TestSubmitNeedsOnlyTheBookingID(t *testing.T) {
	sub := &recordingSubmitter{}
	svc := newService(t, nil, sub)

	// A return link arriving with no session anywhere still submits.
	ctx, err := svc.Resolve(context.Background(), "ref="+bookingRef+"&form=passport&paid=1&qty=2")
	require.NoError(t, err)
	assert.False(t, ctx.Verified)
	assert.Equal(t, 2, ctx.Quantity)

	ack, err := svc.Submit(context.Background(), SubmitInput{
		Form:      ctx.Form,
		BookingID: ctx.BookingID,
		Deadline:  "2026-11-30",
		Document:  pdfSource(),
	})
	require.NoError(t, err)
	assert.True(t, ack.OK)
	require.Len(t, sub.sent, 1)
	assert.Equal(t, "passport", sub.forms[0])
	assert.Equal(t, bookingRef, sub.sent[0].BookingID)
	assert.Equal(t, "2026-11-30", sub.sent[0].Deadline)
	assert.Equal(t, "application/pdf", sub.sent[0].Document.MimeType)
	assert.NotEmpty(t, sub.sent[0].Document.Data)
}

func TestSubmitValidation(t *testing.T) {
	svc := newService(t, nil, &recordingSubmitter{})
	base := SubmitInput{Form: "aire", BookingID: bookingRef, Deadline: "2026-11-01", Document: pdfSource()}

	cases := map[string]struct {
		mutate func(*SubmitInput)
		code   pkgerrors.Code
	}{
		"contact form":       {mutate: func(in *SubmitInput) { in.Form = "other" }, code: pkgerrors.CodeNotFound},
		"bad booking id":     {mutate: func(in *SubmitInput) { in.BookingID = "abc" }, code: pkgerrors.CodeValidation},
		"missing deadline":   {mutate: func(in *SubmitInput) { in.Deadline = "" }, code: pkgerrors.CodeValidation},
		"malformed deadline": {mutate: func(in *SubmitInput) { in.Deadline = "01/11/2026" }, code: pkgerrors.CodeValidation},
		"past deadline":      {mutate: func(in *SubmitInput) { in.Deadline = "2026-10-14" }, code: pkgerrors.CodeValidation},
		"bad reference":      {mutate: func(in *SubmitInput) { in.PaymentReference = "ch_1" }, code: pkgerrors.CodeValidation},
		"no document":        {mutate: func(in *SubmitInput) { in.Document = nil }, code: pkgerrors.CodeValidation},
		"wrong type": {mutate: func(in *SubmitInput) {
			src := attachments.FromBytes("document", "notes.txt", "text/plain", []byte("plain text"))
			in.Document = &src
		}, code: pkgerrors.CodeUnsupportedMediaType},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := svc.Submit(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.As(err).Code())
		})
	}
}

func TestSubmitDeadlineTodayIsAccepted(t *testing.T) {
	svc := newService(t, nil, &recordingSubmitter{})
	_, err := svc.Submit(context.Background(), SubmitInput{
		Form: "cie", BookingID: bookingRef, Deadline: "2026-10-15", Document: pdfSource(),
	})
	assert.NoError(t, err)
}

func TestSubmitPropagatesEndpointFailure(t *testing.T) {
	sub := &recordingSubmitter{err: pkgerrors.New(pkgerrors.CodeDependency, "onboarding submission failed")}
	svc := newService(t, nil, sub)
	_, err := svc.Submit(context.Background(), SubmitInput{
		Form: "nin", BookingID: bookingRef, Deadline: "2026-12-01", Document: pdfSource(),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestResolveVerifiesThroughGateway(t *testing.T) {
	gw := &stubReader{intents: map[string]payments.Intent{
		"pi_42": {ID: "pi_42", Status: "succeeded", Metadata: map[string]string{
			payments.MetaBookingID: bookingRef,
			payments.MetaForm:      "translation",
			payments.MetaQuantity:  "4",
		}},
	}}
	svc := newService(t, gw, &recordingSubmitter{})

	// The URL claims otherwise; the gateway wins.
	got, err := svc.Resolve(context.Background(), "ref="+bookingRef+"&form=passport&qty=1&payment_intent=pi_42")
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.True(t, got.Paid)
	assert.Equal(t, "translation", got.Form)
	assert.Equal(t, 4, got.Quantity)
	assert.Equal(t, "pi_42", got.PaymentReference)
}

func TestResolveFindsIntentByBooking(t *testing.T) {
	gw := &stubReader{byRef: map[string]payments.Intent{
		bookingRef: {ID: "pi_7", Status: "requires_payment_method", Metadata: map[string]string{payments.MetaBookingID: bookingRef}},
	}}
	svc := newService(t, gw, &recordingSubmitter{})

	got, err := svc.Resolve(context.Background(), "ref="+bookingRef+"&paid=1")
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.False(t, got.Paid, "gateway status overrides the paid flag")
	assert.Equal(t, "pi_7", got.PaymentReference)
}

func TestResolveRejectsMismatchedIntent(t *testing.T) {
	gw := &stubReader{intents: map[string]payments.Intent{
		"pi_42": {ID: "pi_42", Status: "succeeded", Metadata: map[string]string{payments.MetaBookingID: "another"}},
	}}
	svc := newService(t, gw, &recordingSubmitter{})

	_, err := svc.Resolve(context.Background(), "ref="+bookingRef+"&payment_intent=pi_42")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestResolveDegradesWhenGatewayFails(t *testing.T) {
	svc := newService(t, &stubReader{err: errors.New("timeout")}, &recordingSubmitter{})

	got, err := svc.Resolve(context.Background(), "ref="+bookingRef+"&form=aire&paid=1&qty=1&payment_intent=pi_1")
	require.NoError(t, err)
	assert.False(t, got.Verified)
	assert.True(t, got.Paid)
	assert.Equal(t, "aire", got.Form)
}

func TestResolveRejectsBadQuery(t *testing.T) {
	svc := newService(t, nil, &recordingSubmitter{})

	_, err := svc.Resolve(context.Background(), "form=aire")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
