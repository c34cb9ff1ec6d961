// Package onboarding serves the page reached through the payment return URL.
// It is correlated to the booking only by the Booking ID in the URL and never
// depends on the pre-payment audit write having succeeded.
package onboarding

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sportello-uk/sportello-backend/internal/attachments"
	"github.com/sportello-uk/sportello-backend/internal/forms"
	"github.com/sportello-uk/sportello-backend/internal/payments"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
	"github.com/sportello-uk/sportello-backend/pkg/metrics"
)

const deadlineLayout = "2006-01-02"

// IntentReader is the part of the gateway used for verification.
type IntentReader interface {
	GetIntent(ctx context.Context, id string) (payments.Intent, error)
}

type bookingFinder interface {
	FindIntentByBooking(ctx context.Context, bookingID string) (payments.Intent, bool, error)
}

// Context is what the onboarding page learns about its booking.
type Context struct {
	BookingID        string `json:"booking_id"`
	Form             string `json:"form,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
	Quantity         int    `json:"quantity"`
	Paid             bool   `json:"paid"`
	PaymentStatus    string `json:"payment_status,omitempty"`
	// Verified is true when form, quantity and payment state come from the
	// gateway rather than the URL.
	Verified bool `json:"verified"`
}

// SubmitInput is one onboarding form post.
type SubmitInput struct {
	Form             string
	BookingID        string
	PaymentReference string
	Deadline         string
	Document         *attachments.Source
}

type Options struct {
	Catalogue     *forms.Catalogue
	Gateway       IntentReader
	Submitter     Submitter
	MaxQueryBytes int
	Metrics       *metrics.SagaMetrics
	Logger        *logger.Logger
}

type Service struct {
	catalogue     *forms.Catalogue
	gateway       IntentReader
	submitter     Submitter
	maxQueryBytes int
	metrics       *metrics.SagaMetrics
	logger        *logger.Logger
	now           func() time.Time
}

func NewService(opts Options) (*Service, error) {
	if opts.Catalogue == nil {
		return nil, errors.New("form catalogue required")
	}
	if opts.Submitter == nil {
		return nil, errors.New("onboarding submitter required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{
		catalogue:     opts.Catalogue,
		gateway:       opts.Gateway,
		submitter:     opts.Submitter,
		maxQueryBytes: opts.MaxQueryBytes,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		now:           time.Now,
	}, nil
}

// Resolve parses the return URL query and, when the gateway is reachable,
// replaces the advisory values with what the gateway recorded.
func (s *Service) Resolve(ctx context.Context, rawQuery string) (Context, error) {
	q, err := ParseReturnQuery(rawQuery, s.maxQueryBytes)
	if err != nil {
		if errors.Is(err, ErrQueryTooLarge) {
			return Context{}, pkgerrors.Wrap(pkgerrors.CodePayloadTooLarge, err, "return link is too long")
		}
		return Context{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking reference")
	}
	ctx = s.logger.WithBookingID(ctx, q.BookingID)

	out := Context{
		BookingID:        q.BookingID,
		Quantity:         q.Quantity,
		Paid:             q.Paid,
		PaymentReference: q.PaymentReference,
	}
	if def, err := s.catalogue.Get(q.Form); err == nil && def.Saga() {
		out.Form = def.Slug.String()
	}

	intent, found, err := s.lookup(ctx, q)
	switch {
	case err != nil:
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "onboarding.verify_failed")
		return out, nil
	case !found:
		return out, nil
	}

	if intent.Metadata[payments.MetaBookingID] != q.BookingID {
		return Context{}, pkgerrors.New(pkgerrors.CodeStateConflict, "payment reference does not match this booking")
	}
	out.Verified = true
	out.PaymentReference = intent.ID
	out.PaymentStatus = intent.Status
	out.Paid = paidStatus(intent.Status)
	if n, err := strconv.Atoi(intent.Metadata[payments.MetaQuantity]); err == nil && n > 0 {
		out.Quantity = n
	}
	if form := intent.Metadata[payments.MetaForm]; form != "" {
		out.Form = form
	}
	return out, nil
}

// Submit forwards the deliverable under the booking id. It needs nothing but
// the id: no session, no prior audit record.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Ack, error) {
	def, err := s.catalogue.Get(in.Form)
	if err != nil || !def.Saga() {
		return Ack{}, pkgerrors.New(pkgerrors.CodeNotFound, "unknown form")
	}
	id, err := uuid.Parse(strings.TrimSpace(in.BookingID))
	if err != nil {
		return Ack{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid booking reference").
			WithDetails(map[string]any{"field": "booking_id"})
	}
	bookingID := id.String()
	ctx = s.logger.WithForm(s.logger.WithBookingID(ctx, bookingID), def.Slug.String())

	deadline, err := s.checkDeadline(in.Deadline)
	if err != nil {
		return Ack{}, err
	}
	ref := strings.TrimSpace(in.PaymentReference)
	if ref != "" && !strings.HasPrefix(ref, "pi_") {
		return Ack{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment reference").
			WithDetails(map[string]any{"field": "payment_reference"})
	}
	if in.Document == nil {
		return Ack{}, pkgerrors.New(pkgerrors.CodeValidation, "document is required").
			WithDetails(map[string]any{"field": "document"})
	}

	att, err := def.Encoder.Encode(ctx, *in.Document)
	if err != nil {
		return Ack{}, attachments.PublicError(err)
	}

	ack, err := s.submitter.Submit(ctx, def.Slug.String(), Payload{
		BookingID:        bookingID,
		PaymentReference: ref,
		Deadline:         deadline,
		Document:         &Document{Filename: att.Filename, MimeType: att.MimeType, Data: att.Data},
	})
	s.metrics.OnboardingSubmitted(def.Slug.String(), err == nil)
	if err != nil {
		s.logger.Error(ctx, "onboarding.submit_failed", err)
		return ack, err
	}
	s.logger.Info(ctx, "onboarding.submitted")
	return ack, nil
}

func (s *Service) lookup(ctx context.Context, q ReturnQuery) (payments.Intent, bool, error) {
	if s.gateway == nil {
		return payments.Intent{}, false, nil
	}
	if q.PaymentReference != "" {
		intent, err := s.gateway.GetIntent(ctx, q.PaymentReference)
		if err != nil {
			return payments.Intent{}, false, err
		}
		return intent, true, nil
	}
	if finder, ok := s.gateway.(bookingFinder); ok {
		return finder.FindIntentByBooking(ctx, q.BookingID)
	}
	return payments.Intent{}, false, nil
}

func (s *Service) checkDeadline(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	fail := func(msg string) error {
		return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": "deadline"})
	}
	if raw == "" {
		return "", fail("deadline is required")
	}
	d, err := time.Parse(deadlineLayout, raw)
	if err != nil {
		return "", fail("deadline must be a date (YYYY-MM-DD)")
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if d.Before(today) {
		return "", fail("deadline cannot be in the past")
	}
	return d.Format(deadlineLayout), nil
}

func paidStatus(status string) bool {
	switch status {
	case "succeeded", "processing", "requires_capture":
		return true
	}
	return false
}
