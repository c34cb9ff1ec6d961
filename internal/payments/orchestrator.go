// Package payments runs the two-phase payment flow of a booking: intent
// creation against the gateway, then client-side confirmation that ends in
// a gateway-controlled redirect.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sportello-uk/sportello-backend/internal/audit"
	"github.com/sportello-uk/sportello-backend/internal/pricing"
	"github.com/sportello-uk/sportello-backend/internal/wizard"
	"github.com/sportello-uk/sportello-backend/pkg/enums"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
	"github.com/sportello-uk/sportello-backend/pkg/metrics"
)

const (
	cancelReasonAbandoned = "abandoned"
	defaultAuditTimeout   = 10 * time.Second
	defaultAuditGrace     = 500 * time.Millisecond
	defaultDeclineMessage = "Your payment was declined."
)

type Config struct {
	PublishableKey string
	VoidAbandoned  bool
	AuditTimeout   time.Duration
	// AuditGrace is how long Submit waits for the audit write once the
	// intent is back. Past it the write carries on alone and is reported
	// as pending.
	AuditGrace time.Duration
}

// Submission is a frozen intake ready for payment.
type Submission struct {
	Form    string
	Service string
	Locale  string
	Intake  wizard.Intake
	Quote   pricing.Quote
	Files   []audit.File
	Data    map[string]any
}

// Receipt is returned to the browser after a successful intent phase.
type Receipt struct {
	BookingID      string          `json:"booking_id"`
	ClientSecret   string          `json:"client_secret"`
	PublishableKey string          `json:"publishable_key"`
	ReturnURL      string          `json:"return_url"`
	Amount         decimal.Decimal `json:"amount"`
	AmountMinor    int64           `json:"amount_minor"`
	Currency       string          `json:"currency"`
	Quantity       int             `json:"quantity"`
	Audit          AuditResult     `json:"audit"`
}

// ConfirmationCheck is the embedded payment element's local validation
// state as reported by the browser.
type ConfirmationCheck struct {
	Complete    bool
	FieldErrors map[string]string
}

// ConfirmParams is what the browser passes to the gateway SDK's confirm call.
type ConfirmParams struct {
	ClientSecret   string `json:"client_secret"`
	ReturnURL      string `json:"return_url"`
	PublishableKey string `json:"publishable_key"`
}

// Outcome is the browser's report of the gateway confirm call.
type Outcome struct {
	Kind    enums.ConfirmationOutcome
	Code    string
	Message string
}

type Orchestrator struct {
	gateway Gateway
	sink    audit.Writer
	returns *ReturnURLs
	cfg     Config
	metrics *metrics.SagaMetrics
	logger  *logger.Logger
	newID   func() string
}

func NewOrchestrator(gateway Gateway, sink audit.Writer, returns *ReturnURLs, cfg Config, m *metrics.SagaMetrics, logg *logger.Logger) (*Orchestrator, error) {
	if gateway == nil {
		return nil, errors.New("payment gateway required")
	}
	if returns == nil {
		return nil, errors.New("return url builder required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if cfg.AuditTimeout <= 0 {
		cfg.AuditTimeout = defaultAuditTimeout
	}
	if cfg.AuditGrace <= 0 {
		cfg.AuditGrace = defaultAuditGrace
	}
	return &Orchestrator{
		gateway: gateway,
		sink:    sink,
		returns: returns,
		cfg:     cfg,
		metrics: m,
		logger:  logg,
		newID:   uuid.NewString,
	}, nil
}

// Submit starts a new attempt: a fresh Booking ID, the audit write (started
// first, never awaited as a gate) and the authoritative intent creation.
// A live intent from a previous attempt is voided and replaced.
func (o *Orchestrator) Submit(ctx context.Context, a *Attempt, sub Submission) (Receipt, error) {
	switch a.CurrentPhase() {
	case enums.PaymentPhaseIntake:
	case enums.PaymentPhaseIntentReady, enums.PaymentPhaseDeclined:
		o.void(ctx, a, sub.Form)
	default:
		return Receipt{}, phaseError(a.CurrentPhase(), "submit")
	}
	a.toIntake()

	bookingID := o.newID()
	a.Phase = enums.PaymentPhaseIntentRequested
	a.BookingID = bookingID
	a.LastError = ""
	ctx = o.logger.WithBookingID(ctx, bookingID)

	pending := o.startAudit(ctx, bookingID, sub)

	started := time.Now()
	intent, err := o.gateway.CreateIntent(ctx, IntentRequest{
		BookingID:   bookingID,
		AmountMinor: sub.Quote.MinorUnits,
		Currency:    sub.Quote.Currency,
		Description: sub.Service,
		Name:        sub.Intake.Contact.Name,
		Email:       sub.Intake.Contact.Email,
		Locale:      sub.Locale,
		Form:        sub.Form,
		Tier:        sub.Quote.Tier,
		Quantity:    sub.Quote.Quantity,
	})
	o.metrics.IntentCreated(sub.Form, err == nil, time.Since(started))

	auditResult := o.collectAudit(ctx, pending)

	if err != nil {
		a.LastError = gatewayMessage(err)
		a.toIntake()
		o.logger.Error(ctx, "payment.intent_failed", err)
		return Receipt{}, intentError(err, bookingID, auditResult)
	}

	quote := sub.Quote
	a.Phase = enums.PaymentPhaseIntentReady
	a.IntentID = intent.ID
	a.ClientSecret = intent.ClientSecret
	a.ReturnURL = o.returns.Build(sub.Locale, sub.Form, bookingID, sub.Quote.Quantity)
	a.Quote = &quote
	a.Audit = &auditResult
	o.logger.Info(o.logger.WithField(ctx, "payment_intent_id", intent.ID), "payment.intent_created")

	return Receipt{
		BookingID:      bookingID,
		ClientSecret:   intent.ClientSecret,
		PublishableKey: o.cfg.PublishableKey,
		ReturnURL:      a.ReturnURL,
		Amount:         sub.Quote.Amount,
		AmountMinor:    sub.Quote.MinorUnits,
		Currency:       sub.Quote.Currency,
		Quantity:       sub.Quote.Quantity,
		Audit:          auditResult,
	}, nil
}

// Back returns the attempt to intake. The held client secret is dropped and
// the intent voided so a re-submission always gets a new authorization.
func (o *Orchestrator) Back(ctx context.Context, a *Attempt, form string) error {
	switch a.CurrentPhase() {
	case enums.PaymentPhaseRedirected:
		return phaseError(a.CurrentPhase(), "back")
	case enums.PaymentPhaseIntake:
		return nil
	}
	o.void(ctx, a, form)
	a.toIntake()
	a.LastError = ""
	return nil
}

// BeginConfirmation checks the embedded fields locally and hands back what
// the browser needs to confirm. Local field errors leave the phase alone.
func (o *Orchestrator) BeginConfirmation(a *Attempt, check ConfirmationCheck) (ConfirmParams, error) {
	switch a.CurrentPhase() {
	case enums.PaymentPhaseIntentReady, enums.PaymentPhaseDeclined, enums.PaymentPhaseConfirming:
	default:
		return ConfirmParams{}, phaseError(a.CurrentPhase(), "confirm")
	}
	if !check.Complete || len(check.FieldErrors) > 0 {
		msg := "Please complete your payment details."
		for _, m := range check.FieldErrors {
			if strings.TrimSpace(m) != "" {
				msg = m
				break
			}
		}
		return ConfirmParams{}, pkgerrors.New(pkgerrors.CodeConfirmationInvalid, msg).
			WithDetails(map[string]any{"field_errors": check.FieldErrors})
	}
	a.Phase = enums.PaymentPhaseConfirming
	a.LastError = ""
	return ConfirmParams{
		ClientSecret:   a.ClientSecret,
		ReturnURL:      a.ReturnURL,
		PublishableKey: o.cfg.PublishableKey,
	}, nil
}

// RecordOutcome applies the confirm result. A decline moves to Declined and
// is surfaced verbatim; the same intent may be confirmed again.
func (o *Orchestrator) RecordOutcome(ctx context.Context, a *Attempt, form string, out Outcome) error {
	if a.CurrentPhase() != enums.PaymentPhaseConfirming {
		return phaseError(a.CurrentPhase(), "record outcome")
	}
	ctx = o.logger.WithBookingID(ctx, a.BookingID)

	switch out.Kind {
	case enums.ConfirmationOutcomeDeclined:
		return o.decline(ctx, a, form, out.Code, out.Message)
	case enums.ConfirmationOutcomeSucceeded:
		intent, err := o.gateway.GetIntent(ctx, a.IntentID)
		switch {
		case err != nil:
			o.logger.Warn(o.logger.WithField(ctx, "error", err.Error()), "payment.confirmation_unverified")
		case intent.Status == "requires_payment_method":
			return o.decline(ctx, a, form, "requires_payment_method", out.Message)
		case intent.Metadata[MetaBookingID] != "" && intent.Metadata[MetaBookingID] != a.BookingID:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment does not belong to this booking")
		}
	case enums.ConfirmationOutcomeRedirect:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown outcome %q", out.Kind))
	}

	a.Phase = enums.PaymentPhaseRedirected
	a.LastError = ""
	o.metrics.Confirmation(form, string(out.Kind))
	o.logger.Info(ctx, "payment.redirected")
	return nil
}

// CreateIntent is the stateless intent endpoint: one authorization for an
// already priced request, no audit write.
func (o *Orchestrator) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	ctx = o.logger.WithBookingID(ctx, req.BookingID)
	started := time.Now()
	intent, err := o.gateway.CreateIntent(ctx, req)
	o.metrics.IntentCreated(req.Form, err == nil, time.Since(started))
	if err != nil {
		o.logger.Error(ctx, "payment.intent_failed", err)
		return Intent{}, intentError(err, req.BookingID, AuditResult{})
	}
	return intent, nil
}

// PublishableKey is the browser-side gateway key.
func (o *Orchestrator) PublishableKey() string {
	return o.cfg.PublishableKey
}

func (o *Orchestrator) decline(ctx context.Context, a *Attempt, form, code, message string) error {
	if strings.TrimSpace(message) == "" {
		message = defaultDeclineMessage
	}
	a.Phase = enums.PaymentPhaseDeclined
	a.Declines++
	a.LastError = message
	o.metrics.Confirmation(form, string(enums.ConfirmationOutcomeDeclined))
	o.logger.Warn(o.logger.WithField(ctx, "decline_code", code), "payment.declined")
	return pkgerrors.New(pkgerrors.CodePaymentDeclined, message).
		WithDetails(map[string]any{"decline_code": code, "booking_id": a.BookingID})
}

func (o *Orchestrator) void(ctx context.Context, a *Attempt, form string) {
	if !o.cfg.VoidAbandoned || !a.HoldsIntent() {
		return
	}
	err := o.gateway.CancelIntent(ctx, a.IntentID, cancelReasonAbandoned)
	o.metrics.IntentVoided(form, err == nil)
	vctx := o.logger.WithFields(ctx, map[string]any{"payment_intent_id": a.IntentID, "booking_id": a.BookingID})
	if err != nil {
		o.logger.Warn(o.logger.WithField(vctx, "error", err.Error()), "payment.void_failed")
		return
	}
	o.logger.Info(vctx, "payment.intent_voided")
}

func (o *Orchestrator) startAudit(ctx context.Context, bookingID string, sub Submission) *audit.Pending {
	if o.sink == nil {
		return nil
	}
	data := make(map[string]any, len(sub.Data)+5)
	for k, v := range sub.Data {
		data[k] = v
	}
	data["form"] = sub.Form
	data["locale"] = sub.Locale
	data["tier"] = sub.Quote.Tier
	data["quantity"] = sub.Quote.Quantity
	data["amount"] = sub.Quote.Amount.StringFixed(2)

	rec := audit.Record{
		BookingID: bookingID,
		Service:   sub.Service,
		Name:      sub.Intake.Contact.Name,
		Email:     sub.Intake.Contact.Email,
		Telephone: sub.Intake.Contact.Phone,
		Files:     sub.Files,
		Data:      data,
	}
	return audit.Start(ctx, observedWriter{o: o, form: sub.Form, next: o.sink}, rec, o.cfg.AuditTimeout)
}

func (o *Orchestrator) collectAudit(ctx context.Context, pending *audit.Pending) AuditResult {
	if pending == nil {
		return AuditResult{Error: "audit sink not configured"}
	}
	waitCtx, cancel := context.WithTimeout(ctx, o.cfg.AuditGrace)
	defer cancel()
	ack, err := pending.Wait(waitCtx)
	switch {
	case errors.Is(err, audit.ErrStillPending):
		return AuditResult{Pending: true}
	case err != nil:
		// never shown to the user as an error; reported for the caller to decide
		msg := ack.Error
		if msg == "" {
			msg = "audit write failed"
		}
		return AuditResult{Error: msg}
	}
	return AuditResult{OK: ack.OK}
}

// observedWriter logs and counts the audit write from inside the detached
// goroutine, so the outcome is recorded even if nobody waits for it.
type observedWriter struct {
	o    *Orchestrator
	form string
	next audit.Writer
}

func (w observedWriter) Write(ctx context.Context, rec audit.Record) (audit.Ack, error) {
	ack, err := w.next.Write(ctx, rec)
	w.o.metrics.AuditWrite(w.form, err == nil)
	if err != nil {
		w.o.logger.Warn(w.o.logger.WithField(ctx, "error", err.Error()), "audit.write_failed")
	} else {
		w.o.logger.Info(ctx, "audit.write_ok")
	}
	return ack, err
}

func intentError(err error, bookingID string, auditResult AuditResult) error {
	details := map[string]any{"booking_id": bookingID, "audit": auditResult}
	var gw *GatewayError
	if errors.As(err, &gw) {
		details["gateway_code"] = gw.GatewayCode()
		if gw.Network {
			return pkgerrors.Wrap(pkgerrors.CodeNetwork, gw, "payment provider unreachable").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeIntentCreation, gw, gw.Message).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeIntentCreation, err, "payment could not be started").WithDetails(details)
}

func gatewayMessage(err error) string {
	var gw *GatewayError
	if errors.As(err, &gw) {
		return gw.Message
	}
	return err.Error()
}

func phaseError(phase enums.PaymentPhase, action string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot %s while payment is %s", action, phase)).
		WithDetails(map[string]any{"phase": phase})
}
