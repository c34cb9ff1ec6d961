// Package bookings runs booking sessions: the wizard between requests, the
// payment saga on submission and the audit-only contact form.
package bookings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sportello-uk/sportello-backend/internal/attachments"
	"github.com/sportello-uk/sportello-backend/internal/audit"
	"github.com/sportello-uk/sportello-backend/internal/forms"
	"github.com/sportello-uk/sportello-backend/internal/payments"
	"github.com/sportello-uk/sportello-backend/internal/sessions"
	"github.com/sportello-uk/sportello-backend/internal/wizard"
	"github.com/sportello-uk/sportello-backend/pkg/enums"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
	"github.com/sportello-uk/sportello-backend/pkg/locale"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
	"github.com/sportello-uk/sportello-backend/pkg/metrics"
)

// TargetMain addresses the intake's own attachment list.
const TargetMain = "main"

type Options struct {
	Catalogue     *forms.Catalogue
	Store         sessions.Store
	Orchestrator  *payments.Orchestrator
	Sink          audit.Writer
	DefaultLocale string
	Metrics       *metrics.SagaMetrics
	Logger        *logger.Logger
}

type Service struct {
	catalogue     *forms.Catalogue
	store         sessions.Store
	orchestrator  *payments.Orchestrator
	sink          audit.Writer
	defaultLocale string
	metrics       *metrics.SagaMetrics
	logger        *logger.Logger
	locks         *sessionLocks
	now           func() time.Time
	newID         func() string
}

func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Catalogue == nil:
		return nil, errors.New("form catalogue required")
	case opts.Store == nil:
		return nil, errors.New("session store required")
	case opts.Orchestrator == nil:
		return nil, errors.New("payment orchestrator required")
	case opts.Logger == nil:
		return nil, errors.New("logger required")
	}
	def, ok := locale.Normalize(opts.DefaultLocale)
	if !ok {
		def = locale.English
	}
	return &Service{
		catalogue:     opts.Catalogue,
		store:         opts.Store,
		orchestrator:  opts.Orchestrator,
		sink:          opts.Sink,
		defaultLocale: def,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		locks:         newSessionLocks(),
		now:           time.Now,
		newID:         uuid.NewString,
	}, nil
}

// Patch is a batch of field edits. Member edits are keyed by member index.
type Patch struct {
	Fields  map[string]string         `json:"fields"`
	Members map[int]map[string]string `json:"members"`
}

// Mount starts an empty intake at the first step.
func (s *Service) Mount(ctx context.Context, form, loc string) (View, error) {
	def, err := s.sagaForm(form)
	if err != nil {
		return View{}, err
	}
	if norm, ok := locale.Normalize(loc); ok {
		loc = norm
	} else {
		loc = s.defaultLocale
	}
	ctrl, err := wizard.New(def.Wizard(), loc)
	if err != nil {
		return View{}, wizardError(err)
	}
	now := s.now().UTC()
	sess := &sessions.Session{
		ID:        s.newID(),
		Form:      def.Slug.String(),
		Locale:    loc,
		Wizard:    ctrl.State(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return View{}, storeError(err)
	}
	s.logger.Info(s.logger.WithForm(s.logger.WithSessionID(ctx, sess.ID), sess.Form), "booking.mounted")
	return buildView(sess, ctrl), nil
}

func (s *Service) View(ctx context.Context, form, id string) (View, error) {
	var out View
	err := s.withSession(ctx, form, id, false, func(ctx context.Context, w *work) error {
		out = buildView(w.sess, w.ctrl)
		return nil
	})
	return out, err
}

// Patch merges field edits while the booking is still editable.
func (s *Service) Patch(ctx context.Context, form, id string, p Patch) (View, error) {
	var out View
	err := s.withSession(ctx, form, id, true, func(ctx context.Context, w *work) error {
		if err := w.editable(); err != nil {
			return err
		}
		for key, value := range p.Fields {
			if err := w.ctrl.Set(key, value); err != nil {
				return fieldError(err, key)
			}
		}
		for i, fields := range p.Members {
			for key, value := range fields {
				if err := w.ctrl.SetMember(i, key, value); err != nil {
					return fieldError(err, key)
				}
			}
		}
		out = buildView(w.sess, w.ctrl)
		return nil
	})
	return out, err
}

func (s *Service) SetGroupCount(ctx context.Context, form, id string, n int) (View, error) {
	var out View
	err := s.withSession(ctx, form, id, true, func(ctx context.Context, w *work) error {
		if err := w.editable(); err != nil {
			return err
		}
		if _, err := w.ctrl.SetGroupCount(n); err != nil {
			return wizardError(err)
		}
		out = buildView(w.sess, w.ctrl)
		return nil
	})
	return out, err
}

// UploadAttachment encodes one file and attaches it to the intake or, for a
// "member:<i>" target, to that group member.
func (s *Service) UploadAttachment(ctx context.Context, form, id, target string, src attachments.Source) (View, error) {
	var out View
	err := s.withSession(ctx, form, id, true, func(ctx context.Context, w *work) error {
		if err := w.editable(); err != nil {
			return err
		}
		att, err := w.def.Encoder.Encode(ctx, src)
		if err != nil {
			return attachments.PublicError(err)
		}
		target = strings.TrimSpace(target)
		switch {
		case target == "" || target == TargetMain:
			err = w.ctrl.AddAttachment(att)
		default:
			i, ok := wizard.MemberTarget(target)
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid attachment target").
					WithDetails(map[string]any{"target": target})
			}
			err = w.ctrl.SetMemberAttachment(i, att)
		}
		if err != nil {
			return wizardError(err)
		}
		out = buildView(w.sess, w.ctrl)
		return nil
	})
	return out, err
}

// Advance validates the current page and moves on. A failing page keeps
// its error in the session so a reload shows it.
func (s *Service) Advance(ctx context.Context, form, id string) (View, error) {
	var out View
	err := s.withSession(ctx, form, id, true, func(ctx context.Context, w *work) error {
		if err := w.editable(); err != nil {
			return err
		}
		err := w.ctrl.Advance()
		out = buildView(w.sess, w.ctrl)
		if err != nil && !errors.Is(err, wizard.ErrFinalStep) {
			w.keep = true
			return wizardError(err)
		}
		return nil
	})
	return out, err
}

func (s *Service) Retreat(ctx context.Context, form, id string) (View, error) {
	var out View
	err := s.withSession(ctx, form, id, true, func(ctx context.Context, w *work) error {
		if err := w.editable(); err != nil {
			return err
		}
		if err := w.ctrl.Retreat(); err != nil {
			return wizardError(err)
		}
		out = buildView(w.sess, w.ctrl)
		return nil
	})
	return out, err
}

// Submit freezes the intake and runs the payment saga. When the intent
// cannot be created the intake is unfrozen and left on the final step with
// the gateway's message, so the user can retry without re-entering data.
func (s *Service) Submit(ctx context.Context, form, id string) (payments.Receipt, error) {
	var out payments.Receipt
	err := s.withSession(ctx, form, id, true, func(ctx context.Context, w *work) error {
		phase := w.sess.Payment.CurrentPhase()
		if phase != enums.PaymentPhaseIntake && phase != enums.PaymentPhaseIntentReady && phase != enums.PaymentPhaseDeclined {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking cannot be submitted while payment is "+string(phase)).
				WithDetails(map[string]any{"phase": phase})
		}
		intake, err := w.ctrl.Freeze()
		if err != nil {
			w.keep = true
			return wizardError(err)
		}
		quote, err := w.def.Quote(intake)
		if err != nil {
			w.ctrl.Unfreeze()
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "booking could not be priced")
		}

		receipt, err := s.orchestrator.Submit(ctx, &w.sess.Payment, payments.Submission{
			Form:    w.sess.Form,
			Service: w.def.Service.In(w.sess.Locale),
			Locale:  w.sess.Locale,
			Intake:  intake,
			Quote:   quote,
			Files:   w.def.AuditFiles(intake),
			Data:    w.def.AuditData(intake),
		})
		w.keep = true
		if err != nil {
			code, msg := string(pkgerrors.CodeIntentCreation), w.sess.Payment.LastError
			if typed := pkgerrors.As(err); typed != nil {
				code, msg = string(typed.Code()), typed.Message()
			}
			w.ctrl.Unfreeze()
			w.ctrl.JumpToFinal()
			w.ctrl.SetError(code, msg)
			return err
		}
		out = receipt
		return nil
	})
	return out, err
}

// Back leaves the payment page. The authorization is dropped and the intake
// becomes editable with its contents intact.
func (s *Service) Back(ctx context.Context, form, id string) (View, error) {
	var out View
	err := s.withSession(ctx, form, id, true, func(ctx context.Context, w *work) error {
		if err := s.orchestrator.Back(ctx, &w.sess.Payment, w.sess.Form); err != nil {
			return err
		}
		w.ctrl.Unfreeze()
		w.ctrl.JumpToFinal()
		out = buildView(w.sess, w.ctrl)
		return nil
	})
	return out, err
}

// Confirmation checks the embedded payment fields and returns what the
// browser passes to the gateway's confirm call.
func (s *Service) Confirmation(ctx context.Context, form, id string, check payments.ConfirmationCheck) (payments.ConfirmParams, error) {
	var out payments.ConfirmParams
	err := s.withSession(ctx, form, id, true, func(ctx context.Context, w *work) error {
		params, err := s.orchestrator.BeginConfirmation(&w.sess.Payment, check)
		if err != nil {
			return err
		}
		out = params
		return nil
	})
	return out, err
}

// ConfirmationResult records the gateway's confirm outcome. A decline is
// saved before the error is returned so the page can show it and retry.
func (s *Service) ConfirmationResult(ctx context.Context, form, id string, outcome payments.Outcome) (View, error) {
	var out View
	err := s.withSession(ctx, form, id, true, func(ctx context.Context, w *work) error {
		err := s.orchestrator.RecordOutcome(ctx, &w.sess.Payment, w.sess.Form, outcome)
		out = buildView(w.sess, w.ctrl)
		if err != nil {
			w.keep = true
		}
		return err
	})
	return out, err
}

func (s *Service) sagaForm(slug string) (*forms.Definition, error) {
	def, err := s.catalogue.Get(slug)
	if err != nil || !def.Saga() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown form").WithDetails(map[string]any{"form": slug})
	}
	return def, nil
}

// work is one locked unit of session mutation.
type work struct {
	def  *forms.Definition
	sess *sessions.Session
	ctrl *wizard.Controller
	// keep saves the session even though fn returned an error.
	keep bool
}

func (w *work) editable() error {
	if phase := w.sess.Payment.CurrentPhase(); !phase.Editable() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is awaiting payment; go back to edit it").
			WithDetails(map[string]any{"phase": phase})
	}
	return nil
}

func (s *Service) withSession(ctx context.Context, form, id string, save bool, fn func(context.Context, *work) error) error {
	def, err := s.sagaForm(form)
	if err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "booking session not found or expired")
	}
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.store.Load(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if sess.Form != def.Slug.String() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "booking session not found or expired")
	}
	ctx = s.logger.WithForm(s.logger.WithSessionID(ctx, sess.ID), sess.Form)

	ctrl, err := wizard.Restore(def.Wizard(), sess.Locale, sess.Wizard)
	if err != nil {
		s.logger.Error(ctx, "booking.restore_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "booking session is corrupt")
	}

	w := &work{def: def, sess: sess, ctrl: ctrl}
	fnErr := fn(ctx, w)
	if !save || (fnErr != nil && !w.keep) {
		return fnErr
	}
	sess.Wizard = ctrl.State()
	sess.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, sess); err != nil {
		s.logger.Error(ctx, "booking.save_failed", err)
		if fnErr != nil {
			return fnErr
		}
		return storeError(err)
	}
	return fnErr
}

func fieldError(err error, key string) error {
	wrapped := wizardError(err)
	if typed := pkgerrors.As(wrapped); typed != nil && typed.Code() == pkgerrors.CodeValidation {
		return typed.WithDetails(map[string]any{"field": key})
	}
	return wrapped
}
