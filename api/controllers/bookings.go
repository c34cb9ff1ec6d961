package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sportello-uk/sportello-backend/api/middleware"
	"github.com/sportello-uk/sportello-backend/api/responses"
	"github.com/sportello-uk/sportello-backend/api/validators"
	"github.com/sportello-uk/sportello-backend/internal/attachments"
	"github.com/sportello-uk/sportello-backend/internal/bookings"
	"github.com/sportello-uk/sportello-backend/internal/payments"
	"github.com/sportello-uk/sportello-backend/pkg/enums"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
)

// BookingService is the session surface used by the booking routes.
type BookingService interface {
	Mount(ctx context.Context, form, locale string) (bookings.View, error)
	View(ctx context.Context, form, id string) (bookings.View, error)
	Patch(ctx context.Context, form, id string, p bookings.Patch) (bookings.View, error)
	SetGroupCount(ctx context.Context, form, id string, n int) (bookings.View, error)
	UploadAttachment(ctx context.Context, form, id, target string, src attachments.Source) (bookings.View, error)
	Advance(ctx context.Context, form, id string) (bookings.View, error)
	Retreat(ctx context.Context, form, id string) (bookings.View, error)
	Submit(ctx context.Context, form, id string) (payments.Receipt, error)
	Back(ctx context.Context, form, id string) (bookings.View, error)
	Confirmation(ctx context.Context, form, id string, check payments.ConfirmationCheck) (payments.ConfirmParams, error)
	ConfirmationResult(ctx context.Context, form, id string, outcome payments.Outcome) (bookings.View, error)
}

// MaxUploadBytes resolves the multipart cap for a form's uploads.
type MaxUploadBytes func(form string) int64

type sessionParams struct {
	form string
	id   string
}

func pathParams(r *http.Request) sessionParams {
	return sessionParams{form: chi.URLParam(r, "form"), id: chi.URLParam(r, "sessionID")}
}

func BookingMount(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Mount(r.Context(), chi.URLParam(r, "form"), middleware.LocaleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func BookingView(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := pathParams(r)
		view, err := svc.View(r.Context(), p.form, p.id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type patchRequest struct {
	Fields  map[string]string            `json:"fields" validate:"max=64"`
	Members map[string]map[string]string `json:"members" validate:"max=16"`
}

func BookingPatch(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := pathParams(r)
		var req patchRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patch := bookings.Patch{Fields: map[string]string{}, Members: map[int]map[string]string{}}
		for k, v := range req.Fields {
			patch.Fields[k] = validators.SanitizeString(v, 4000)
		}
		for raw, fields := range req.Members {
			i, err := strconv.Atoi(raw)
			if err != nil || i < 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "member keys must be indexes").
					WithDetails(map[string]any{"member": raw}))
				return
			}
			clean := make(map[string]string, len(fields))
			for k, v := range fields {
				clean[k] = validators.SanitizeString(v, 4000)
			}
			patch.Members[i] = clean
		}
		view, err := svc.Patch(r.Context(), p.form, p.id, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type groupCountRequest struct {
	Count *int `json:"count" validate:"required"`
}

func BookingGroupCount(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := pathParams(r)
		var req groupCountRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.SetGroupCount(r.Context(), p.form, p.id, *req.Count)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// BookingUpload accepts one multipart file under "file" with a "target" of
// "main" or "member:<i>".
func BookingUpload(svc BookingService, maxBytes MaxUploadBytes, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := pathParams(r)
		if err := validators.ParseMultipart(w, r, maxBytes(p.form)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fh := validators.FormFile(r, "file")
		if fh == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file is required").
				WithDetails(map[string]any{"field": "file"}))
			return
		}
		target := r.FormValue("target")
		view, err := svc.UploadAttachment(r.Context(), p.form, p.id, target, attachments.FromMultipart(target, fh))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func BookingAdvance(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return viewAction(svc.Advance, logg)
}

func BookingRetreat(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return viewAction(svc.Retreat, logg)
}

func BookingBack(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return viewAction(svc.Back, logg)
}

func viewAction(action func(ctx context.Context, form, id string) (bookings.View, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := pathParams(r)
		view, err := action(r.Context(), p.form, p.id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// BookingSubmit runs the saga and returns what the payment page needs.
func BookingSubmit(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := pathParams(r)
		receipt, err := svc.Submit(r.Context(), p.form, p.id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

type confirmationRequest struct {
	Complete    bool              `json:"complete"`
	FieldErrors map[string]string `json:"field_errors" validate:"max=16"`
}

func BookingConfirmation(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := pathParams(r)
		var req confirmationRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := svc.Confirmation(r.Context(), p.form, p.id, payments.ConfirmationCheck{
			Complete:    req.Complete,
			FieldErrors: req.FieldErrors,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, params)
	}
}

type confirmationResultRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=redirect succeeded declined"`
	Code    string `json:"code" validate:"max=64"`
	Message string `json:"message" validate:"max=500"`
}

func BookingConfirmationResult(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := pathParams(r)
		var req confirmationResultRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseConfirmationOutcome(req.Outcome)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid outcome"))
			return
		}
		view, err := svc.ConfirmationResult(r.Context(), p.form, p.id, payments.Outcome{
			Kind:    kind,
			Code:    req.Code,
			Message: validators.SanitizeString(req.Message, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
