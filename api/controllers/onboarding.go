package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sportello-uk/sportello-backend/api/responses"
	"github.com/sportello-uk/sportello-backend/api/validators"
	"github.com/sportello-uk/sportello-backend/internal/attachments"
	"github.com/sportello-uk/sportello-backend/internal/onboarding"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
)

type OnboardingService interface {
	Resolve(ctx context.Context, rawQuery string) (onboarding.Context, error)
	Submit(ctx context.Context, in onboarding.SubmitInput) (onboarding.Ack, error)
}

// OnboardingContext reads the return URL query as the gateway sent it.
func OnboardingContext(svc OnboardingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.Resolve(r.Context(), r.URL.RawQuery)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

func OnboardingSubmit(svc OnboardingService, maxBytes MaxUploadBytes, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := chi.URLParam(r, "form")
		if err := validators.ParseMultipart(w, r, maxBytes(form)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in := onboarding.SubmitInput{
			Form:             form,
			BookingID:        validators.SanitizeString(r.FormValue("booking_id"), 64),
			PaymentReference: validators.SanitizeString(r.FormValue("payment_reference"), 255),
			Deadline:         validators.SanitizeString(r.FormValue("deadline"), 10),
		}
		if fh := validators.FormFile(r, "document"); fh != nil {
			src := attachments.FromMultipart("document", fh)
			in.Document = &src
		}
		ack, err := svc.Submit(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ack)
	}
}
