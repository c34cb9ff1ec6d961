package controllers

import (
	"context"
	"net/http"

	"github.com/sportello-uk/sportello-backend/api/middleware"
	"github.com/sportello-uk/sportello-backend/api/responses"
	"github.com/sportello-uk/sportello-backend/api/validators"
	"github.com/sportello-uk/sportello-backend/internal/bookings"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
)

type IntentCreator interface {
	CreateIntent(ctx context.Context, in bookings.IntentInput) (bookings.IntentResult, error)
}

// PaymentIntentCreate is the stateless intent endpoint. The page prices
// nothing itself; the tier key is resolved server side.
func PaymentIntentCreate(svc IntentCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in bookings.IntentInput
		if err := validators.DecodeJSONBody(w, r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if in.Locale == "" {
			in.Locale = middleware.LocaleFromContext(r.Context())
		}
		in.Name = validators.SanitizeString(in.Name, 120)

		res, err := svc.CreateIntent(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, res)
	}
}
