package controllers

import (
	"context"
	"net/http"

	"github.com/sportello-uk/sportello-backend/api/middleware"
	"github.com/sportello-uk/sportello-backend/api/responses"
	"github.com/sportello-uk/sportello-backend/api/validators"
	"github.com/sportello-uk/sportello-backend/internal/attachments"
	"github.com/sportello-uk/sportello-backend/internal/bookings"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
)

type ContactService interface {
	Contact(ctx context.Context, in bookings.ContactInput) (bookings.ContactReceipt, error)
}

// ContactSubmit takes the general enquiry as multipart so files can ride
// along under "files".
func ContactSubmit(svc ContactService, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := validators.ParseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in := bookings.ContactInput{
			Name:    validators.SanitizeString(r.FormValue("name"), 120),
			Email:   validators.SanitizeString(r.FormValue("email"), 254),
			Phone:   validators.SanitizeString(r.FormValue("phone"), 32),
			Message: validators.SanitizeString(r.FormValue("message"), 4000),
			Locale:  middleware.LocaleFromContext(r.Context()),
		}
		for _, fh := range validators.FormFiles(r, "files") {
			in.Files = append(in.Files, attachments.FromMultipart("files", fh))
		}
		receipt, err := svc.Contact(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}
