package onboarding

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sportello-uk/sportello-backend/internal/payments"
)

// Gateway-appended parameters on the return URL.
const (
	queryPaymentIntent  = "payment_intent"
	queryRedirectStatus = "redirect_status"
)

var (
	ErrQueryTooLarge    = errors.New("return url query too large")
	ErrMissingReference = errors.New("booking reference missing")
	ErrInvalidReference = errors.New("booking reference invalid")
)

// ReturnQuery is the untrusted content of a return URL. Only BookingID is
// load-bearing; everything else is advisory until verified.
type ReturnQuery struct {
	BookingID        string
	Form             string
	Paid             bool
	Quantity         int
	PaymentReference string
	RedirectStatus   string
}

// ParseReturnQuery reads a raw query string, refusing oversized input.
func ParseReturnQuery(raw string, maxBytes int) (ReturnQuery, error) {
	raw = strings.TrimPrefix(raw, "?")
	if maxBytes > 0 && len(raw) > maxBytes {
		return ReturnQuery{}, fmt.Errorf("%w: %d bytes", ErrQueryTooLarge, len(raw))
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ReturnQuery{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	ref := strings.TrimSpace(values.Get(payments.QueryRef))
	if ref == "" {
		return ReturnQuery{}, ErrMissingReference
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return ReturnQuery{}, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	q := ReturnQuery{
		BookingID:      id.String(),
		Form:           strings.TrimSpace(values.Get(payments.QueryForm)),
		Paid:           values.Get(payments.QueryPaid) == "1",
		RedirectStatus: strings.TrimSpace(values.Get(queryRedirectStatus)),
	}
	if n, err := strconv.Atoi(values.Get(payments.QueryQty)); err == nil && n > 0 && n < 100 {
		q.Quantity = n
	}
	if pi := strings.TrimSpace(values.Get(queryPaymentIntent)); strings.HasPrefix(pi, "pi_") && len(pi) <= 255 {
		q.PaymentReference = pi
	}
	return q, nil
}
