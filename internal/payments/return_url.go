package payments

import (
	"errors"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Query parameters the gateway carries back to the onboarding page.
const (
	QueryPaid = "paid"
	QueryRef  = "ref"
	QueryQty  = "qty"
	QueryForm = "form"
)

// ReturnURLs builds the URL the gateway redirects to after confirmation.
type ReturnURLs struct {
	base *url.URL
}

func NewReturnURLs(publicBaseURL string) (*ReturnURLs, error) {
	u, err := url.Parse(strings.TrimSpace(publicBaseURL))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("public base url must be absolute")
	}
	return &ReturnURLs{base: u}, nil
}

// Build returns {base}/{locale}/{form}/onboarding?paid=1&ref=..&qty=..&form=..
func (r *ReturnURLs) Build(locale, form, bookingID string, quantity int) string {
	u := *r.base
	u.Path = path.Join("/", u.Path, locale, form, "onboarding")
	q := url.Values{}
	q.Set(QueryPaid, "1")
	q.Set(QueryRef, bookingID)
	q.Set(QueryQty, strconv.Itoa(quantity))
	q.Set(QueryForm, form)
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}
