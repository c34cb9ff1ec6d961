package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/sportello-uk/sportello-backend/api/middleware"
	"github.com/sportello-uk/sportello-backend/api/responses"
	"github.com/sportello-uk/sportello-backend/internal/forms"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
)

// FormsCatalogue lists every form with its steps, tiers and upload limits
// in the request locale.
func FormsCatalogue(catalogue *forms.Catalogue, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalogue == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "form catalogue unavailable"))
			return
		}
		loc := middleware.LocaleFromContext(r.Context())
		out := make([]formResponse, 0, len(catalogue.All()))
		for _, def := range catalogue.All() {
			out = append(out, newFormResponse(def, loc))
		}
		responses.WriteSuccess(w, out)
	}
}

type formResponse struct {
	Slug           string         `json:"slug"`
	Service        string         `json:"service"`
	Paid           bool           `json:"paid"`
	Steps          []stepResponse `json:"steps"`
	Tiers          []tierResponse `json:"tiers,omitempty"`
	Currency       string         `json:"currency,omitempty"`
	MaxGroup       int            `json:"max_group"`
	MaxAttachments int            `json:"max_attachments"`
	MaxUploadBytes int64          `json:"max_upload_bytes"`
}

type stepResponse struct {
	Name   string          `json:"name"`
	Title  string          `json:"title"`
	Repeat bool            `json:"repeat,omitempty"`
	Fields []fieldResponse `json:"fields"`
}

type fieldResponse struct {
	Key     string   `json:"key"`
	Kind    string   `json:"kind"`
	Rule    string   `json:"rule,omitempty"`
	Label   string   `json:"label"`
	Options []string `json:"options,omitempty"`
}

type tierResponse struct {
	Key    string          `json:"key"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

func newFormResponse(def *forms.Definition, loc string) formResponse {
	resp := formResponse{
		Slug:           def.Slug.String(),
		Service:        def.Service.In(loc),
		Paid:           def.Saga(),
		MaxGroup:       def.MaxGroup,
		MaxAttachments: max(def.MaxAttachments, 1),
		MaxUploadBytes: def.Encoder.MaxBytes(),
	}
	for _, step := range def.Steps {
		sr := stepResponse{Name: step.Name, Title: step.Title.In(loc), Repeat: step.Repeat}
		for _, f := range step.Fields {
			sr.Fields = append(sr.Fields, fieldResponse{
				Key:     f.Key,
				Kind:    string(f.Kind),
				Rule:    f.Tag,
				Label:   f.Label.In(loc),
				Options: f.Options,
			})
		}
		resp.Steps = append(resp.Steps, sr)
	}
	if def.Tiers != nil {
		resp.Currency = def.Tiers.Currency()
		for _, e := range def.Tiers.Entries() {
			resp.Tiers = append(resp.Tiers, tierResponse{Key: e.Key, Label: e.Label, Amount: e.Amount})
		}
	}
	return resp
}
