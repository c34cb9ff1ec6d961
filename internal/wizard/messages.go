package wizard

import (
	"fmt"
	"strings"
)

var messages = map[string]map[string]string{
	"en": {
		"required":            "%s is required",
		"email":               "%s must be a valid email address",
		"min":                 "%s must be at least %s characters",
		"max":                 "%s must be at most %s characters",
		"datetime":            "%s must be a date (YYYY-MM-DD)",
		"oneof":               "%s has an unexpected value",
		"eq":                  "Please confirm: %s",
		"differs":             "%s must be different from %s",
		"attachment_or_later": "Upload the document or tick \"I will email it later\"",
		"invalid":             "%s is not valid",
	},
	"it": {
		"required":            "Il campo %s è obbligatorio",
		"email":               "%s deve essere un indirizzo email valido",
		"min":                 "%s deve contenere almeno %s caratteri",
		"max":                 "%s può contenere al massimo %s caratteri",
		"datetime":            "%s deve essere una data (AAAA-MM-GG)",
		"oneof":               "%s contiene un valore non previsto",
		"eq":                  "Conferma: %s",
		"differs":             "%s deve essere diverso da %s",
		"attachment_or_later": "Carica il documento oppure seleziona \"Lo invierò via email\"",
		"invalid":             "%s non è valido",
	},
}

var memberPrefix = Text{EN: "Additional person %d: ", IT: "Persona aggiuntiva %d: "}

func render(locale string, step Step, vio *Violation) string {
	table, ok := messages[locale]
	if !ok {
		table = messages["en"]
	}
	format, ok := table[vio.Code]
	if !ok {
		format = table["invalid"]
	}

	label := labelFor(locale, step, vio.Field)
	var msg string
	switch strings.Count(format, "%s") {
	case 0:
		msg = format
	case 1:
		msg = fmt.Sprintf(format, label)
	default:
		second := vio.Param
		if vio.Code == "differs" {
			second = labelFor(locale, step, vio.Param)
		}
		msg = fmt.Sprintf(format, label, second)
	}
	return msg
}

func labelFor(locale string, step Step, key string) string {
	if f, ok := step.field(key); ok {
		if l := f.Label.In(locale); l != "" {
			return l
		}
	}
	return key
}
