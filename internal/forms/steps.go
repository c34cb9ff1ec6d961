package forms

import (
	"github.com/sportello-uk/sportello-backend/internal/wizard"
)

const (
	dateTag     = "required,datetime=2006-01-02"
	mustBeTrue  = "eq=true"
	requiredTag = "required"
)

func text(en, it string) wizard.Text {
	return wizard.Text{EN: en, IT: it}
}

func options[T ~string](values ...T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func contactStep() wizard.Step {
	return wizard.Step{
		Name:  "contact",
		Title: text("Your details", "I tuoi dati"),
		Fields: []wizard.Field{
			{Key: wizard.KeyName, Kind: wizard.KindText, Tag: "required,min=2,max=120", Label: text("Full name", "Nome e cognome")},
			{Key: wizard.KeyEmail, Kind: wizard.KindText, Tag: "required,email", Label: text("Email", "Email")},
			{Key: wizard.KeyPhone, Kind: wizard.KindText, Tag: "required,min=6,max=20", Label: text("Telephone", "Telefono")},
		},
	}
}

func membersStep() wizard.Step {
	return wizard.Step{
		Name:   "members",
		Title:  text("Additional people", "Altre persone"),
		Repeat: true,
		Fields: []wizard.Field{
			{Key: wizard.KeyName, Kind: wizard.KindText, Tag: "required,min=2,max=120", Label: text("Full name", "Nome e cognome")},
			{Key: wizard.KeyDateOfBirth, Kind: wizard.KindDate, Tag: dateTag, Label: text("Date of birth", "Data di nascita")},
			{Key: wizard.KeyEmailLater, Kind: wizard.KindBool, Label: text("I will email the document later", "Invierò il documento via email")},
		},
		Rules: []wizard.Rule{wizard.AttachmentOrLater()},
	}
}

func agreementsStep() wizard.Step {
	return wizard.Step{
		Name:  "agreements",
		Title: text("Confirm and pay", "Conferma e paga"),
		Fields: []wizard.Field{
			{Key: wizard.KeyImmediateStart, Kind: wizard.KindBool, Tag: mustBeTrue, Label: text(
				"I ask for the service to start immediately",
				"Chiedo che il servizio inizi immediatamente")},
			{Key: wizard.KeyRefundPolicy, Kind: wizard.KindBool, Tag: mustBeTrue, Label: text(
				"I accept the refund policy",
				"Accetto la politica di rimborso")},
			{Key: wizard.KeyPrivacy, Kind: wizard.KindBool, Tag: mustBeTrue, Label: text(
				"I consent to the processing of my data",
				"Acconsento al trattamento dei miei dati")},
		},
	}
}

func emailLaterField() wizard.Field {
	return wizard.Field{Key: wizard.KeyEmailLater, Kind: wizard.KindBool, Label: text("I will email the document later", "Invierò il documento via email")}
}
