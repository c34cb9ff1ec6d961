package wizard

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Text is a bilingual label.
type Text struct {
	EN string `json:"en"`
	IT string `json:"it"`
}

func (t Text) In(locale string) string {
	if locale == "it" && t.IT != "" {
		return t.IT
	}
	return t.EN
}

type FieldKind string

const (
	KindText   FieldKind = "text"
	KindBool   FieldKind = "bool"
	KindDate   FieldKind = "date"
	KindChoice FieldKind = "choice"
)

// Field is one input on a step. Tag is a validator/v10 rule string applied
// to the field's string value, e.g. "required,email".
type Field struct {
	Key     string    `json:"key"`
	Kind    FieldKind `json:"kind"`
	Tag     string    `json:"rule,omitempty"`
	Label   Text      `json:"label"`
	Options []string  `json:"options,omitempty"`
}

// Values is what a step validates against: the intake for ordinary steps,
// a single group member for the repeated step.
type Values interface {
	Value(key string) string
	HasAttachment() bool
	WillEmailLater() bool
}

// Violation is a failed rule before localisation.
type Violation struct {
	Field string
	Code  string
	Param string
}

// Rule is a cross-field check; nil means the step passes it.
type Rule func(v Values) *Violation

// Step is one page of the wizard. A Repeat step is shown once per group
// member and validates that member; it is skipped entirely when the group
// count is zero.
type Step struct {
	Name   string  `json:"name"`
	Title  Text    `json:"title"`
	Fields []Field `json:"fields"`
	Rules  []Rule  `json:"-"`
	Repeat bool    `json:"repeat,omitempty"`
}

func (s Step) field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// check runs field tags in declaration order, then the cross-field rules.
func (s Step) check(v Values) *Violation {
	for _, f := range s.Fields {
		if f.Tag == "" {
			continue
		}
		if err := validate.Var(v.Value(f.Key), f.Tag); err != nil {
			return violationFrom(f.Key, err)
		}
	}
	for _, rule := range s.Rules {
		if vio := rule(v); vio != nil {
			return vio
		}
	}
	return nil
}

func violationFrom(key string, err error) *Violation {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &Violation{Field: key, Code: verrs[0].Tag(), Param: verrs[0].Param()}
	}
	return &Violation{Field: key, Code: "invalid"}
}

// RequiredIf requires field whenever other equals value.
func RequiredIf(field, other, value string) Rule {
	return func(v Values) *Violation {
		if v.Value(other) == value && strings.TrimSpace(v.Value(field)) == "" {
			return &Violation{Field: field, Code: "required"}
		}
		return nil
	}
}

// Differs requires two fields to hold different values.
func Differs(field, other string) Rule {
	return func(v Values) *Violation {
		a, b := v.Value(field), v.Value(other)
		if a != "" && strings.EqualFold(a, b) {
			return &Violation{Field: field, Code: "differs", Param: other}
		}
		return nil
	}
}

// AttachmentOrLater requires either an uploaded document or the
// "I will email it later" flag.
func AttachmentOrLater() Rule {
	return func(v Values) *Violation {
		if v.HasAttachment() || v.WillEmailLater() {
			return nil
		}
		return &Violation{Field: "attachment", Code: "attachment_or_later"}
	}
}
