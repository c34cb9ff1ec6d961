package enums

import "fmt"

// FormSlug identifies one of the intake forms served by the site.
type FormSlug string

const (
	FormSlugPassport    FormSlug = "passport"
	FormSlugTranslation FormSlug = "translation"
	FormSlugAIRE        FormSlug = "aire"
	FormSlugCIE         FormSlug = "cie"
	FormSlugNIN         FormSlug = "nin"
	FormSlugHousing     FormSlug = "housing"
	FormSlugOther       FormSlug = "other"
)

var validFormSlugs = []FormSlug{
	FormSlugPassport,
	FormSlugTranslation,
	FormSlugAIRE,
	FormSlugCIE,
	FormSlugNIN,
	FormSlugHousing,
	FormSlugOther,
}

// String implements fmt.Stringer.
func (v FormSlug) String() string {
	return string(v)
}

// IsValid reports whether the value is a known FormSlug.
func (v FormSlug) IsValid() bool {
	for _, candidate := range validFormSlugs {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseFormSlug converts raw input into a FormSlug.
func ParseFormSlug(value string) (FormSlug, error) {
	for _, candidate := range validFormSlugs {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid form %q", value)
}

// Saga reports whether the form books a paid service through the payment flow.
func (v FormSlug) Saga() bool {
	return v.IsValid() && v != FormSlugOther
}
