package enums

import "fmt"

// MaritalStatus is the civil status collected by the passport form.
type MaritalStatus string

const (
	MaritalStatusSingle     MaritalStatus = "single"
	MaritalStatusMarried    MaritalStatus = "married"
	MaritalStatusCivilUnion MaritalStatus = "civil_union"
	MaritalStatusDivorced   MaritalStatus = "divorced"
	MaritalStatusWidowed    MaritalStatus = "widowed"
)

var validMaritalStatuss = []MaritalStatus{
	MaritalStatusSingle,
	MaritalStatusMarried,
	MaritalStatusCivilUnion,
	MaritalStatusDivorced,
	MaritalStatusWidowed,
}

// String implements fmt.Stringer.
func (v MaritalStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known MaritalStatus.
func (v MaritalStatus) IsValid() bool {
	for _, candidate := range validMaritalStatuss {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseMaritalStatus converts raw input into a MaritalStatus.
func ParseMaritalStatus(value string) (MaritalStatus, error) {
	for _, candidate := range validMaritalStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid marital status %q", value)
}
