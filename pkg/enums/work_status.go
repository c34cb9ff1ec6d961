package enums

import "fmt"

// WorkStatus is the right-to-work evidence declared on the NIN form.
type WorkStatus string

const (
	WorkStatusSettled    WorkStatus = "settled"
	WorkStatusPreSettled WorkStatus = "pre_settled"
	WorkStatusShareCode  WorkStatus = "share_code"
	WorkStatusVisa       WorkStatus = "visa"
)

var validWorkStatuss = []WorkStatus{
	WorkStatusSettled,
	WorkStatusPreSettled,
	WorkStatusShareCode,
	WorkStatusVisa,
}

// String implements fmt.Stringer.
func (v WorkStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known WorkStatus.
func (v WorkStatus) IsValid() bool {
	for _, candidate := range validWorkStatuss {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseWorkStatus converts raw input into a WorkStatus.
func ParseWorkStatus(value string) (WorkStatus, error) {
	for _, candidate := range validWorkStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid work status %q", value)
}
