package enums

import "fmt"

// HousingIssue classifies the problem reported on the housing form.
type HousingIssue string

const (
	HousingIssueRepairs  HousingIssue = "repairs"
	HousingIssueDeposit  HousingIssue = "deposit"
	HousingIssueEviction HousingIssue = "eviction"
	HousingIssueCouncil  HousingIssue = "council"
	HousingIssueOther    HousingIssue = "other"
)

var validHousingIssues = []HousingIssue{
	HousingIssueRepairs,
	HousingIssueDeposit,
	HousingIssueEviction,
	HousingIssueCouncil,
	HousingIssueOther,
}

// String implements fmt.Stringer.
func (v HousingIssue) String() string {
	return string(v)
}

// IsValid reports whether the value is a known HousingIssue.
func (v HousingIssue) IsValid() bool {
	for _, candidate := range validHousingIssues {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseHousingIssue converts raw input into a HousingIssue.
func ParseHousingIssue(value string) (HousingIssue, error) {
	for _, candidate := range validHousingIssues {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid housing issue %q", value)
}
