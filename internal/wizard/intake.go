package wizard

import (
	"strconv"

	"github.com/sportello-uk/sportello-backend/internal/attachments"
)

// Reserved value keys. Everything else lives in Intake.Fields.
const (
	KeyName           = "name"
	KeyEmail          = "email"
	KeyPhone          = "phone"
	KeyTier           = "tier"
	KeyImmediateStart = "immediate_start"
	KeyRefundPolicy   = "refund_policy"
	KeyPrivacy        = "privacy"
	KeyDateOfBirth    = "date_of_birth"
	KeyEmailLater     = "email_later"
)

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Agreements struct {
	ImmediateStart bool `json:"immediate_start"`
	RefundPolicy   bool `json:"refund_policy"`
	Privacy        bool `json:"privacy"`
}

// All reports whether every agreement box is checked.
func (a Agreements) All() bool {
	return a.ImmediateStart && a.RefundPolicy && a.Privacy
}

type GroupMember struct {
	Name        string                  `json:"name"`
	DateOfBirth string                  `json:"date_of_birth"`
	Attachment  *attachments.Attachment `json:"attachment,omitempty"`
	EmailLater  bool                    `json:"email_later"`
}

// Intake is the accumulated wizard state for one booking.
type Intake struct {
	Contact     Contact                  `json:"contact"`
	Fields      map[string]string        `json:"fields"`
	Tier        string                   `json:"tier,omitempty"`
	GroupCount  int                      `json:"group_count"`
	Members     []GroupMember            `json:"members"`
	Attachments []attachments.Attachment `json:"attachments,omitempty"`
	EmailLater  bool                     `json:"email_later"`
	Agreements  Agreements               `json:"agreements"`
}

// NewIntake returns an empty intake.
func NewIntake() Intake {
	return Intake{Fields: map[string]string{}, Members: []GroupMember{}}
}

// Value resolves a key against contact, tier, agreements and domain fields.
func (in Intake) Value(key string) string {
	switch key {
	case KeyName:
		return in.Contact.Name
	case KeyEmail:
		return in.Contact.Email
	case KeyPhone:
		return in.Contact.Phone
	case KeyTier:
		return in.Tier
	case KeyImmediateStart:
		return strconv.FormatBool(in.Agreements.ImmediateStart)
	case KeyRefundPolicy:
		return strconv.FormatBool(in.Agreements.RefundPolicy)
	case KeyPrivacy:
		return strconv.FormatBool(in.Agreements.Privacy)
	case KeyEmailLater:
		return strconv.FormatBool(in.EmailLater)
	}
	return in.Fields[key]
}

func (in Intake) HasAttachment() bool {
	return len(in.Attachments) > 0
}

func (in Intake) WillEmailLater() bool {
	return in.EmailLater
}

// Quantity is the number of people covered: the applicant plus any members.
func (in Intake) Quantity() int {
	return 1 + in.GroupCount
}

// Clone deep-copies the intake so a frozen copy cannot be mutated through
// shared maps or slices.
func (in Intake) Clone() Intake {
	out := in
	out.Fields = make(map[string]string, len(in.Fields))
	for k, v := range in.Fields {
		out.Fields[k] = v
	}
	out.Members = make([]GroupMember, len(in.Members))
	for i, m := range in.Members {
		if m.Attachment != nil {
			att := *m.Attachment
			m.Attachment = &att
		}
		out.Members[i] = m
	}
	if in.Attachments != nil {
		out.Attachments = append([]attachments.Attachment(nil), in.Attachments...)
	}
	return out
}

// set writes a scalar value. Boolean keys accept strconv.ParseBool input.
func (in *Intake) set(key, value string) error {
	switch key {
	case KeyName:
		in.Contact.Name = value
	case KeyEmail:
		in.Contact.Email = value
	case KeyPhone:
		in.Contact.Phone = value
	case KeyTier:
		in.Tier = value
	case KeyImmediateStart, KeyRefundPolicy, KeyPrivacy, KeyEmailLater:
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		switch key {
		case KeyImmediateStart:
			in.Agreements.ImmediateStart = b
		case KeyRefundPolicy:
			in.Agreements.RefundPolicy = b
		case KeyPrivacy:
			in.Agreements.Privacy = b
		default:
			in.EmailLater = b
		}
	default:
		if in.Fields == nil {
			in.Fields = map[string]string{}
		}
		if value == "" {
			delete(in.Fields, key)
			return nil
		}
		in.Fields[key] = value
	}
	return nil
}

// memberValues adapts a GroupMember to the Values view.
type memberValues struct {
	m GroupMember
}

func (mv memberValues) Value(key string) string {
	switch key {
	case KeyName:
		return mv.m.Name
	case KeyDateOfBirth:
		return mv.m.DateOfBirth
	case KeyEmailLater:
		return strconv.FormatBool(mv.m.EmailLater)
	}
	return ""
}

func (mv memberValues) HasAttachment() bool {
	return mv.m.Attachment != nil
}

func (mv memberValues) WillEmailLater() bool {
	return mv.m.EmailLater
}

func (m *GroupMember) set(key, value string) error {
	switch key {
	case KeyName:
		m.Name = value
	case KeyDateOfBirth:
		m.DateOfBirth = value
	case KeyEmailLater:
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		m.EmailLater = b
	default:
		return ErrUnknownField
	}
	return nil
}

func parseBool(value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, ErrInvalidValue
	}
	return b, nil
}
