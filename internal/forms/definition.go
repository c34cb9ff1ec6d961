// Package forms holds the catalogue of booking forms. Each form is a thin
// configuration of the shared saga: its wizard steps, its price table and
// its attachment policy.
package forms

import (
	"fmt"
	"strconv"

	"github.com/sportello-uk/sportello-backend/internal/attachments"
	"github.com/sportello-uk/sportello-backend/internal/audit"
	"github.com/sportello-uk/sportello-backend/internal/pricing"
	"github.com/sportello-uk/sportello-backend/internal/wizard"
	"github.com/sportello-uk/sportello-backend/pkg/enums"
)

// MaxGroup is the exclusive bound on additional people (0..7).
const MaxGroup = 8

// TierRule picks the tier key and quantity for an intake.
type TierRule func(in wizard.Intake) (tier string, quantity int)

type Definition struct {
	Slug    enums.FormSlug
	Service wizard.Text
	Steps   []wizard.Step
	// MaxGroup is zero for forms without group members.
	MaxGroup       int
	MaxAttachments int
	Tiers          *pricing.Table[string]
	Encoder        *attachments.Encoder

	tierFor TierRule
}

// Saga reports whether the form goes through payment.
func (d *Definition) Saga() bool {
	return d.Slug.Saga()
}

// Wizard returns the wizard shape priced by this form.
func (d *Definition) Wizard() wizard.Definition {
	return wizard.Definition{
		Steps:          d.Steps,
		MaxGroup:       d.MaxGroup,
		MaxAttachments: d.MaxAttachments,
		Pricer:         d,
	}
}

// Quote implements wizard.Pricer.
func (d *Definition) Quote(in wizard.Intake) (pricing.Quote, error) {
	if d.Tiers == nil || d.tierFor == nil {
		return pricing.Quote{}, fmt.Errorf("form %s is not priced", d.Slug)
	}
	tier, qty := d.tierFor(in)
	return d.Tiers.Quote(tier, qty)
}

// AuditData flattens the domain part of an intake for the record sink.
func (d *Definition) AuditData(in wizard.Intake) map[string]any {
	data := make(map[string]any, len(in.Fields)+6)
	for k, v := range in.Fields {
		data[k] = v
	}
	if in.Tier != "" {
		data["tier"] = in.Tier
	}
	data["email_later"] = in.EmailLater
	data["agreements"] = in.Agreements
	if d.MaxGroup > 0 {
		members := make([]map[string]any, 0, len(in.Members))
		for _, m := range in.Members {
			members = append(members, map[string]any{
				"name":           m.Name,
				"date_of_birth":  m.DateOfBirth,
				"email_later":    m.EmailLater,
				"has_attachment": m.Attachment != nil,
			})
		}
		data["group_count"] = in.GroupCount
		data["members"] = members
	}
	return data
}

// AuditFiles lists every encoded file on the intake, member documents
// prefixed with their position.
func (d *Definition) AuditFiles(in wizard.Intake) []audit.File {
	files := make([]audit.File, 0, len(in.Attachments)+len(in.Members))
	for _, att := range in.Attachments {
		files = append(files, audit.File{Filename: att.Filename, MimeType: att.MimeType, Data: att.Data})
	}
	for i, m := range in.Members {
		if m.Attachment == nil {
			continue
		}
		files = append(files, audit.File{
			Filename: "member-" + strconv.Itoa(i+1) + "-" + m.Attachment.Filename,
			MimeType: m.Attachment.MimeType,
			Data:     m.Attachment.Data,
		})
	}
	return files
}

func groupTier(capAt int) TierRule {
	return func(in wizard.Intake) (string, int) {
		qty := in.Quantity()
		return pricing.Band(qty, capAt, true), qty
	}
}

func fixedTier(key string) TierRule {
	return func(wizard.Intake) (string, int) {
		return key, 1
	}
}

// selectedTier uses the tier the user picked, defaulting to the first one so
// a running total is always available. Numeric tiers double as the quantity.
func selectedTier(table *pricing.Table[string]) TierRule {
	return func(in wizard.Intake) (string, int) {
		tier := in.Tier
		if tier == "" || !table.Has(tier) {
			tier = table.Entries()[0].Key
		}
		qty, err := strconv.Atoi(tier)
		if err != nil || qty < 1 {
			qty = 1
		}
		return tier, qty
	}
}
