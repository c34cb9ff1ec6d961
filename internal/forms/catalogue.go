package forms

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sportello-uk/sportello-backend/internal/attachments"
	"github.com/sportello-uk/sportello-backend/internal/pricing"
	"github.com/sportello-uk/sportello-backend/internal/wizard"
	"github.com/sportello-uk/sportello-backend/pkg/config"
	"github.com/sportello-uk/sportello-backend/pkg/enums"
)

// ContactMaxAttachments caps the multi-file contact form.
const ContactMaxAttachments = 5

var ErrUnknownForm = errors.New("unknown form")

// Catalogue is the set of forms served by one deployment.
type Catalogue struct {
	forms map[enums.FormSlug]*Definition
	order []enums.FormSlug
}

type Options struct {
	Currency    string
	Pricing     config.PricingConfig
	Attachments config.AttachmentsConfig
}

func NewCatalogue(opts Options) (*Catalogue, error) {
	currency := opts.Currency
	if currency == "" {
		currency = "gbp"
	}
	c := &Catalogue{forms: map[enums.FormSlug]*Definition{}}
	for _, build := range []func(string) *Definition{passport, translation, aire, cie, nin, housing, contact} {
		def := build(currency)
		if err := c.configure(def, opts); err != nil {
			return nil, err
		}
		c.forms[def.Slug] = def
		c.order = append(c.order, def.Slug)
	}
	return c, nil
}

// Get returns the form for a slug.
func (c *Catalogue) Get(slug string) (*Definition, error) {
	parsed, err := enums.ParseFormSlug(slug)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownForm, slug)
	}
	def, ok := c.forms[parsed]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownForm, slug)
	}
	return def, nil
}

// All returns the forms in display order.
func (c *Catalogue) All() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, slug := range c.order {
		out = append(out, c.forms[slug])
	}
	return out
}

func (c *Catalogue) configure(def *Definition, opts Options) error {
	if def.Tiers != nil {
		overrides := opts.Pricing.OverridesFor(def.Slug.String())
		if len(overrides) > 0 {
			parsed := make(map[string]decimal.Decimal, len(overrides))
			for tier, raw := range overrides {
				amount, err := decimal.NewFromString(raw)
				if err != nil {
					return fmt.Errorf("pricing override %s.%s: %w", def.Slug, tier, err)
				}
				parsed[tier] = amount
			}
			table, err := def.Tiers.WithOverrides(parsed)
			if err != nil {
				return fmt.Errorf("pricing override for %s: %w", def.Slug, err)
			}
			def.Tiers = table
			if def.Slug == enums.FormSlugTranslation || def.Slug == enums.FormSlugHousing {
				def.tierFor = selectedTier(table)
			}
		}
	}

	enc, err := attachments.NewEncoder(attachments.Policy{
		AllowedTypes: opts.Attachments.AllowedTypes,
		MaxBytes:     opts.Attachments.MaxBytesFor(def.Slug.String(), defaultMaxMB(def.Slug)),
	})
	if err != nil {
		return fmt.Errorf("attachment policy for %s: %w", def.Slug, err)
	}
	def.Encoder = enc
	return nil
}

// defaultMaxMB is the built-in limit for forms that take larger scans.
// Zero defers to the deployment-wide default.
func defaultMaxMB(slug enums.FormSlug) int {
	if slug == enums.FormSlugTranslation {
		return 10
	}
	return 0
}

func gbp(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount)
}

func tier(key string, amount int64, label wizard.Text) pricing.Entry[string] {
	return pricing.Entry[string]{Key: key, Label: label.EN, Amount: gbp(amount)}
}

func passport(currency string) *Definition {
	return &Definition{
		Slug:     enums.FormSlugPassport,
		Service:  text("Passport appointment", "Appuntamento passaporto"),
		MaxGroup: MaxGroup,
		Tiers: pricing.MustTable(currency,
			tier("1", 40, text("1 person", "1 persona")),
			tier("2", 75, text("2 people", "2 persone")),
			tier("3+", 100, text("3 or more people", "3 o più persone")),
		),
		tierFor: groupTier(3),
		Steps: []wizard.Step{
			contactStep(),
			{
				Name:  "applicant",
				Title: text("Applicant", "Richiedente"),
				Fields: []wizard.Field{
					{Key: "birth_date", Kind: wizard.KindDate, Tag: dateTag, Label: text("Date of birth", "Data di nascita")},
					{Key: "birth_place", Kind: wizard.KindText, Tag: "required,max=120", Label: text("Place of birth", "Luogo di nascita")},
					{Key: "marital_status", Kind: wizard.KindChoice, Tag: requiredTag, Label: text("Marital status", "Stato civile"),
						Options: options(enums.MaritalStatusSingle, enums.MaritalStatusMarried, enums.MaritalStatusCivilUnion, enums.MaritalStatusDivorced, enums.MaritalStatusWidowed)},
					{Key: "spouse_name", Kind: wizard.KindText, Tag: "max=120", Label: text("Spouse's full name", "Nome e cognome del coniuge")},
					{Key: "previous_passport", Kind: wizard.KindBool, Label: text("I have held an Italian passport before", "Ho già avuto un passaporto italiano")},
					emailLaterField(),
				},
				Rules: []wizard.Rule{
					wizard.RequiredIf("spouse_name", "marital_status", string(enums.MaritalStatusMarried)),
					wizard.AttachmentOrLater(),
				},
			},
			membersStep(),
			agreementsStep(),
		},
	}
}

func translation(currency string) *Definition {
	table := pricing.MustTable(currency,
		tier("1", 25, text("1 page", "1 pagina")),
		tier("2", 45, text("2 pages", "2 pagine")),
		tier("3", 65, text("3 pages", "3 pagine")),
		tier("4", 80, text("4 pages", "4 pagine")),
	)
	return &Definition{
		Slug:    enums.FormSlugTranslation,
		Service: text("Certified translation", "Traduzione certificata"),
		Tiers:   table,
		tierFor: selectedTier(table),
		Steps: []wizard.Step{
			contactStep(),
			{
				Name:  "document",
				Title: text("Your document", "Il tuo documento"),
				Fields: []wizard.Field{
					{Key: wizard.KeyTier, Kind: wizard.KindChoice, Tag: requiredTag, Label: text("Number of pages", "Numero di pagine"),
						Options: []string{"1", "2", "3", "4"}},
					{Key: "source_language", Kind: wizard.KindText, Tag: "required,max=40", Label: text("Translate from", "Traduci da")},
					{Key: "target_language", Kind: wizard.KindText, Tag: "required,max=40", Label: text("Translate into", "Traduci in")},
					emailLaterField(),
				},
				Rules: []wizard.Rule{
					wizard.Differs("target_language", "source_language"),
					wizard.AttachmentOrLater(),
				},
			},
			agreementsStep(),
		},
	}
}

func aire(currency string) *Definition {
	return &Definition{
		Slug:     enums.FormSlugAIRE,
		Service:  text("AIRE registration", "Iscrizione AIRE"),
		MaxGroup: MaxGroup,
		Tiers: pricing.MustTable(currency,
			tier("1", 35, text("1 person", "1 persona")),
			tier("2", 60, text("2 people", "2 persone")),
			tier("3+", 80, text("3 or more people", "3 o più persone")),
		),
		tierFor: groupTier(3),
		Steps: []wizard.Step{
			contactStep(),
			{
				Name:  "residence",
				Title: text("Residence", "Residenza"),
				Fields: []wizard.Field{
					{Key: "uk_address", Kind: wizard.KindText, Tag: "required,min=10,max=240", Label: text("UK address", "Indirizzo nel Regno Unito")},
					{Key: "arrival_date", Kind: wizard.KindDate, Tag: dateTag, Label: text("Date of arrival in the UK", "Data di arrivo nel Regno Unito")},
					{Key: "italian_citizen", Kind: wizard.KindBool, Tag: mustBeTrue, Label: text("I am an Italian citizen", "Sono cittadino italiano")},
					{Key: "previous_comune", Kind: wizard.KindText, Tag: "required,max=120", Label: text("Last comune of residence in Italy", "Ultimo comune di residenza in Italia")},
					emailLaterField(),
				},
				Rules: []wizard.Rule{wizard.AttachmentOrLater()},
			},
			membersStep(),
			agreementsStep(),
		},
	}
}

func cie(currency string) *Definition {
	return &Definition{
		Slug:    enums.FormSlugCIE,
		Service: text("Electronic identity card (CIE)", "Carta d'identità elettronica (CIE)"),
		Tiers:   pricing.MustTable(currency, tier("1", 35, text("1 person", "1 persona"))),
		tierFor: fixedTier("1"),
		Steps: []wizard.Step{
			contactStep(),
			{
				Name:  "applicant",
				Title: text("Applicant", "Richiedente"),
				Fields: []wizard.Field{
					{Key: "birth_date", Kind: wizard.KindDate, Tag: dateTag, Label: text("Date of birth", "Data di nascita")},
					{Key: "birth_place", Kind: wizard.KindText, Tag: "required,max=120", Label: text("Place of birth", "Luogo di nascita")},
					{Key: "aire_registered", Kind: wizard.KindBool, Label: text("I am registered with AIRE", "Sono iscritto all'AIRE")},
					{Key: "current_id_number", Kind: wizard.KindText, Tag: "max=20", Label: text("Current ID card number", "Numero della carta d'identità attuale")},
				},
			},
			agreementsStep(),
		},
	}
}

func nin(currency string) *Definition {
	return &Definition{
		Slug:    enums.FormSlugNIN,
		Service: text("National Insurance number", "National Insurance number"),
		Tiers:   pricing.MustTable(currency, tier("1", 30, text("1 person", "1 persona"))),
		tierFor: fixedTier("1"),
		Steps: []wizard.Step{
			contactStep(),
			{
				Name:  "applicant",
				Title: text("Applicant", "Richiedente"),
				Fields: []wizard.Field{
					{Key: "birth_date", Kind: wizard.KindDate, Tag: dateTag, Label: text("Date of birth", "Data di nascita")},
					{Key: "uk_address", Kind: wizard.KindText, Tag: "required,min=10,max=240", Label: text("UK address", "Indirizzo nel Regno Unito")},
					{Key: "work_status", Kind: wizard.KindChoice, Tag: requiredTag, Label: text("Right to work", "Diritto al lavoro"),
						Options: options(enums.WorkStatusSettled, enums.WorkStatusPreSettled, enums.WorkStatusShareCode, enums.WorkStatusVisa)},
					{Key: "share_code", Kind: wizard.KindText, Tag: "omitempty,min=9,max=11", Label: text("Share code", "Share code")},
				},
				Rules: []wizard.Rule{
					wizard.RequiredIf("share_code", "work_status", string(enums.WorkStatusShareCode)),
				},
			},
			agreementsStep(),
		},
	}
}

func housing(currency string) *Definition {
	table := pricing.MustTable(currency,
		tier("consultation", 30, text("Consultation", "Consulenza")),
		tier("letter", 50, text("Consultation and letter", "Consulenza e lettera")),
	)
	return &Definition{
		Slug:    enums.FormSlugHousing,
		Service: text("Housing support", "Assistenza abitativa"),
		Tiers:   table,
		tierFor: selectedTier(table),
		Steps: []wizard.Step{
			contactStep(),
			{
				Name:  "issue",
				Title: text("Your housing issue", "Il tuo problema abitativo"),
				Fields: []wizard.Field{
					{Key: "issue_type", Kind: wizard.KindChoice, Tag: requiredTag, Label: text("Type of issue", "Tipo di problema"),
						Options: options(enums.HousingIssueRepairs, enums.HousingIssueDeposit, enums.HousingIssueEviction, enums.HousingIssueCouncil, enums.HousingIssueOther)},
					{Key: "description", Kind: wizard.KindText, Tag: "required,min=20,max=4000", Label: text("Describe the problem", "Descrivi il problema")},
					{Key: "urgency", Kind: wizard.KindChoice, Tag: requiredTag, Label: text("Urgency", "Urgenza"),
						Options: []string{"low", "medium", "high"}},
					{Key: wizard.KeyTier, Kind: wizard.KindChoice, Tag: requiredTag, Label: text("Service", "Servizio"),
						Options: []string{"consultation", "letter"}},
				},
			},
			agreementsStep(),
		},
	}
}

// contact is the multi-file "other" form. It is audit-only and never paid.
func contact(string) *Definition {
	return &Definition{
		Slug:           enums.FormSlugOther,
		Service:        text("General enquiry", "Richiesta generica"),
		MaxAttachments: ContactMaxAttachments,
		Steps: []wizard.Step{
			{
				Name:  "message",
				Title: text("Contact us", "Contattaci"),
				Fields: []wizard.Field{
					{Key: wizard.KeyName, Kind: wizard.KindText, Tag: "required,min=2,max=120", Label: text("Full name", "Nome e cognome")},
					{Key: wizard.KeyEmail, Kind: wizard.KindText, Tag: "required,email", Label: text("Email", "Email")},
					{Key: wizard.KeyPhone, Kind: wizard.KindText, Tag: "omitempty,min=6,max=20", Label: text("Telephone", "Telefono")},
					{Key: "message", Kind: wizard.KindText, Tag: "required,min=10,max=4000", Label: text("Message", "Messaggio")},
				},
			},
		},
	}
}
