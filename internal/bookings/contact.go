package bookings

import (
	"context"

	"github.com/sportello-uk/sportello-backend/internal/attachments"
	"github.com/sportello-uk/sportello-backend/internal/audit"
	"github.com/sportello-uk/sportello-backend/internal/wizard"
	"github.com/sportello-uk/sportello-backend/pkg/enums"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
	"github.com/sportello-uk/sportello-backend/pkg/locale"
)

// ContactInput is one post of the general enquiry form.
type ContactInput struct {
	Name    string
	Email   string
	Phone   string
	Message string
	Locale  string
	Files   []attachments.Source
}

// ContactReceipt names the record written for the enquiry.
type ContactReceipt struct {
	Reference string `json:"reference"`
	Files     int    `json:"files"`
}

// Contact validates the enquiry through the same wizard rules as the paid
// forms and writes it to the record sink. There is no payment, so the write
// is the only outcome and its failure is returned.
func (s *Service) Contact(ctx context.Context, in ContactInput) (ContactReceipt, error) {
	if s.sink == nil {
		return ContactReceipt{}, pkgerrors.New(pkgerrors.CodeDependency, "record sink not configured")
	}
	def, err := s.catalogue.Get(enums.FormSlugOther.String())
	if err != nil {
		return ContactReceipt{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "contact form missing")
	}
	loc, ok := locale.Normalize(in.Locale)
	if !ok {
		loc = s.defaultLocale
	}
	ctrl, err := wizard.New(def.Wizard(), loc)
	if err != nil {
		return ContactReceipt{}, wizardError(err)
	}
	fields := map[string]string{
		wizard.KeyName:  in.Name,
		wizard.KeyEmail: in.Email,
		wizard.KeyPhone: in.Phone,
		"message":       in.Message,
	}
	for key, value := range fields {
		if err := ctrl.Set(key, value); err != nil {
			return ContactReceipt{}, fieldError(err, key)
		}
	}
	if len(in.Files) > def.MaxAttachments {
		return ContactReceipt{}, wizardError(wizard.ErrAttachmentCap)
	}
	encoded, err := def.Encoder.EncodeAll(ctx, in.Files)
	if err != nil {
		return ContactReceipt{}, attachments.PublicError(err)
	}
	for _, att := range encoded {
		if err := ctrl.AddAttachment(att); err != nil {
			return ContactReceipt{}, wizardError(err)
		}
	}
	intake, err := ctrl.Freeze()
	if err != nil {
		return ContactReceipt{}, wizardError(err)
	}

	ref := s.newID()
	ctx = s.logger.WithForm(s.logger.WithBookingID(ctx, ref), def.Slug.String())
	data := def.AuditData(intake)
	data["form"] = def.Slug.String()
	data["locale"] = loc
	_, err = s.sink.Write(ctx, audit.Record{
		BookingID: ref,
		Service:   def.Service.In(loc),
		Name:      intake.Contact.Name,
		Email:     intake.Contact.Email,
		Telephone: intake.Contact.Phone,
		Files:     def.AuditFiles(intake),
		Data:      data,
	})
	s.metrics.AuditWrite(def.Slug.String(), err == nil)
	if err != nil {
		s.logger.Error(ctx, "contact.write_failed", err)
		if pkgerrors.As(err) != nil {
			return ContactReceipt{}, err
		}
		return ContactReceipt{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enquiry could not be sent")
	}
	s.logger.Info(ctx, "contact.sent")
	return ContactReceipt{Reference: ref, Files: len(encoded)}, nil
}
