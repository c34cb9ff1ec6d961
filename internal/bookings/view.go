package bookings

import (
	"github.com/sportello-uk/sportello-backend/internal/pricing"
	"github.com/sportello-uk/sportello-backend/internal/sessions"
	"github.com/sportello-uk/sportello-backend/internal/wizard"
	"github.com/sportello-uk/sportello-backend/pkg/enums"
)

// View is what the browser renders for a session.
type View struct {
	SessionID  string             `json:"session_id"`
	Form       string             `json:"form"`
	Locale     string             `json:"locale"`
	Step       int                `json:"step"`
	Sub        int                `json:"sub"`
	StepName   string             `json:"step_name"`
	StepTitle  string             `json:"step_title"`
	TotalSteps int                `json:"total_steps"`
	AtFinal    bool               `json:"at_final_step"`
	Frozen     bool               `json:"frozen"`
	Intake     wizard.Intake      `json:"intake"`
	Total      *pricing.Quote     `json:"total,omitempty"`
	Error      *wizard.StepError  `json:"error,omitempty"`
	Phase      enums.PaymentPhase `json:"phase"`
	BookingID  string             `json:"booking_id,omitempty"`
	LastError  string             `json:"payment_error,omitempty"`
	Declines   int                `json:"declines,omitempty"`
}

func buildView(sess *sessions.Session, ctrl *wizard.Controller) View {
	step, sub := ctrl.Position()
	current := ctrl.Current()
	v := View{
		SessionID:  sess.ID,
		Form:       sess.Form,
		Locale:     sess.Locale,
		Step:       step,
		Sub:        sub,
		StepName:   current.Name,
		StepTitle:  current.Title.In(sess.Locale),
		TotalSteps: len(ctrl.Definition().Steps),
		AtFinal:    ctrl.AtFinalStep(),
		Frozen:     ctrl.Frozen(),
		Intake:     withoutFileData(ctrl.Intake()),
		Error:      ctrl.Err(),
		Phase:      sess.Payment.CurrentPhase(),
		BookingID:  sess.Payment.BookingID,
		LastError:  sess.Payment.LastError,
		Declines:   sess.Payment.Declines,
	}
	if q, err := ctrl.Total(); err == nil {
		v.Total = &q
	}
	return v
}

// withoutFileData keeps file names and sizes but drops encoded content from
// what goes back to the browser.
func withoutFileData(in wizard.Intake) wizard.Intake {
	for i := range in.Attachments {
		in.Attachments[i].Data = ""
	}
	for i := range in.Members {
		if in.Members[i].Attachment != nil {
			in.Members[i].Attachment.Data = ""
		}
	}
	return in
}
