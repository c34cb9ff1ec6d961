package bookings

import (
	"errors"

	"github.com/sportello-uk/sportello-backend/internal/sessions"
	"github.com/sportello-uk/sportello-backend/internal/wizard"
	pkgerrors "github.com/sportello-uk/sportello-backend/pkg/errors"
)

// wizardError maps controller failures onto API codes.
func wizardError(err error) error {
	if err == nil {
		return nil
	}
	var stepErr *wizard.StepError
	if errors.As(err, &stepErr) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, stepErr.Message).WithDetails(stepErr)
	}
	switch {
	case errors.Is(err, wizard.ErrFrozen):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "booking is awaiting payment; go back to edit it")
	case errors.Is(err, wizard.ErrFirstStep):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, err.Error())
	case errors.Is(err, wizard.ErrUnknownField),
		errors.Is(err, wizard.ErrInvalidValue),
		errors.Is(err, wizard.ErrMemberIndex),
		errors.Is(err, wizard.ErrAttachmentCap),
		errors.Is(err, wizard.ErrNoGroupStep):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "booking state could not be updated")
}

func storeError(err error) error {
	if errors.Is(err, sessions.ErrNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "booking session not found or expired")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "booking session store unavailable")
}
