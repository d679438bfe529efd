package payouts

import (
	pkgerrors "github.com/refermate/partner-portal-backend/pkg/errors"
	"github.com/refermate/partner-portal-backend/pkg/enums"
)

// legalTransitions maps each admin action to the statuses it may leave from
// and the status it lands on. A failed payout stays reachable: re-approval
// moves it back to processing.
var legalTransitions = map[enums.PayoutAction]struct {
	from []enums.PayoutStatus
	to   enums.PayoutStatus
}{
	enums.PayoutActionApprove: {
		from: []enums.PayoutStatus{enums.PayoutStatusPending, enums.PayoutStatusFailed},
		to:   enums.PayoutStatusProcessing,
	},
	enums.PayoutActionProcess: {
		from: []enums.PayoutStatus{enums.PayoutStatusProcessing},
		to:   enums.PayoutStatusCompleted,
	},
	enums.PayoutActionReject: {
		from: []enums.PayoutStatus{enums.PayoutStatusPending},
		to:   enums.PayoutStatusFailed,
	},
}

// NextStatus resolves the status an action leads to from the current one.
// Illegal combinations fail wholesale and leave nothing to apply.
func NextStatus(current enums.PayoutStatus, action enums.PayoutAction) (enums.PayoutStatus, error) {
	transition, ok := legalTransitions[action]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown payout action").
			WithDetails(map[string]any{"action": action.String()})
	}
	for _, from := range transition.from {
		if from == current {
			return transition.to, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInvalidTransition, "payout status does not allow this action").
		WithDetails(map[string]any{
			"status": current.String(),
			"action": action.String(),
		})
}
