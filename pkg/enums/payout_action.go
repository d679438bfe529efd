package enums

import "fmt"

// PayoutAction is an admin-triggered transition on a payout record.
type PayoutAction string

const (
	PayoutActionApprove PayoutAction = "approve"
	PayoutActionProcess PayoutAction = "process"
	PayoutActionReject  PayoutAction = "reject"
)

var validPayoutActions = []PayoutAction{
	PayoutActionApprove,
	PayoutActionProcess,
	PayoutActionReject,
}

// String implements fmt.Stringer.
func (a PayoutAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known PayoutAction.
func (a PayoutAction) IsValid() bool {
	for _, candidate := range validPayoutActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParsePayoutAction converts raw input into a PayoutAction.
func ParsePayoutAction(value string) (PayoutAction, error) {
	for _, candidate := range validPayoutActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout action %q", value)
}
