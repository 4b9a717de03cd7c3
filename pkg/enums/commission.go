package enums

import "fmt"

// CommissionStatus tracks payout of an employee commission.
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

var validCommissionStatuses = []CommissionStatus{
	CommissionStatusPending,
	CommissionStatusPaid,
	CommissionStatusCancelled,
}

// String implements fmt.Stringer.
func (s CommissionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s CommissionStatus) IsValid() bool {
	for _, candidate := range validCommissionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCommissionStatus converts raw input into a CommissionStatus.
func ParseCommissionStatus(value string) (CommissionStatus, error) {
	for _, candidate := range validCommissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission status %q", value)
}
