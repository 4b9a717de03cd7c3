package enums

import "fmt"

// AuditEventType classifies rows in audit_logs.
type AuditEventType string

const (
	AuditUserCreated          AuditEventType = "user_created"
	AuditUserLogin            AuditEventType = "user_login"
	AuditUserRoleChanged      AuditEventType = "user_role_changed"
	AuditSubscriptionCreated  AuditEventType = "subscription_created"
	AuditSubscriptionCanceled AuditEventType = "subscription_canceled"
	AuditLetterCreated        AuditEventType = "letter_created"
	AuditLetterEmailed        AuditEventType = "letter_emailed"
	AuditCouponCreated        AuditEventType = "coupon_created"
	AuditCouponUpdated        AuditEventType = "coupon_updated"
	AuditCommissionPaid       AuditEventType = "commission_paid"
	AuditCommissionCancelled  AuditEventType = "commission_cancelled"
	AuditAdminSecretVerified  AuditEventType = "admin_secret_verified"
	AuditRateLimitExceeded    AuditEventType = "rate_limit_exceeded"
	AuditInvalidInput         AuditEventType = "invalid_input"
	AuditSecurityEvent        AuditEventType = "security_event"
)

var validAuditEventTypes = []AuditEventType{
	AuditUserCreated,
	AuditUserLogin,
	AuditUserRoleChanged,
	AuditSubscriptionCreated,
	AuditSubscriptionCanceled,
	AuditLetterCreated,
	AuditLetterEmailed,
	AuditCouponCreated,
	AuditCouponUpdated,
	AuditCommissionPaid,
	AuditCommissionCancelled,
	AuditAdminSecretVerified,
	AuditRateLimitExceeded,
	AuditInvalidInput,
	AuditSecurityEvent,
}

func (a AuditEventType) String() string {
	return string(a)
}

// IsValid reports whether the value is known.
func (a AuditEventType) IsValid() bool {
	for _, candidate := range validAuditEventTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditEventType converts raw input into an AuditEventType.
func ParseAuditEventType(value string) (AuditEventType, error) {
	for _, candidate := range validAuditEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit event type %q", value)
}
