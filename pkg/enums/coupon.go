package enums

// CouponInvalidReason explains why a coupon code cannot be applied.
type CouponInvalidReason string

const (
	CouponNotFound     CouponInvalidReason = "not_found"
	CouponInactive     CouponInvalidReason = "inactive"
	CouponExpired      CouponInvalidReason = "expired"
	CouponLimitReached CouponInvalidReason = "limit_reached"
)

func (r CouponInvalidReason) String() string {
	return string(r)
}

// Message is the user-facing explanation for the reason.
func (r CouponInvalidReason) Message() string {
	switch r {
	case CouponNotFound:
		return "Invalid coupon code"
	case CouponInactive:
		return "This coupon is no longer active"
	case CouponExpired:
		return "This coupon has expired"
	case CouponLimitReached:
		return "This coupon has reached its usage limit"
	default:
		return "Invalid coupon code"
	}
}
