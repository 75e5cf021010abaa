package enums

import "fmt"

// DiscrepancyReason classifies why a counted quantity differs from the system quantity.
type DiscrepancyReason string

const (
	DiscrepancyReasonDamage   DiscrepancyReason = "DAMAGE"
	DiscrepancyReasonTheft    DiscrepancyReason = "THEFT"
	DiscrepancyReasonMiscount DiscrepancyReason = "MISCOUNT"
	DiscrepancyReasonExpired  DiscrepancyReason = "EXPIRED"
	DiscrepancyReasonOther    DiscrepancyReason = "OTHER"
)

var validDiscrepancyReasons = []DiscrepancyReason{
	DiscrepancyReasonDamage,
	DiscrepancyReasonTheft,
	DiscrepancyReasonMiscount,
	DiscrepancyReasonExpired,
	DiscrepancyReasonOther,
}

// String implements fmt.Stringer.
func (d DiscrepancyReason) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscrepancyReason.
func (d DiscrepancyReason) IsValid() bool {
	for _, candidate := range validDiscrepancyReasons {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscrepancyReason converts raw input into a DiscrepancyReason.
func ParseDiscrepancyReason(value string) (DiscrepancyReason, error) {
	for _, candidate := range validDiscrepancyReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discrepancy reason %q", value)
}
