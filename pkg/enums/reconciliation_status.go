package enums

import "fmt"

// ReconciliationStatus tracks a stock reconciliation through its approval lifecycle.
type ReconciliationStatus string

const (
	ReconciliationStatusDraft    ReconciliationStatus = "DRAFT"
	ReconciliationStatusPending  ReconciliationStatus = "PENDING"
	ReconciliationStatusApproved ReconciliationStatus = "APPROVED"
	ReconciliationStatusRejected ReconciliationStatus = "REJECTED"
)

var validReconciliationStatuses = []ReconciliationStatus{
	ReconciliationStatusDraft,
	ReconciliationStatusPending,
	ReconciliationStatusApproved,
	ReconciliationStatusRejected,
}

// String implements fmt.Stringer.
func (s ReconciliationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReconciliationStatus.
func (s ReconciliationStatus) IsValid() bool {
	for _, candidate := range validReconciliationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
// REJECTED is terminal for the submission, but the record itself may be
// edited back into DRAFT and resubmitted.
func (s ReconciliationStatus) IsTerminal() bool {
	return s == ReconciliationStatusApproved
}

// Editable reports whether header fields and items may still be mutated.
func (s ReconciliationStatus) Editable() bool {
	return s == ReconciliationStatusDraft || s == ReconciliationStatusRejected
}

// ParseReconciliationStatus converts raw input into a ReconciliationStatus.
func ParseReconciliationStatus(value string) (ReconciliationStatus, error) {
	for _, candidate := range validReconciliationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reconciliation status %q", value)
}
