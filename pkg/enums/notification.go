package enums

// NotificationType labels workflow notifications delivered to users.
type NotificationType string

const (
	NotificationTypeReconciliationSubmitted NotificationType = "reconciliation_submitted"
	NotificationTypeReconciliationApproved  NotificationType = "reconciliation_approved"
	NotificationTypeReconciliationRejected  NotificationType = "reconciliation_rejected"
)

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationTypeReconciliationSubmitted,
		NotificationTypeReconciliationApproved,
		NotificationTypeReconciliationRejected:
		return true
	}
	return false
}
