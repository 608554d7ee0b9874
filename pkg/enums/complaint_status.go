package enums

import "slices"

// ComplaintStatus tracks a customer dispute.
type ComplaintStatus string

const (
	ComplaintStatusPending     ComplaintStatus = "pending"
	ComplaintStatusNegotiating ComplaintStatus = "negotiating"
	ComplaintStatusResolved    ComplaintStatus = "resolved"
	ComplaintStatusRejected    ComplaintStatus = "rejected"
)

var validComplaintStatuses = []ComplaintStatus{
	ComplaintStatusPending,
	ComplaintStatusNegotiating,
	ComplaintStatusResolved,
	ComplaintStatusRejected,
}

// OpenComplaintStatuses still await an admin decision and hold the order.
var OpenComplaintStatuses = []ComplaintStatus{
	ComplaintStatusPending,
	ComplaintStatusNegotiating,
}

func (c ComplaintStatus) String() string { return string(c) }

// IsValid reports whether the value is a known ComplaintStatus.
func (c ComplaintStatus) IsValid() bool { return slices.Contains(validComplaintStatuses, c) }

// ParseComplaintStatus converts raw input into a ComplaintStatus.
func ParseComplaintStatus(value string) (ComplaintStatus, error) {
	return parseEnum(validComplaintStatuses, value, "complaint status")
}

// IsOpen reports whether the complaint still awaits an admin decision.
func (c ComplaintStatus) IsOpen() bool {
	return slices.Contains(OpenComplaintStatuses, c)
}
