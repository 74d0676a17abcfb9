package domain

// SLARule maps (severity, priority) to a resolution time limit in hours.
// Read-mostly reference data; tickets capture the hours at triage time.
type SLARule struct {
	ID            string
	Severity      TicketSeverity
	Priority      TicketPriority
	TimeLimitHour int
}

// SLA time limit bounds enforced by the admin surface.
const (
	SLAMinTimeLimitHours = 1
	SLAMaxTimeLimitHours = 72
)

// IssueCategory classifies tickets. Names are unique.
type IssueCategory struct {
	ID           string
	CategoryName string
}
