package loading

import "strings"

// Status is a canonical order status. Upstream spellings vary in case, spacing and separators.
type Status string

// Known statuses.
const (
	StatusPending            Status = "Pending"
	StatusPartiallyCollected Status = "Partially Collected"
	StatusPostponed          Status = "Postponed"
	StatusFullyCollected     Status = "Fully Collected"
	StatusDraft              Status = "Draft"
	StatusSubmitted          Status = "Submitted"
	StatusApproved           Status = "Approved"
	StatusLoaded             Status = "Loaded"
	StatusDelivered          Status = "Delivered"
	StatusCancelled          Status = "Cancelled"
)

var knownStatuses = map[string]Status{}

func init() {
	for _, s := range []Status{
		StatusPending, StatusPartiallyCollected, StatusPostponed, StatusFullyCollected,
		StatusDraft, StatusSubmitted, StatusApproved, StatusLoaded, StatusDelivered, StatusCancelled,
	} {
		knownStatuses[statusToken(string(s))] = s
	}
	knownStatuses["canceled"] = StatusCancelled
	knownStatuses["partialcollected"] = StatusPartiallyCollected
	knownStatuses["collected"] = StatusFullyCollected
}

func statusToken(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch r {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseStatus maps an upstream spelling to its canonical Status. Unknown values are returned
// trimmed but otherwise verbatim.
func ParseStatus(raw string) Status {
	if s, ok := knownStatuses[statusToken(raw)]; ok {
		return s
	}
	return Status(strings.TrimSpace(raw))
}

// Known reports whether s is one of the canonical statuses.
func (s Status) Known() bool {
	return s != "" && knownStatuses[statusToken(string(s))] == s
}
