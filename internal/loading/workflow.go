package loading

import (
	"slices"
	"strings"
)

// Workflow names a dashboard screen and the statuses it may still act on.
type Workflow struct {
	Name       string
	Actionable []Status
}

// Workflows known to the dashboard.
var (
	Collection = Workflow{Name: "collection", Actionable: []Status{StatusPending, StatusPartiallyCollected, StatusPostponed}}
	Delivery   = Workflow{Name: "delivery", Actionable: []Status{StatusDraft, StatusSubmitted}}
	Transfer   = Workflow{Name: "transfer", Actionable: []Status{StatusDraft}}
)

var workflows = map[string]Workflow{
	Collection.Name: Collection,
	Delivery.Name:   Delivery,
	Transfer.Name:   Transfer,
}

// LookupWorkflow resolves a workflow by name.
func LookupWorkflow(name string) (Workflow, bool) {
	w, ok := workflows[strings.ToLower(strings.TrimSpace(name))]
	return w, ok
}

// WorkflowNames lists the registered workflow names.
func WorkflowNames() []string {
	names := make([]string, 0, len(workflows))
	for name := range workflows {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsActionable reports whether an order in status s can still be approved in this workflow.
func (w Workflow) IsActionable(s Status) bool {
	return slices.Contains(w.Actionable, s)
}
