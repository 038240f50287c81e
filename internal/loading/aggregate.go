package loading

import (
	"slices"
	"strconv"
	"strings"
)

// SyntheticPrefix starts the key of a group formed by an order without a loading number.
const SyntheticPrefix = "order:"

// SyntheticKey returns the group key used for an order that carries no loading number.
func SyntheticKey(orderID int64) string {
	return SyntheticPrefix + strconv.FormatInt(orderID, 10)
}

// ParseKey splits a group key into a loading number or, for synthetic keys, the order id.
func ParseKey(key string) (loadingNumber string, orderID int64, synthetic bool) {
	if rest, ok := strings.CutPrefix(key, SyntheticPrefix); ok {
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return "", id, true
		}
	}
	return key, 0, false
}

// GroupByLoadingNumber groups orders by loading number. Every order lands in exactly one group;
// orders without a loading number each get a singleton group of their own. Member order follows
// the input. Groups are sorted by date descending, undated last, then by loading number
// descending.
func GroupByLoadingNumber(orders []Order, wf Workflow) []Group {
	groups := make([]Group, 0)
	index := make(map[string]int)

	for _, o := range orders {
		if o.LoadingNumber == "" {
			groups = append(groups, newGroup(SyntheticKey(o.ID), "", true, o))
			continue
		}
		i, ok := index[o.LoadingNumber]
		if !ok {
			index[o.LoadingNumber] = len(groups)
			groups = append(groups, newGroup(o.LoadingNumber, o.LoadingNumber, false, o))
			continue
		}
		groups[i].addMember(o)
	}

	for i := range groups {
		groups[i].Approvable = slices.ContainsFunc(groups[i].Orders, func(o Order) bool {
			return wf.IsActionable(o.Status)
		})
	}

	slices.SortStableFunc(groups, compareGroups)
	return groups
}

func newGroup(key, loadingNumber string, synthetic bool, first Order) Group {
	g := Group{
		Key:           key,
		LoadingNumber: loadingNumber,
		Synthetic:     synthetic,
		Date:          first.DisplayDate(),
		EmployeeName:  first.EmployeeName,
		VehicleNumber: first.VehicleNumber,
		Area:          first.Area,
	}
	g.addMember(first)
	return g
}

func (g *Group) addMember(o Order) {
	if len(g.Orders) > 0 {
		g.flagMixed(AttrEmployee, g.EmployeeName, o.EmployeeName)
		g.flagMixed(AttrVehicle, g.VehicleNumber, o.VehicleNumber)
		g.flagMixed(AttrArea, g.Area, o.Area)
	}
	g.Orders = append(g.Orders, o)
	g.OrderCount++
	g.Totals.add(o)
}

func (g *Group) flagMixed(attr, shown, member string) {
	if shown == member || slices.Contains(g.MixedAttributes, attr) {
		return
	}
	g.MixedAttributes = append(g.MixedAttributes, attr)
}

func compareGroups(a, b Group) int {
	switch {
	case a.Date == nil && b.Date != nil:
		return 1
	case a.Date != nil && b.Date == nil:
		return -1
	case a.Date != nil && b.Date != nil:
		if c := b.Date.Compare(*a.Date); c != 0 {
			return c
		}
	}
	return strings.Compare(b.Key, a.Key)
}

// FindGroup returns the group with the given key.
func FindGroup(groups []Group, key string) (Group, bool) {
	for _, g := range groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// Summarize totals groups for the dashboard header.
func Summarize(groups []Group) Summary {
	var s Summary
	for _, g := range groups {
		s.GroupCount++
		s.OrderCount += g.OrderCount
		if g.Approvable {
			s.ApprovableCount++
		}
		s.Totals.merge(g.Totals)
	}
	return s
}
