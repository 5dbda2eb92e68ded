package model

import "sort"

// Plan is a static catalog entry. Price is in major currency units; the backend
// converts to minor units when it creates the order.
type Plan struct {
	Label   string
	Price   int64
	APICode string
}

// catalog must match the server-side plan table.
var catalog = map[string]Plan{
	"Basic":   {Label: "Basic", Price: 75, APICode: "basic"},
	"Super":   {Label: "Super", Price: 175, APICode: "super"},
	"Premium": {Label: "Premium", Price: 300, APICode: "premium"},
}

// LookupPlan resolves a plan name (case-sensitive) against the catalog.
func LookupPlan(name string) (Plan, bool) {
	p, ok := catalog[name]
	return p, ok
}

// Plans returns the catalog ordered by price.
func Plans() []Plan {
	out := make([]Plan, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}
