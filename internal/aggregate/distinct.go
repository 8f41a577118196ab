// Package aggregate turns a ride snapshot into chart-ready views.
//
// Every function is pure: it reads the slices it is given, never mutates
// them, and returns the same output for the same input order.
package aggregate

import "ridesdash/internal/core"

// Distinct returns the distinct keys of items in first-occurrence order.
func Distinct[T any, K comparable](items []T, key func(T) K) []K {
	seen := make(map[K]struct{}, len(items))
	out := make([]K, 0)
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// DistinctPurposes is the purpose axis shared by the stacked and the
// proportion views; both must use it so legend and slice order agree.
func DistinctPurposes(rides []core.Ride) []string {
	return Distinct(rides, func(r core.Ride) string { return r.Purpose })
}
