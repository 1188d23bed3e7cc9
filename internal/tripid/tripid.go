// Package tripid implements the single trip-numbering scheme shared
// by the scheduler and the static-bundle builder, so that the
// realtime feed and the static schedule agree on every trip_id.
package tripid

import (
	"fmt"
	"sort"
)

// Assign synthesizes trip_ids for a set of route_keys. For each
// route_key (processed in lexical order whatever order they are given
// in, so both callers agree), it emits one trip_id per trip
// slot reported by tripCount, using the scheme "<child_id>_<n>" where
// n is the 1-based ordinal of the trip within its child_id -- not
// within the route_key. A route_key with no known child_id is
// skipped (mirrors the scheduler's missing-mapping rule).
func Assign(
	routeKeys []string,
	tripCount map[string]int,
	childIDByRouteKey map[string]string,
) map[string][]string {
	sorted := make([]string, len(routeKeys))
	copy(sorted, routeKeys)
	sort.Strings(sorted)

	counters := map[string]int{}
	result := make(map[string][]string, len(sorted))

	for _, routeKey := range sorted {
		childID, ok := childIDByRouteKey[routeKey]
		if !ok {
			continue
		}
		n := tripCount[routeKey]
		ids := make([]string, 0, n)
		for i := 0; i < n; i++ {
			counters[childID]++
			ids = append(ids, fmt.Sprintf("%s_%d", childID, counters[childID]))
		}
		result[routeKey] = ids
	}

	return result
}
