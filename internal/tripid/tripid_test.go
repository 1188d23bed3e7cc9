package tripid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trinityinblue/kia-live/internal/tripid"
)

func TestAssignNumbersWithinChildIDAcrossRouteKeys(t *testing.T) {
	routeKeys := []string{"1_DOWN", "1_UP"}
	tripCount := map[string]int{"1_UP": 2, "1_DOWN": 1}
	childIDs := map[string]string{"1_UP": "500", "1_DOWN": "500"}

	got := tripid.Assign(routeKeys, tripCount, childIDs)

	// route keys are processed in sorted order: "1_DOWN" before "1_UP",
	// so 1_DOWN's single trip claims ordinal 1 and 1_UP's two trips
	// claim ordinals 2 and 3, all sharing child_id 500.
	assert.Equal(t, []string{"500_1"}, got["1_DOWN"])
	assert.Equal(t, []string{"500_2", "500_3"}, got["1_UP"])
}

func TestAssignSkipsRouteKeyWithoutChildID(t *testing.T) {
	routeKeys := []string{"1_UP"}
	tripCount := map[string]int{"1_UP": 2}
	childIDs := map[string]string{}

	got := tripid.Assign(routeKeys, tripCount, childIDs)

	_, ok := got["1_UP"]
	assert.False(t, ok)
}

func TestAssignIsDeterministicRegardlessOfInputOrder(t *testing.T) {
	tripCount := map[string]int{"1_UP": 1, "1_DOWN": 1, "2_UP": 1}
	childIDs := map[string]string{"1_UP": "500", "1_DOWN": "500", "2_UP": "600"}

	got1 := tripid.Assign([]string{"1_UP", "1_DOWN", "2_UP"}, tripCount, childIDs)
	got2 := tripid.Assign([]string{"2_UP", "1_DOWN", "1_UP"}, tripCount, childIDs)

	assert.Equal(t, got1, got2)
}
