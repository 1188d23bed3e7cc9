package staticbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePolylineWikipediaExample(t *testing.T) {
	// the canonical example from Google's encoded polyline algorithm docs
	points, err := decodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.InDelta(t, 38.5, points[0][0], 1e-4)
	assert.InDelta(t, -120.2, points[0][1], 1e-4)
	assert.InDelta(t, 40.7, points[1][0], 1e-4)
	assert.InDelta(t, -120.95, points[1][1], 1e-4)
	assert.InDelta(t, 43.252, points[2][0], 1e-4)
	assert.InDelta(t, -126.453, points[2][1], 1e-4)
}

func TestDecodePolylineEmptyString(t *testing.T) {
	points, err := decodePolyline("")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestDecodePolylineTruncatedReturnsError(t *testing.T) {
	_, err := decodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq")
	assert.Error(t, err)
}
