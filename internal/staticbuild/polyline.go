package staticbuild

// decodePolyline decodes a Google encoded-polyline string (precision 5)
// into an ordered list of (lat, lon) points. No polyline library
// appears anywhere in the retrieved example pack, so this follows the
// well-known public algorithm directly rather than reaching for an
// out-of-pack dependency.
func decodePolyline(encoded string) ([][2]float64, error) {
	var points [][2]float64
	var lat, lon int

	i := 0
	for i < len(encoded) {
		dlat, next, err := decodeSignedValue(encoded, i)
		if err != nil {
			return nil, err
		}
		i = next
		lat += dlat

		dlon, next, err := decodeSignedValue(encoded, i)
		if err != nil {
			return nil, err
		}
		i = next
		lon += dlon

		points = append(points, [2]float64{float64(lat) / 1e5, float64(lon) / 1e5})
	}

	return points, nil
}

func decodeSignedValue(encoded string, start int) (int, int, error) {
	result := 0
	shift := uint(0)
	i := start

	for {
		if i >= len(encoded) {
			return 0, 0, errPolylineTruncated
		}
		b := int(encoded[i]) - 63
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
