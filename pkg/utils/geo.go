package utils

import "math"

const earthRadiusMetres = 6371e3

// DistanceMetres returns the haversine great-circle distance between two
// lat/lon points in metres.
func DistanceMetres(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMetres * c
}

// BoundingBoxMidpoint returns the midpoint of the bounding box around the
// given points. ok is false when the slice is empty.
func BoundingBoxMidpoint(lats, lons []float64) (lat, lon float64, ok bool) {
	if len(lats) == 0 || len(lats) != len(lons) {
		return 0, 0, false
	}
	minLat, maxLat := lats[0], lats[0]
	minLon, maxLon := lons[0], lons[0]
	for i := 1; i < len(lats); i++ {
		minLat = math.Min(minLat, lats[i])
		maxLat = math.Max(maxLat, lats[i])
		minLon = math.Min(minLon, lons[i])
		maxLon = math.Max(maxLon, lons[i])
	}
	return (minLat + maxLat) / 2, (minLon + maxLon) / 2, true
}
