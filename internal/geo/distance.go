// Package geo provides the spatial primitives used for proximity grouping.
package geo

import "math"

const (
	earthRadiusMiles = 3959
	feetPerMile      = 5280
)

// HaversineFeet returns the great-circle distance between two coordinates
// in feet. The clustering threshold comparisons depend on the exact
// haversine formula, so no small-angle approximations are used.
func HaversineFeet(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlng1 := lng1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlng2 := lng2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlng := rlng2 - rlng1

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Pow(math.Sin(dlng/2), 2)
	c := 2 * math.Asin(math.Sqrt(a))

	return c * earthRadiusMiles * feetPerMile
}
