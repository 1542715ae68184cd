// Package geo holds the distance and route maths behind the ride simulation.
package geo

import (
	"math"
	"math/rand"
	"time"
)

const (
	earthRadiusKm = 6371.0

	// RouteLength is the number of points in every generated drive route.
	RouteLength = 60

	// DetourFactor bounds the random midpoint detour, in degrees per axis.
	DetourFactor = 0.005
)

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Distance returns the great-circle distance between a and b in kilometres,
// rounded to two decimals.
func Distance(a, b Point) float64 {
	return Round2(haversineKm(a.Lat, a.Lng, b.Lat, b.Lng))
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Route builds a RouteLength-point drive from start to end with one random
// detour. The first point is start and the last is end. A nil rnd falls back
// to a time-seeded source.
func Route(start, end Point, rnd *rand.Rand) []Point {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	detour := Point{
		Lat: (rnd.Float64()*2 - 1) * DetourFactor,
		Lng: (rnd.Float64()*2 - 1) * DetourFactor,
	}

	pts := make([]Point, RouteLength)
	last := float64(RouteLength - 1)
	for i := range pts {
		t := float64(i) / last
		w := detourWeight(t)
		pts[i] = Point{
			Lat: start.Lat + (end.Lat-start.Lat)*t + w*detour.Lat,
			Lng: start.Lng + (end.Lng-start.Lng)*t + w*detour.Lng,
		}
	}
	pts[0] = start
	pts[RouteLength-1] = end
	return pts
}

// detourWeight blends the detour in over three phases: approach, detour and
// arrival. It is 0 at both ends.
func detourWeight(t float64) float64 {
	const third = 1.0 / 3
	switch {
	case t < third:
		return (1 - math.Cos(3*math.Pi*t)) / 2
	case t < 2*third:
		return 1 + 0.25*math.Sin(2*math.Pi*3*(t-third))
	default:
		return (1 + math.Cos(3*math.Pi*(t-2*third))) / 2
	}
}

// Walk interpolates a straight line of steps+1 points from start to end.
func Walk(start, end Point, steps int) []Point {
	if steps < 1 {
		steps = 1
	}
	pts := make([]Point, steps+1)
	for i := range pts {
		t := float64(i) / float64(steps)
		pts[i] = Point{
			Lat: start.Lat + (end.Lat-start.Lat)*t,
			Lng: start.Lng + (end.Lng-start.Lng)*t,
		}
	}
	pts[0] = start
	pts[steps] = end
	return pts
}

// PathLength sums Distance over consecutive points, without intermediate
// rounding.
func PathLength(pts []Point) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += haversineKm(pts[i-1].Lat, pts[i-1].Lng, pts[i].Lat, pts[i].Lng)
	}
	return Round2(total)
}
