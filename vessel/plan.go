package vessel

import (
	"math"
	"time"
)

// KmPerDegree is the flat-earth scale used for both axes
const KmPerDegree = 111.32

// maxSteps bounds the step count of a runnable plan; the tick count must fit an int
const maxSteps = float64(math.MaxInt)

// Plan is everything computed once when a run starts. The distance model is
// planar: one degree is KmPerDegree in both latitude and longitude, with no
// cosine-of-latitude correction.
type Plan struct {
	Start           Coordinate    `json:"start"`
	End             Coordinate    `json:"end"`
	SpeedKmH        float64       `json:"speed_kmh"`
	RefreshRateHz   float64       `json:"refresh_rate_hz"`
	DistanceKm      float64       `json:"distance_km"`
	DurationSeconds float64       `json:"duration_seconds"`
	TotalSteps      float64       `json:"total_steps"`
	LatStep         float64       `json:"-"`
	LngStep         float64       `json:"-"`
	HeadingDegrees  float64       `json:"heading_degrees"`
	CourseDegrees   float64       `json:"course_degrees"`
	Ticks           int           `json:"ticks"`
	Interval        time.Duration `json:"interval"`
}

// NewPlan derives step sizes, tick count and heading from the parameters.
// Degenerate inputs are not rejected here: a zero speed or refresh rate
// produces non-finite values exactly as the arithmetic dictates.
func NewPlan(p Parameters) Plan {
	latDiff := p.End.Lat - p.Start.Lat
	lngDiff := p.End.Lng - p.Start.Lng

	distance := PlanarDistanceKm(p.Start, p.End)
	duration := (distance / p.SpeedKmH) * 3600
	steps := duration * p.RefreshRateHz
	heading := Heading(p.Start, p.End)

	plan := Plan{
		Start:           p.Start,
		End:             p.End,
		SpeedKmH:        p.SpeedKmH,
		RefreshRateHz:   p.RefreshRateHz,
		DistanceKm:      distance,
		DurationSeconds: duration,
		TotalSteps:      steps,
		LatStep:         latDiff / steps,
		LngStep:         lngDiff / steps,
		HeadingDegrees:  heading,
		CourseDegrees:   normalizeDegrees(heading + 90),
		Ticks:           tickCount(steps),
	}
	if isFinite(p.RefreshRateHz) && p.RefreshRateHz > 0 {
		plan.Interval = time.Duration(float64(time.Second) / p.RefreshRateHz)
	}
	return plan
}

// Finite reports whether the run described by the plan terminates
func (p Plan) Finite() bool {
	return isFinite(p.TotalSteps) && p.TotalSteps >= 0 && p.TotalSteps < maxSteps
}

// PositionAt returns the interpolated position at the given step
func (p Plan) PositionAt(step int) Coordinate {
	return Coordinate{
		Lat: p.Start.Lat + p.LatStep*float64(step),
		Lng: p.Start.Lng + p.LngStep*float64(step),
	}
}

// Positions returns every position a run of this plan emits, in order
func (p Plan) Positions() []Coordinate {
	if !p.Finite() {
		return nil
	}
	positions := make([]Coordinate, 0, p.Ticks)
	for i := 0; i < p.Ticks; i++ {
		positions = append(positions, p.PositionAt(i))
	}
	return positions
}

// tickCount is the number of integer steps 0, 1, 2, ... strictly below the
// fractional bound, i.e. ceil(steps).
func tickCount(steps float64) int {
	if !isFinite(steps) || steps <= 0 || steps >= maxSteps {
		return 0
	}
	return int(math.Ceil(steps))
}

// PlanarDistanceKm is the flat-earth distance between two points
func PlanarDistanceKm(a, b Coordinate) float64 {
	latDiff := b.Lat - a.Lat
	lngDiff := b.Lng - a.Lng
	return math.Sqrt(latDiff*latDiff+lngDiff*lngDiff) * KmPerDegree
}

// Heading is the rotation for an icon that points east by default:
// atan2(lngDiff, latDiff) in degrees, minus 90.
func Heading(from, to Coordinate) float64 {
	latDiff := to.Lat - from.Lat
	lngDiff := to.Lng - from.Lng
	return math.Atan2(lngDiff, latDiff)*180/math.Pi - 90
}

// normalizeDegrees maps an angle into [0, 360)
func normalizeDegrees(deg float64) float64 {
	if !isFinite(deg) {
		return deg
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
