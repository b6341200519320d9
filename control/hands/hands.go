// Package hands turns a time of day into the angles of an analog clock's hands.
//
// Angles are in radians in a counter-clockwise-positive system with zero pointing at "12", so
// the hands move through negative angles as time advances.
package hands

import (
	"math"
	"math/cmplx"
)

// Rest positions of the hands, as a fraction of the dial radius, pointing at "12".  The hour hand
// is shorter.
const (
	HourRest   complex128 = 0.7i
	MinuteRest complex128 = 0.92i
)

const (
	minuteStep  = math.Pi / 30  // 6 degrees per minute on the minute hand.
	hourStep    = math.Pi / 6   // 30 degrees per hour on the hour hand.
	hourCreep   = math.Pi / 360 // Movement of the hour hand per minute.
	overlapLag  = math.Pi / 30  // How far the hour hand is pulled back when the hands overlap.
	overlapSpan = math.Pi / 360

	// Angles that differ by less than this are rounding noise.
	epsilon = 1e-9
)

// Angles returns the angles of the hour and minute hands.  hour must be in 12-hour form (0-11) and
// minute in 0-59.
//
// When the hands would be drawn within one minute-tick of each other, the hour hand is made to lag
// by one tick so that the two stay distinguishable.  This only affects drawing.
func Angles(hour, minute int) (hourAngle, minuteAngle float64) {
	minuteAngle = -float64(minute) * minuteStep
	hourAngle = -float64(hour)*hourStep - float64(minute)*hourCreep
	// The gap between the hands is |60*hour - 11*minute| half-degrees; decide on that exactly.
	if gap := 60*hour - 11*minute; gap > -1 && gap < 1 {
		hourAngle += overlapLag
	}
	return hourAngle, minuteAngle
}

// Overlapping reports whether two hands at the provided angles would be visually confused.  Gaps
// within rounding error of one half-degree do not count as overlapping.
func Overlapping(hourAngle, minuteAngle float64) bool {
	return math.Abs(hourAngle-minuteAngle) < overlapSpan-epsilon
}

// Rotate rotates rest by angle radians.
func Rotate(rest complex128, angle float64) complex128 {
	return rest * cmplx.Rect(1, angle)
}
