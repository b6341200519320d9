package clock

import (
	"fmt"

	"github.com/jrockway/memlcd-clock/control/rtc"
)

// Names used on the date label, indexed from zero.  These are deliberately not the usual
// three-letter abbreviations.
var (
	Weekdays = [7]string{"Mon", "Tue", "Wed", "Thur", "Fri", "Sat", "Sun"}
	Months   = [12]string{"Jan", "Feb", "March", "April", "May", "June", "July", "Aug", "Sept", "Oct", "Nov", "Dec"}
)

// TimeLabel formats the digital time as HH.MM, with the hour in 24-hour form.
func TimeLabel(hour, minute int) string {
	return fmt.Sprintf("%02d.%02d", hour, minute)
}

// DateLabel formats the date like "Fri 15 March 2024".  The sample must be valid.
func DateLabel(s rtc.Sample) string {
	return fmt.Sprintf("%s %d %s %d", Weekdays[s.Weekday-1], s.Day, Months[s.Month-1], s.Year)
}
