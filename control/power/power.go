// Package power provides the delay the clock spends almost all of its life in.
package power

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sleepSecondsCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "low_power_sleep_seconds",
	Help: "total time spent in the low-power delay, in seconds",
})

// Delay blocks the calling goroutine.  On Linux the kernel is free to idle the CPU for the
// duration; there is nothing more aggressive to ask for from userspace.  A Delay cannot be
// interrupted.
type Delay struct {
	sleep func(time.Duration)
}

// Sleep blocks for d.
func (p Delay) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(d)
	sleepSecondsCounter.Add(d.Seconds())
}
