package power

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDelay(t *testing.T) {
	var slept []time.Duration
	d := Delay{sleep: func(d time.Duration) { slept = append(slept, d) }}
	before := testutil.ToFloat64(sleepSecondsCounter)

	d.Sleep(time.Second)
	d.Sleep(0)
	d.Sleep(-time.Second)
	d.Sleep(500 * time.Millisecond)

	if got, want := len(slept), 2; got != want {
		t.Fatalf("sleep calls:\n  got: %v\n want: %v", got, want)
	}
	if got, want := slept[0], time.Second; got != want {
		t.Errorf("first sleep:\n  got: %v\n want: %v", got, want)
	}
	if got, want := testutil.ToFloat64(sleepSecondsCounter)-before, 1.5; got != want {
		t.Errorf("slept seconds:\n  got: %v\n want: %v", got, want)
	}
}

func TestRealDelay(t *testing.T) {
	start := time.Now()
	Delay{}.Sleep(20 * time.Millisecond)
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("returned early after %s", elapsed)
	}
}
