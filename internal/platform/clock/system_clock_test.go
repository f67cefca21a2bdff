package clock

import (
	"testing"
	"time"
)

func TestSystemClock_NeverGoesBackwards(t *testing.T) {
	t.Parallel()

	readings := []time.Time{
		time.Unix(100, 0),
		time.Unix(90, 0),
		time.Unix(110, 0),
	}
	i := 0
	c := &SystemClock{now: func() time.Time {
		r := readings[i]
		i++
		return r
	}}

	if got := c.Now(); !got.Equal(time.Unix(100, 0)) {
		t.Fatalf("Now()=%v, want 100s", got)
	}
	if got := c.Now(); !got.Equal(time.Unix(100, 0)) {
		t.Fatalf("Now() after step back=%v, want 100s", got)
	}
	got := c.Now()
	if !got.Equal(time.Unix(110, 0)) {
		t.Fatalf("Now()=%v, want 110s", got)
	}
	if got.Location() != time.UTC {
		t.Fatalf("Now() location=%v, want UTC", got.Location())
	}
}
