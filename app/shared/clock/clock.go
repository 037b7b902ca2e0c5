package clock

import "time"

// Clock abstracts wall-clock time so time-bounded transitions can be tested
// deterministically.
type Clock interface {
	Now() time.Time
	NowUTC() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NowUTC() time.Time { return time.Now().UTC() }

// FakeClock is a test Clock. Unset functions fall back to the real clock.
type FakeClock struct {
	NowFn    func() time.Time
	NowUTCFn func() time.Time
}

func (f *FakeClock) Now() time.Time {
	if f.NowFn != nil {
		return f.NowFn()
	}
	return time.Now()
}

func (f *FakeClock) NowUTC() time.Time {
	if f.NowUTCFn != nil {
		return f.NowUTCFn()
	}
	if f.NowFn != nil {
		return f.NowFn().UTC()
	}
	return time.Now().UTC()
}

// At returns a FakeClock frozen at t.
func At(t time.Time) *FakeClock {
	return &FakeClock{NowFn: func() time.Time { return t }}
}
