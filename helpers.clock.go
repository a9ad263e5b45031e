package main

import (
	"time"

	"go.uber.org/zap/zapcore"
)

var (
	_ Clocker       = (*Clock)(nil)  // ensure Clock implements Clocker.
	_ zapcore.Clock = (*Clock)(nil)  // ensure Clock can timestamp logs.
	_ Clocker       = ClockFunc(nil) // ensure ClockFunc implements Clocker.
)

// Clocker is an interface for getting current real time.
type Clocker interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clocker interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time {
	return f()
}

// Clock implements the Clocker interface and zapcore.Clock so the
// same timezone rules apply to stored timestamps and to log entries.
type Clock struct {
	tz *time.Location
}

// NewClock returns a ready to use Clock with timezone sets
// to UTC in production environment and Local in dev env.
func NewClock(isProd bool) *Clock {
	if isProd {
		return &Clock{time.UTC}
	}
	return &Clock{time.Local}
}

// Now provides current clock time.
func (ck *Clock) Now() time.Time {
	return time.Now().In(ck.tz)
}

// NewTicker returns a standard ticker, required by zapcore.Clock.
func (ck *Clock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}
