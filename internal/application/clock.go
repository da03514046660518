package application

import "time"

// Clock abstraction so TTL arithmetic is deterministic in tests
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
