// Package clock abstracts wall time so quota day boundaries are testable.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystem returns a Clock backed by the wall clock, in UTC.
func NewSystem() Clock { return systemClock{} }
