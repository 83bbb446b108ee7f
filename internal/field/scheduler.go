package field

import "time"

// Timer is a cancellable scheduled task. *time.Timer satisfies it.
type Timer interface {
	// Stop prevents the task from running. It returns false if the task
	// already ran or was already stopped.
	Stop() bool
}

// Scheduler runs f once after d elapses, on its own goroutine.
// The default implementation is backed by time.AfterFunc; tests inject a
// manual scheduler to fire tasks deterministically.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
