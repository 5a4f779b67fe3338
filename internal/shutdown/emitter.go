package shutdown

import "errors"

// UI event names.
const (
	EventTriggerShutdown = "trigger-shutdown"
	EventShutdownStatus  = "update-shutdown-status"
)

// Emitter delivers a one-way event to the UI.
type Emitter interface {
	Emit(event, message string) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(event, message string) error

// Emit calls f(event, message).
func (f EmitterFunc) Emit(event, message string) error {
	return f(event, message)
}

// multiEmitter fans an event out to several emitters.
type multiEmitter []Emitter

// Multi returns an Emitter delivering to every non-nil emitter. All emitters
// are tried; their errors are joined.
func Multi(emitters ...Emitter) Emitter {
	var m multiEmitter
	for _, e := range emitters {
		if e != nil {
			m = append(m, e)
		}
	}
	return m
}

func (m multiEmitter) Emit(event, message string) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(event, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
