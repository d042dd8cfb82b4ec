// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package contact

// State is the UI state of a contact form.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
