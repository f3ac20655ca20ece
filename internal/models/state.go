// Package models defines session state structures handed to rendering surfaces.
package models

// StateType is the coarse workflow state of a session.
type StateType string

const (
	// StateIdle means no generation is in flight.
	StateIdle StateType = "idle"
	// StateBusy means a generation request is in flight.
	StateBusy StateType = "busy"
)

// Session is a point-in-time copy of the workflow state.
// It never aliases the workflow's internal slices or pointers. Version grows with
// every state change, so a larger Version is always the newer state.
type Session struct {
	Version uint64     `json:"version"`
	Prompt  string     `json:"prompt"`
	Busy    bool       `json:"busy"`
	State   StateType  `json:"state"`
	Current *Artifact  `json:"current,omitempty"`
	History []Artifact `json:"history"`
}

// HasResult reports whether the session currently shows a generated image.
func (s Session) HasResult() bool {
	return s.Current != nil
}

// Latest returns the newest history entry, if any.
func (s Session) Latest() (Artifact, bool) {
	if len(s.History) == 0 {
		return Artifact{}, false
	}
	return s.History[0], true
}
