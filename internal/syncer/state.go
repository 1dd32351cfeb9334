package syncer

import "time"

// Status is the persistence state of the open note.
type Status int

const (
	StatusIdle Status = iota
	StatusUnsaved
	StatusSaving
	StatusSaved
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnsaved:
		return "unsaved"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is what a sync indicator renders.
type State struct {
	Status      Status    `json:"status"`
	LastSavedAt time.Time `json:"last_saved_at,omitzero"`
}

// Label returns the short indicator text for the state.
func (s State) Label() string {
	switch s.Status {
	case StatusSaving:
		return "Saving..."
	case StatusUnsaved:
		return "Unsaved"
	case StatusSaved:
		if s.LastSavedAt.IsZero() {
			return "Saved"
		}
		return "Saved " + s.LastSavedAt.Local().Format("15:04")
	case StatusError:
		return "Save failed"
	default:
		return ""
	}
}

// MarshalText renders the status by name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
