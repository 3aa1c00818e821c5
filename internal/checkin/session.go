package checkin

import "time"

// Mode tells whether a chat has an intake in flight.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeCollecting Mode = "collecting"
)

// Photo binds one uploaded media reference to the slot it fills.
type Photo struct {
	Slot   string `json:"slot"`
	FileID string `json:"file_id"`
}

// Session is the persisted progress record for one in-flight intake. At most
// one exists per chat. StepIndex is only meaningful while CollectingPhotos is
// false, PhotoIndex only once it is true.
type Session struct {
	Mode             Mode              `json:"mode"`
	StepIndex        int               `json:"step_index"`
	Answers          map[string]string `json:"answers,omitempty"`
	CollectingPhotos bool              `json:"collecting_photos"`
	PhotoIndex       int               `json:"photo_index"`
	Photos           []Photo           `json:"photos,omitempty"`
	StartedAt        time.Time         `json:"started_at,omitempty"`
}

// NewSession returns an empty idle session.
func NewSession() Session {
	return Session{Mode: ModeIdle}
}

// Active reports whether an intake is in progress.
func (s Session) Active() bool {
	return s.Mode == ModeCollecting
}

// consistent reports whether the cursors respect the catalog bounds and the
// phase invariants. A stored blob can predate a catalog change or arrive
// corrupted; an inconsistent one must be treated like malformed data, never
// handed to the state machine.
func (s Session) consistent() bool {
	if s.Mode != ModeCollecting {
		return s.Mode == ModeIdle
	}
	if s.CollectingPhotos {
		return s.PhotoIndex >= 0 && s.PhotoIndex < len(PhotoSlots) &&
			len(s.Photos) == s.PhotoIndex
	}
	return s.StepIndex >= 0 && s.StepIndex < len(Questions) && len(s.Photos) == 0
}
