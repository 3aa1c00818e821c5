package checkin

import (
	"fmt"
	"time"
)

// EventKind classifies one inbound event for the state machine.
type EventKind string

const (
	EventStart  EventKind = "start"
	EventCancel EventKind = "cancel"
	EventResume EventKind = "resume"
	EventText   EventKind = "text"
	EventPhoto  EventKind = "photo"
)

// MediaRef points at an uploaded photo. Valid is false when the inbound item
// has no usable photo reference (e.g. an image sent as a document).
type MediaRef struct {
	FileID string
	Valid  bool
}

// Event is one inbound user action.
type Event struct {
	Kind  EventKind
	Text  string
	Media MediaRef
}

// EffectKind tags an outbound action produced by a transition.
type EffectKind string

const (
	// EffectSendText asks the orchestrator to send Text to the user.
	EffectSendText EffectKind = "send_text"
	// EffectSubmissionReady carries the finalized intake exactly once,
	// when the last photo slot is filled.
	EffectSubmissionReady EffectKind = "submission_ready"
)

// Effect is an outbound action. The state machine never performs I/O; the
// orchestrator executes effects in order.
type Effect struct {
	Kind       EffectKind
	Text       string
	Submission *Submission
}

// Submission is the finalized set of answers and ordered photos.
type Submission struct {
	Answers map[string]string
	Photos  []Photo
}

func sendText(format string, args ...interface{}) Effect {
	return Effect{Kind: EffectSendText, Text: fmt.Sprintf(format, args...)}
}

func photoPrompt(index int) string {
	return fmt.Sprintf("Please send the %s photo (%d/%d).",
		PhotoSlots[index], index+1, len(PhotoSlots))
}

// Apply runs one event against the session and returns the new session plus
// the outbound effects. It is a pure function: no I/O, no mutation of the
// input (answers and photos are copied before change).
func Apply(s Session, ev Event) (Session, []Effect) {
	switch ev.Kind {
	case EventStart:
		return applyStart()
	case EventCancel:
		return applyCancel(s)
	case EventResume:
		return applyResume(s)
	case EventText:
		return applyText(s, ev.Text)
	case EventPhoto:
		return applyPhoto(s, ev.Media)
	default:
		return s, nil
	}
}

func applyStart() (Session, []Effect) {
	next := Session{
		Mode:      ModeCollecting,
		Answers:   make(map[string]string),
		StartedAt: time.Now().UTC(),
	}
	return next, []Effect{
		sendText("Starting a new check-in. You can send /cancel at any time."),
		sendText("%s", Questions[0].Prompt),
	}
}

func applyCancel(s Session) (Session, []Effect) {
	if !s.Active() {
		return NewSession(), []Effect{sendText("Nothing to cancel — no check-in in progress.")}
	}
	return NewSession(), []Effect{sendText("Check-in cancelled. Send /checkin to start over.")}
}

func applyResume(s Session) (Session, []Effect) {
	switch {
	case !s.Active():
		return s, []Effect{sendText("No active check-in. Send /checkin to start one.")}
	case s.CollectingPhotos:
		return s, []Effect{sendText("%s", photoPrompt(s.PhotoIndex))}
	default:
		return s, []Effect{sendText("%s", Questions[s.StepIndex].Prompt)}
	}
}

func applyText(s Session, text string) (Session, []Effect) {
	if !s.Active() {
		// No active intake: free text is ignored here, navigation owns it.
		return s, nil
	}
	if s.CollectingPhotos {
		return s, []Effect{sendText("We're collecting photos now. %s", photoPrompt(s.PhotoIndex))}
	}

	next := s
	next.Answers = make(map[string]string, len(s.Answers)+1)
	for k, v := range s.Answers {
		next.Answers[k] = v
	}
	next.Answers[Questions[s.StepIndex].Key] = text
	next.StepIndex++

	if next.StepIndex < len(Questions) {
		return next, []Effect{sendText("%s", Questions[next.StepIndex].Prompt)}
	}

	next.CollectingPhotos = true
	next.PhotoIndex = 0
	return next, []Effect{
		sendText("All questions answered. Now the photos — three in total. %s", photoPrompt(0)),
	}
}

func applyPhoto(s Session, ref MediaRef) (Session, []Effect) {
	if !s.Active() {
		return s, nil
	}
	if !s.CollectingPhotos {
		return s, []Effect{sendText(
			"We're still on question %d. %s A photo comes later.",
			s.StepIndex+1, Questions[s.StepIndex].Prompt)}
	}
	if !ref.Valid {
		return s, []Effect{sendText("Please send it as a photo, not as a file.")}
	}

	next := s
	next.Photos = make([]Photo, len(s.Photos), len(s.Photos)+1)
	copy(next.Photos, s.Photos)
	next.Photos = append(next.Photos, Photo{Slot: PhotoSlots[s.PhotoIndex], FileID: ref.FileID})

	if s.PhotoIndex < len(PhotoSlots)-1 {
		next.PhotoIndex++
		return next, []Effect{sendText(
			"%s photo received. %s", PhotoSlots[s.PhotoIndex], photoPrompt(next.PhotoIndex))}
	}

	sub := &Submission{Answers: next.Answers, Photos: next.Photos}
	return NewSession(), []Effect{
		sendText("%s photo received. That's everything — your check-in is complete. Thank you!",
			PhotoSlots[s.PhotoIndex]),
		{Kind: EffectSubmissionReady, Submission: sub},
	}
}
