package checkin

import (
	"fmt"
	"strings"
	"testing"
)

func startedSession(t *testing.T) Session {
	t.Helper()
	s, _ := Apply(NewSession(), Event{Kind: EventStart})
	if !s.Active() || s.StepIndex != 0 || s.CollectingPhotos {
		t.Fatalf("start did not produce fresh collecting session: %+v", s)
	}
	return s
}

func answerAll(t *testing.T, s Session) Session {
	t.Helper()
	for i := range Questions {
		var effs []Effect
		s, effs = Apply(s, Event{Kind: EventText, Text: fmt.Sprintf("answer-%d", i)})
		if len(effs) == 0 {
			t.Fatalf("answer %d produced no prompt", i)
		}
	}
	return s
}

func hasSubmission(effs []Effect) *Submission {
	for _, e := range effs {
		if e.Kind == EffectSubmissionReady {
			return e.Submission
		}
	}
	return nil
}

func TestIdleIgnoresTextAndPhoto(t *testing.T) {
	idle := NewSession()
	for _, ev := range []Event{
		{Kind: EventText, Text: "hello"},
		{Kind: EventPhoto, Media: MediaRef{FileID: "X", Valid: true}},
	} {
		next, effs := Apply(idle, ev)
		if next.Active() || len(next.Answers) != 0 || len(next.Photos) != 0 {
			t.Fatalf("idle session mutated by %s: %+v", ev.Kind, next)
		}
		if hasSubmission(effs) != nil {
			t.Fatalf("idle %s produced a submission", ev.Kind)
		}
	}
}

func TestAnswerSequenceEntersPhotoPhase(t *testing.T) {
	s := answerAll(t, startedSession(t))

	if !s.CollectingPhotos || s.PhotoIndex != 0 {
		t.Fatalf("expected photo phase after all answers: %+v", s)
	}
	if len(s.Answers) != len(Questions) {
		t.Fatalf("expected %d answers, got %d", len(Questions), len(s.Answers))
	}
	for i, q := range Questions {
		if got := s.Answers[q.Key]; got != fmt.Sprintf("answer-%d", i) {
			t.Fatalf("answer for %q = %q", q.Key, got)
		}
	}
}

func TestPhotoDuringQuestionsIsRejected(t *testing.T) {
	s := startedSession(t)
	next, effs := Apply(s, Event{Kind: EventPhoto, Media: MediaRef{FileID: "X", Valid: true}})

	if next.StepIndex != 0 || next.PhotoIndex != 0 || len(next.Photos) != 0 {
		t.Fatalf("early photo mutated session: %+v", next)
	}
	if len(effs) != 1 || !strings.Contains(effs[0].Text, "question 1") {
		t.Fatalf("expected reminder naming question 1, got %+v", effs)
	}
}

func TestTextDuringPhotosIsRejected(t *testing.T) {
	s := answerAll(t, startedSession(t))
	answers := len(s.Answers)

	next, effs := Apply(s, Event{Kind: EventText, Text: "stray"})
	if next.StepIndex != s.StepIndex || len(next.Answers) != answers {
		t.Fatalf("stray text mutated session: %+v", next)
	}
	if len(effs) != 1 || !strings.Contains(effs[0].Text, PhotoSlots[0]) {
		t.Fatalf("expected reminder naming the %s slot, got %+v", PhotoSlots[0], effs)
	}
}

func TestInvalidMediaDoesNotAdvanceSlot(t *testing.T) {
	s := answerAll(t, startedSession(t))
	next, effs := Apply(s, Event{Kind: EventPhoto, Media: MediaRef{}})

	if next.PhotoIndex != 0 || len(next.Photos) != 0 {
		t.Fatalf("invalid media advanced the slot cursor: %+v", next)
	}
	if len(effs) != 1 || !strings.Contains(effs[0].Text, "not as a file") {
		t.Fatalf("expected file rejection message, got %+v", effs)
	}
}

func TestThreePhotosCompleteInSlotOrder(t *testing.T) {
	s := answerAll(t, startedSession(t))

	var sub *Submission
	for i, fileID := range []string{"A", "B", "C"} {
		var effs []Effect
		s, effs = Apply(s, Event{Kind: EventPhoto, Media: MediaRef{FileID: fileID, Valid: true}})
		if got := hasSubmission(effs); got != nil {
			if i != len(PhotoSlots)-1 {
				t.Fatalf("submission emitted early at photo %d", i)
			}
			sub = got
		}
	}

	if s.Active() {
		t.Fatalf("session not cleared after final photo: %+v", s)
	}
	if sub == nil {
		t.Fatalf("no submission emitted")
	}
	want := []Photo{{"Front", "A"}, {"Rear", "B"}, {"Side", "C"}}
	if len(sub.Photos) != len(want) {
		t.Fatalf("photo count = %d", len(sub.Photos))
	}
	for i, p := range want {
		if sub.Photos[i] != p {
			t.Fatalf("photo %d = %+v, want %+v", i, sub.Photos[i], p)
		}
	}
	if len(sub.Answers) != len(Questions) {
		t.Fatalf("submission answers = %d", len(sub.Answers))
	}
}

func TestCancelFromAnyPhase(t *testing.T) {
	// Cancel during questions.
	s := startedSession(t)
	next, effs := Apply(s, Event{Kind: EventCancel})
	if next.Active() {
		t.Fatalf("cancel left active session: %+v", next)
	}
	if len(effs) != 1 || !strings.Contains(effs[0].Text, "cancelled") {
		t.Fatalf("expected cancelled message, got %+v", effs)
	}

	// Cancel during photos.
	s = answerAll(t, startedSession(t))
	next, _ = Apply(s, Event{Kind: EventCancel})
	if next.Active() {
		t.Fatalf("cancel during photos left active session: %+v", next)
	}

	// Cancel with nothing in flight.
	next, effs = Apply(NewSession(), Event{Kind: EventCancel})
	if next.Active() {
		t.Fatalf("idle cancel created a session: %+v", next)
	}
	if len(effs) != 1 || !strings.Contains(effs[0].Text, "Nothing to cancel") {
		t.Fatalf("expected nothing-to-cancel message, got %+v", effs)
	}
}

func TestResumeRepromptsWithoutMutation(t *testing.T) {
	// Idle resume never creates a session.
	next, effs := Apply(NewSession(), Event{Kind: EventResume})
	if next.Active() {
		t.Fatalf("idle resume created a session")
	}
	if len(effs) != 1 || !strings.Contains(effs[0].Text, "No active check-in") {
		t.Fatalf("expected no-active message, got %+v", effs)
	}

	// Resume mid-questions re-sends the exact current prompt.
	s := startedSession(t)
	s, _ = Apply(s, Event{Kind: EventText, Text: "first"})
	next, effs = Apply(s, Event{Kind: EventResume})
	if next.StepIndex != s.StepIndex || len(next.Answers) != len(s.Answers) {
		t.Fatalf("resume mutated session: %+v", next)
	}
	if len(effs) != 1 || effs[0].Text != Questions[1].Prompt {
		t.Fatalf("resume prompt = %+v, want %q", effs, Questions[1].Prompt)
	}

	// Resume mid-photos names the outstanding slot.
	s = answerAll(t, startedSession(t))
	s, _ = Apply(s, Event{Kind: EventPhoto, Media: MediaRef{FileID: "A", Valid: true}})
	_, effs = Apply(s, Event{Kind: EventResume})
	if len(effs) != 1 || !strings.Contains(effs[0].Text, PhotoSlots[1]) {
		t.Fatalf("expected prompt for %s slot, got %+v", PhotoSlots[1], effs)
	}
}

func TestStartResetsEarlierProgress(t *testing.T) {
	s := startedSession(t)
	s, _ = Apply(s, Event{Kind: EventText, Text: "something"})

	s, effs := Apply(s, Event{Kind: EventStart})
	if s.StepIndex != 0 || len(s.Answers) != 0 || len(s.Photos) != 0 || s.CollectingPhotos {
		t.Fatalf("restart did not reset progress: %+v", s)
	}
	if len(effs) == 0 || effs[len(effs)-1].Text != Questions[0].Prompt {
		t.Fatalf("restart did not send first prompt: %+v", effs)
	}
}

func TestFullScenario(t *testing.T) {
	// Start, 7 answers, 3 photos: exactly one submission with everything.
	s := startedSession(t)
	for range Questions {
		s, _ = Apply(s, Event{Kind: EventText, Text: "7"})
	}

	submissions := 0
	for _, fileID := range []string{"A", "B", "C"} {
		var effs []Effect
		s, effs = Apply(s, Event{Kind: EventPhoto, Media: MediaRef{FileID: fileID, Valid: true}})
		if hasSubmission(effs) != nil {
			submissions++
		}
	}
	if submissions != 1 {
		t.Fatalf("expected exactly one submission, got %d", submissions)
	}
	if s.Active() {
		t.Fatalf("session survived completion: %+v", s)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := startedSession(t)
	s, _ = Apply(s, Event{Kind: EventText, Text: "kept"})
	key := Questions[0].Key

	Apply(s, Event{Kind: EventText, Text: "overwritten"})
	if s.Answers[key] != "kept" {
		t.Fatalf("Apply mutated the input session answers: %q", s.Answers[key])
	}
}
