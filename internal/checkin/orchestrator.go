package checkin

import (
	"context"
	"log"
	"time"
)

// Sender is the outbound delivery surface the orchestrator needs.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendMediaBatch(ctx context.Context, chatID int64, items []MediaItem) error
}

// Archiver persists completed submissions for the operator. Optional.
type Archiver interface {
	SaveSubmission(ctx context.Context, chatID int64, from, summary string, fileIDs []string) error
}

// Orchestrator glues the store, the state machine and the transport. One
// call per inbound event: load, apply, persist, execute effects in order.
type Orchestrator struct {
	store      *Store
	sender     Sender
	archive    Archiver
	adminChat  int64
	sessionTTL time.Duration
}

// NewOrchestrator wires the intake pipeline. adminChat zero means forwarding
// is disabled; archive may be nil.
func NewOrchestrator(store *Store, sender Sender, archive Archiver, adminChat int64, sessionTTL time.Duration) *Orchestrator {
	if adminChat == 0 {
		log.Printf("checkin: no admin chat configured, completed submissions will NOT be forwarded")
	}
	return &Orchestrator{
		store:      store,
		sender:     sender,
		archive:    archive,
		adminChat:  adminChat,
		sessionTTL: sessionTTL,
	}
}

// HandleEvent processes one inbound event for a chat. It never returns an
// error: delivery and persistence failures are logged, the transport always
// gets its acknowledgment from the caller.
//
// The load-apply-save cycle is not transactional. Two concurrent events for
// the same chat race and the second save wins; this weak consistency is
// accepted and covered by tests rather than hidden behind a lock.
func (o *Orchestrator) HandleEvent(ctx context.Context, chatID int64, from string, ev Event) {
	session := o.store.Load(ctx, chatID)
	next, effects := Apply(session, ev)

	if next.Active() {
		o.store.Save(ctx, chatID, next, o.sessionTTL)
	} else {
		o.store.Delete(ctx, chatID)
	}

	for _, eff := range effects {
		switch eff.Kind {
		case EffectSendText:
			if err := o.sender.SendText(ctx, chatID, eff.Text); err != nil {
				log.Printf("checkin: send to chat %d failed: %v", chatID, err)
			}
		case EffectSubmissionReady:
			o.forward(ctx, chatID, from, eff.Submission)
		}
	}
}

// forward delivers the assembled submission to the admin chat. At-most-once:
// the user was already told the intake is complete and the session is gone,
// so a delivery failure here is logged and dropped, never retried.
func (o *Orchestrator) forward(ctx context.Context, chatID int64, from string, sub *Submission) {
	if sub == nil {
		return
	}
	asm := Assemble(chatID, from, sub)

	if o.adminChat == 0 {
		log.Printf("checkin: dropping completed submission from chat %d, no admin chat", chatID)
	} else {
		if err := o.sender.SendText(ctx, o.adminChat, asm.Summary); err != nil {
			log.Printf("checkin: forward summary for chat %d failed: %v", chatID, err)
		}
		if err := o.sender.SendMediaBatch(ctx, o.adminChat, asm.Media); err != nil {
			log.Printf("checkin: forward photos for chat %d failed: %v", chatID, err)
		}
	}

	if o.archive != nil {
		fileIDs := make([]string, len(sub.Photos))
		for i, p := range sub.Photos {
			fileIDs[i] = p.FileID
		}
		if err := o.archive.SaveSubmission(ctx, chatID, from, asm.Summary, fileIDs); err != nil {
			log.Printf("checkin: archive submission for chat %d failed: %v", chatID, err)
		}
	}
}
