package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"checkinbot/internal/checkin"
	"checkinbot/internal/config"
	"checkinbot/internal/menu"
	"checkinbot/internal/storage"
	"checkinbot/internal/telegram"
	"checkinbot/internal/worker"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// botSender adapts the telegram client to the intake orchestrator's
// outbound surface.
type botSender struct {
	client *telegram.Client
}

func (b botSender) SendText(ctx context.Context, chatID int64, text string) error {
	return b.client.SendMessage(ctx, chatID, text, nil)
}

func (b botSender) SendMediaBatch(ctx context.Context, chatID int64, items []checkin.MediaItem) error {
	media := make([]telegram.InputMediaPhoto, len(items))
	for i, item := range items {
		media[i] = telegram.InputMediaPhoto{Type: "photo", Media: item.FileID, Caption: item.Caption}
	}
	return b.client.SendMediaGroup(ctx, chatID, media)
}

// Handler wires the webhook route to the intake orchestrator, the menu
// dispatcher and the admin actions.
type Handler struct {
	cfg      *config.Config
	client   *telegram.Client
	sessions *checkin.Store
	intake   *checkin.Orchestrator
	menus    *menu.Menu
	archive  *storage.Store
	dispatch *worker.Dispatcher
}

// NewHandler constructs a Handler instance. archive may be nil when no
// database is configured.
func NewHandler(cfg *config.Config, client *telegram.Client, sessions *checkin.Store, archive *storage.Store) *Handler {
	sender := botSender{client: client}
	ttl := time.Duration(cfg.BasicConfig.SessionTTLMinutes) * time.Minute

	var archiver checkin.Archiver
	if archive != nil {
		archiver = archive
	}

	return &Handler{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		intake:   checkin.NewOrchestrator(sessions, sender, archiver, cfg.Telegram.AdminChatID, ttl),
		menus:    menu.New(client, sessions, cfg.Links, cfg.Payment),
		archive:  archive,
		dispatch: worker.NewDispatcher(worker.DispatcherConfig{
			MinWorkers:        cfg.BasicConfig.MinWorkers,
			MaxWorkers:        cfg.BasicConfig.MaxWorkers,
			QueueSize:         cfg.BasicConfig.QueueSize,
			WorkerIdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
		}),
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.health)
	router.POST("/webhook", h.handleWebhook)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"store_degraded": h.sessions.Degraded(),
	})
}

// handleWebhook acknowledges every well-addressed delivery with 200: the
// webhook transport has no useful retry semantics, so internal failures are
// logged and swallowed rather than bounced.
func (h *Handler) handleWebhook(c *gin.Context) {
	if secret := h.cfg.Telegram.WebhookSecret; secret != "" && c.GetHeader(secretHeader) != secret {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad secret token"})
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Printf("webhook: undecodable update: %v", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if job, ok := h.classify(update); ok {
		if err := h.dispatch.Submit(job); err != nil {
			log.Printf("webhook: dropping update %d: %v", update.UpdateID, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// classify turns one update into a dispatchable job. The returned job runs
// on the worker pool with a fresh context, since the webhook request context
// ends at the 200 response.
func (h *Handler) classify(update telegram.Update) (worker.Job, bool) {
	switch {
	case update.CallbackQuery != nil:
		return h.classifyCallback(update.CallbackQuery)
	case update.Message != nil:
		return h.classifyMessage(update.Message)
	default:
		return worker.Job{}, false
	}
}

func (h *Handler) classifyCallback(cq *telegram.CallbackQuery) (worker.Job, bool) {
	if cq.Message == nil {
		return worker.Job{}, false
	}
	chatID := cq.Message.Chat.ID
	from := "unknown"
	if cq.From != nil {
		from = (&telegram.Message{From: cq.From}).SenderName()
	}
	data := cq.Data

	return worker.Job{ChatID: chatID, Run: func() {
		ctx := context.Background()
		if err := h.client.AnswerCallbackQuery(ctx, cq.ID); err != nil {
			log.Printf("webhook: answer callback %s: %v", cq.ID, err)
		}
		tag, ok := strings.CutPrefix(data, "cb:")
		if !ok {
			return
		}
		if tag == "checkin" {
			h.intake.HandleEvent(ctx, chatID, from, checkin.Event{Kind: checkin.EventStart})
			return
		}
		if h.menus.Knows(tag) {
			if err := h.menus.Dispatch(ctx, chatID, tag); err != nil {
				log.Printf("webhook: menu dispatch %q: %v", tag, err)
			}
		}
	}}, true
}

func (h *Handler) classifyMessage(m *telegram.Message) (worker.Job, bool) {
	chatID := m.Chat.ID
	from := m.SenderName()

	if h.isAssetCapture(m) {
		return worker.Job{ChatID: chatID, Run: func() { h.captureAsset(m) }}, true
	}

	if m.IsCommand() {
		cmd, _ := m.Command()
		return worker.Job{ChatID: chatID, Run: func() { h.runCommand(chatID, from, cmd) }}, true
	}

	var ev checkin.Event
	switch {
	case len(m.Photo) > 0:
		fileID, _ := m.LargestPhoto()
		ev = checkin.Event{Kind: checkin.EventPhoto, Media: checkin.MediaRef{FileID: fileID, Valid: true}}
	case m.Document != nil:
		// An image shipped as a document has no usable photo reference.
		ev = checkin.Event{Kind: checkin.EventPhoto, Media: checkin.MediaRef{}}
	case m.Text != "":
		ev = checkin.Event{Kind: checkin.EventText, Text: m.Text}
	default:
		return worker.Job{}, false
	}

	return worker.Job{ChatID: chatID, Run: func() {
		h.intake.HandleEvent(context.Background(), chatID, from, ev)
	}}, true
}

// isAssetCapture matches the admin-only privileged action: the administrator
// sends a photo whose caption is exactly the reserved marker.
func (h *Handler) isAssetCapture(m *telegram.Message) bool {
	admin := h.cfg.Telegram.AdminChatID
	return admin != 0 &&
		m.From != nil && m.From.ID == admin &&
		len(m.Photo) > 0 &&
		m.Caption == h.cfg.Telegram.AssetMarker
}

func (h *Handler) captureAsset(m *telegram.Message) {
	ctx := context.Background()
	fileID, ok := m.LargestPhoto()
	if !ok {
		return
	}
	if err := h.sessions.SetAsset(ctx, fileID); err != nil {
		log.Printf("webhook: store asset: %v", err)
		return
	}
	if err := h.client.SendMessage(ctx, m.Chat.ID, "Payment image saved.", nil); err != nil {
		log.Printf("webhook: confirm asset: %v", err)
	}
}

func (h *Handler) runCommand(chatID int64, from, cmd string) {
	ctx := context.Background()
	switch cmd {
	case "start", "menu":
		if err := h.menus.Dispatch(ctx, chatID, menu.CmdRoot); err != nil {
			log.Printf("webhook: menu root: %v", err)
		}
	case "checkin":
		h.intake.HandleEvent(ctx, chatID, from, checkin.Event{Kind: checkin.EventStart})
	case "cancel":
		h.intake.HandleEvent(ctx, chatID, from, checkin.Event{Kind: checkin.EventCancel})
	case "resume":
		h.intake.HandleEvent(ctx, chatID, from, checkin.Event{Kind: checkin.EventResume})
	case "links", "payment", "help":
		if err := h.menus.Dispatch(ctx, chatID, cmd); err != nil {
			log.Printf("webhook: menu %q: %v", cmd, err)
		}
	case "submissions":
		h.sendRecentSubmissions(ctx, chatID)
	default:
		if err := h.client.SendMessage(ctx, chatID, "Unknown command. Try /help.", nil); err != nil {
			log.Printf("webhook: unknown-command reply: %v", err)
		}
	}
}

// sendRecentSubmissions is admin-only: the archive can contain personal data.
func (h *Handler) sendRecentSubmissions(ctx context.Context, chatID int64) {
	if chatID != h.cfg.Telegram.AdminChatID {
		return
	}
	if h.archive == nil {
		if err := h.client.SendMessage(ctx, chatID, "Submission archive is not configured.", nil); err != nil {
			log.Printf("webhook: archive reply: %v", err)
		}
		return
	}
	subs, err := h.archive.Recent(ctx, 5)
	if err != nil {
		log.Printf("webhook: list submissions: %v", err)
		return
	}
	if len(subs) == 0 {
		if err := h.client.SendMessage(ctx, chatID, "No submissions yet.", nil); err != nil {
			log.Printf("webhook: archive reply: %v", err)
		}
		return
	}
	var b strings.Builder
	b.WriteString("Recent submissions:\n")
	for _, sub := range subs {
		fmt.Fprintf(&b, "%s — %s (chat %d), %d photos\n",
			sub.CreatedAt.Format("2006-01-02 15:04"), sub.Sender, sub.ChatID, len(sub.Photos))
	}
	if err := h.client.SendMessage(ctx, chatID, strings.TrimRight(b.String(), "\n"), nil); err != nil {
		log.Printf("webhook: archive reply: %v", err)
	}
}
