package menu

import (
	"context"
	"fmt"
	"strings"

	"checkinbot/internal/config"
	"checkinbot/internal/telegram"
)

// Command tags understood by the dispatcher. Callback buttons carry them as
// "cb:<tag>" payloads; slash commands map onto the same tags.
const (
	CmdRoot    = "menu"
	CmdLinks   = "links"
	CmdPayment = "payment"
	CmdHelp    = "help"
)

// Messenger is the outbound surface the menu needs.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
}

// AssetSource resolves the singleton reusable payment image, if set.
type AssetSource interface {
	Asset(ctx context.Context) (string, bool)
}

// Menu is the stateless navigation layer: static button trees, the link
// catalog, and the payment display. It never touches intake sessions.
type Menu struct {
	out      Messenger
	assets   AssetSource
	links    []config.Link
	payment  config.PaymentConfig
	handlers map[string]func(context.Context, int64) error
}

func New(out Messenger, assets AssetSource, links []config.Link, payment config.PaymentConfig) *Menu {
	m := &Menu{out: out, assets: assets, links: links, payment: payment}
	m.handlers = map[string]func(context.Context, int64) error{
		CmdRoot:    m.sendRoot,
		CmdLinks:   m.sendLinks,
		CmdPayment: m.sendPayment,
		CmdHelp:    m.sendHelp,
	}
	return m
}

// Knows reports whether the tag has a handler.
func (m *Menu) Knows(tag string) bool {
	_, ok := m.handlers[tag]
	return ok
}

// Dispatch routes one navigation command to its handler.
func (m *Menu) Dispatch(ctx context.Context, chatID int64, tag string) error {
	handler, ok := m.handlers[tag]
	if !ok {
		return fmt.Errorf("unknown menu command %q", tag)
	}
	return handler(ctx, chatID)
}

func callbackButton(text, tag string) telegram.InlineKeyboardButton {
	return telegram.InlineKeyboardButton{Text: text, CallbackData: "cb:" + tag}
}

func (m *Menu) sendRoot(ctx context.Context, chatID int64) error {
	kb := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{callbackButton("Start check-in", "checkin")},
		{callbackButton("Payment info", CmdPayment)},
		{callbackButton("Links", CmdLinks)},
		{callbackButton("Help", CmdHelp)},
	}}
	return m.out.SendMessage(ctx, chatID, "What would you like to do?", kb)
}

func (m *Menu) sendLinks(ctx context.Context, chatID int64) error {
	if len(m.links) == 0 {
		return m.out.SendMessage(ctx, chatID, "No links configured yet.", nil)
	}
	rows := make([][]telegram.InlineKeyboardButton, 0, len(m.links))
	for _, link := range m.links {
		rows = append(rows, []telegram.InlineKeyboardButton{
			{Text: link.Label, URL: link.URL},
		})
	}
	return m.out.SendMessage(ctx, chatID, "Useful links:", &telegram.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// sendPayment shows the payment addresses, attached to the reusable image
// when the administrator has registered one.
func (m *Menu) sendPayment(ctx context.Context, chatID int64) error {
	var b strings.Builder
	b.WriteString("Payment details:\n")
	if len(m.payment.Addresses) == 0 {
		b.WriteString("not configured yet.")
	}
	for _, addr := range m.payment.Addresses {
		fmt.Fprintf(&b, "%s: %s\n", addr.Label, addr.Value)
	}
	text := strings.TrimRight(b.String(), "\n")

	if fileID, ok := m.assets.Asset(ctx); ok {
		return m.out.SendPhoto(ctx, chatID, fileID, text)
	}
	return m.out.SendMessage(ctx, chatID, text, nil)
}

func (m *Menu) sendHelp(ctx context.Context, chatID int64) error {
	help := strings.Join([]string{
		"/checkin — start a new check-in",
		"/resume — repeat the current question",
		"/cancel — abandon the check-in",
		"/links — useful links",
		"/payment — payment details",
	}, "\n")
	return m.out.SendMessage(ctx, chatID, help, nil)
}
