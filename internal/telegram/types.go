package telegram

import "strings"

// Update mirrors one inbound webhook payload from the Bot API.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type Message struct {
	MessageID int64       `json:"message_id"`
	From      *User       `json:"from,omitempty"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
	Document  *Document   `json:"document,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// PhotoSize is one resolution variant of a received photo.
type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size,omitempty"`
}

type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from,omitempty"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// LargestPhoto returns the file_id of the highest-resolution variant.
func (m *Message) LargestPhoto() (string, bool) {
	if m == nil || len(m.Photo) == 0 {
		return "", false
	}
	best := m.Photo[0]
	for _, p := range m.Photo[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best.FileID, true
}

// IsCommand reports whether the message text is a bot command.
func (m *Message) IsCommand() bool {
	return m != nil && strings.HasPrefix(m.Text, "/")
}

// Command returns the command name without the leading slash or a
// trailing @botname suffix, plus the remainder of the line.
func (m *Message) Command() (string, string) {
	if !m.IsCommand() {
		return "", ""
	}
	text := strings.TrimPrefix(m.Text, "/")
	cmd, arg, _ := strings.Cut(text, " ")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

// SenderName renders the message author for display: the @username when
// present, otherwise the first name.
func (m *Message) SenderName() string {
	if m == nil || m.From == nil {
		return "unknown"
	}
	if m.From.Username != "" {
		return "@" + m.From.Username
	}
	if m.From.FirstName != "" {
		return m.From.FirstName
	}
	return "unknown"
}

// Outbound reply markup.

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// InputMediaPhoto is one item of an outbound media group.
type InputMediaPhoto struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}
