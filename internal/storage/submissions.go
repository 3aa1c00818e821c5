package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Submission is one archived completed check-in.
type Submission struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Sender    string    `json:"sender"`
	Summary   string    `json:"summary"`
	Photos    []string  `json:"photos"`
	CreatedAt time.Time `json:"created_at"`
}

// Store archives completed submissions so the operator keeps a durable
// record beyond the forwarded message.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveSubmission records one completed check-in.
func (s *Store) SaveSubmission(ctx context.Context, chatID int64, sender, summary string, fileIDs []string) error {
	photos, err := json.Marshal(fileIDs)
	if err != nil {
		return fmt.Errorf("marshal photo list: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, chat_id, sender, summary, photos, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), chatID, sender, summary, string(photos), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// Recent returns the latest submissions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, sender, summary, photos, created_at
		 FROM submissions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		var photos string
		if err := rows.Scan(&sub.ID, &sub.ChatID, &sub.Sender, &sub.Summary, &photos, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := json.Unmarshal([]byte(photos), &sub.Photos); err != nil {
			return nil, fmt.Errorf("decode photo list: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
