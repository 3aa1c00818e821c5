package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"checkinbot/internal/redis"
)

const (
	sessionKeyPrefix = "checkin:session:"
	assetKey         = "checkin:asset:paypal"
)

// KV is the slice of the redis client the store needs.
type KV interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Store maps chat IDs to serialized sessions, with expiry. When the backing
// store is unreachable it degrades to an in-memory map: state then no longer
// survives a restart, but no store call ever fails the request. Callers can
// inspect the degradation through Degraded.
type Store struct {
	kv KV

	mu       sync.Mutex
	memory   map[int64]Session
	memAsset string
	degraded bool
}

// NewStore builds a session store over the given key-value client. A nil
// client yields a store that is memory-only from the start.
func NewStore(kv KV) *Store {
	s := &Store{kv: kv, memory: make(map[int64]Session)}
	if kv == nil {
		s.degraded = true
		log.Printf("checkin store: no key-value backend, sessions are in-memory only")
	}
	return s
}

// Degraded reports whether the store is currently operating without its
// durable backend.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Store) markDegraded(op string, err error) {
	s.mu.Lock()
	flipped := !s.degraded
	s.degraded = true
	s.mu.Unlock()
	if flipped {
		log.Printf("checkin store degraded to in-memory after %s: %v", op, err)
	}
}

func (s *Store) markHealthy() {
	s.mu.Lock()
	flipped := s.degraded && s.kv != nil
	if s.kv != nil {
		s.degraded = false
	}
	s.mu.Unlock()
	if flipped {
		log.Printf("checkin store backend recovered")
	}
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, chatID)
}

// Load returns the session for chatID. A missing or malformed entry yields a
// fresh idle session, never an error.
func (s *Store) Load(ctx context.Context, chatID int64) Session {
	if s.kv != nil {
		raw, err := s.kv.Get(ctx, sessionKey(chatID))
		switch {
		case err == nil:
			s.markHealthy()
			var sess Session
			if jsonErr := json.Unmarshal([]byte(raw), &sess); jsonErr != nil {
				log.Printf("checkin store: malformed session for chat %d, resetting: %v", chatID, jsonErr)
				return NewSession()
			}
			if sess.Mode == "" {
				sess.Mode = ModeIdle
			}
			if !sess.consistent() {
				log.Printf("checkin store: inconsistent session for chat %d, resetting", chatID)
				return NewSession()
			}
			return sess
		case errors.Is(err, redis.ErrCacheMiss):
			// A miss can shadow a session written to memory during a
			// degraded period, so fall through to the memory map.
			s.markHealthy()
		default:
			s.markDegraded("load", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.memory[chatID]; ok {
		return sess
	}
	return NewSession()
}

// Save overwrites the session for chatID and resets its expiry. Best-effort:
// a backend failure degrades to memory instead of returning an error.
func (s *Store) Save(ctx context.Context, chatID int64, sess Session, ttl time.Duration) {
	if s.kv != nil {
		data, err := json.Marshal(sess)
		if err != nil {
			log.Printf("checkin store: marshal session for chat %d: %v", chatID, err)
		} else if err := s.kv.Set(ctx, sessionKey(chatID), data, ttl); err != nil {
			s.markDegraded("save", err)
		} else {
			s.markHealthy()
			s.mu.Lock()
			delete(s.memory, chatID)
			s.mu.Unlock()
			return
		}
	}

	s.mu.Lock()
	s.memory[chatID] = sess
	s.mu.Unlock()
}

// Delete removes the session for chatID. Deleting a missing session is not
// an error.
func (s *Store) Delete(ctx context.Context, chatID int64) {
	if s.kv != nil {
		if err := s.kv.Del(ctx, sessionKey(chatID)); err != nil && !errors.Is(err, redis.ErrCacheMiss) {
			s.markDegraded("delete", err)
		} else {
			s.markHealthy()
		}
	}
	s.mu.Lock()
	delete(s.memory, chatID)
	s.mu.Unlock()
}

// SetAsset stores the singleton reusable asset reference, with no expiry.
func (s *Store) SetAsset(ctx context.Context, fileID string) error {
	if s.kv != nil {
		if err := s.kv.Set(ctx, assetKey, fileID, 0); err != nil {
			s.markDegraded("set asset", err)
		} else {
			s.markHealthy()
			return nil
		}
	}
	s.mu.Lock()
	s.memAsset = fileID
	s.mu.Unlock()
	return nil
}

// Asset returns the stored reusable asset reference, if any.
func (s *Store) Asset(ctx context.Context) (string, bool) {
	if s.kv != nil {
		raw, err := s.kv.Get(ctx, assetKey)
		switch {
		case err == nil:
			s.markHealthy()
			return raw, raw != ""
		case errors.Is(err, redis.ErrCacheMiss):
			// Same as Load: the asset may live only in memory after a
			// degraded write.
			s.markHealthy()
		default:
			s.markDegraded("get asset", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memAsset, s.memAsset != ""
}
