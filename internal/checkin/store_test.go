package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"checkinbot/internal/redis"
)

// fakeKV implements KV in memory and can be switched into a failing state to
// simulate an unreachable backend.
type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	failing bool
}

var errKVDown = errors.New("kv backend down")

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) setFailing(failing bool) {
	f.mu.Lock()
	f.failing = failing
	f.mu.Unlock()
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errKVDown
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return "", errKVDown
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errKVDown
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func TestStoreLoadMissReturnsIdle(t *testing.T) {
	store := NewStore(newFakeKV())
	s := store.Load(context.Background(), 1)
	if s.Active() {
		t.Fatalf("miss should return idle session: %+v", s)
	}
	if store.Degraded() {
		t.Fatalf("miss is not a degradation")
	}
}

func TestStoreMalformedBlobReturnsIdle(t *testing.T) {
	kv := newFakeKV()
	kv.data[sessionKey(1)] = "{not json"
	store := NewStore(kv)

	s := store.Load(context.Background(), 1)
	if s.Active() {
		t.Fatalf("malformed blob should degrade to idle: %+v", s)
	}
}

func TestStoreInconsistentBlobReturnsIdle(t *testing.T) {
	blobs := map[string]string{
		"question cursor out of range": `{"mode":"collecting","step_index":99}`,
		"photo cursor out of range":    `{"mode":"collecting","collecting_photos":true,"photo_index":9}`,
		"photos ahead of cursor":       `{"mode":"collecting","collecting_photos":true,"photo_index":0,"photos":[{"slot":"Front","file_id":"f"}]}`,
		"photos during questions":      `{"mode":"collecting","step_index":1,"photos":[{"slot":"Front","file_id":"f"}]}`,
		"unknown mode":                 `{"mode":"archived"}`,
	}
	for name, blob := range blobs {
		kv := newFakeKV()
		kv.data[sessionKey(1)] = blob
		store := NewStore(kv)

		s := store.Load(context.Background(), 1)
		if s.Active() {
			t.Fatalf("%s: should reset to idle, got %+v", name, s)
		}
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(newFakeKV())
	ctx := context.Background()

	in := Session{
		Mode:      ModeCollecting,
		StepIndex: 3,
		Answers:   map[string]string{"name": "Jo"},
		StartedAt: time.Now().UTC(),
	}
	store.Save(ctx, 1, in, time.Hour)

	out := store.Load(ctx, 1)
	if out.Mode != ModeCollecting || out.StepIndex != 3 || out.Answers["name"] != "Jo" {
		t.Fatalf("round trip lost data: %+v", out)
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store := NewStore(newFakeKV())
	ctx := context.Background()

	store.Save(ctx, 1, Session{Mode: ModeCollecting}, time.Hour)
	store.Delete(ctx, 1)
	store.Delete(ctx, 1) // second delete must not fail

	if store.Load(ctx, 1).Active() {
		t.Fatalf("session survived delete")
	}
}

func TestStoreDegradesToMemoryAndRecovers(t *testing.T) {
	kv := newFakeKV()
	store := NewStore(kv)
	ctx := context.Background()

	kv.setFailing(true)
	store.Save(ctx, 1, Session{Mode: ModeCollecting, StepIndex: 2}, time.Hour)
	if !store.Degraded() {
		t.Fatalf("store should report degraded after backend failure")
	}
	// State is still served from memory while degraded.
	if s := store.Load(ctx, 1); !s.Active() || s.StepIndex != 2 {
		t.Fatalf("degraded load lost state: %+v", s)
	}

	kv.setFailing(false)
	store.Save(ctx, 1, Session{Mode: ModeCollecting, StepIndex: 5}, time.Hour)
	if store.Degraded() {
		t.Fatalf("store should recover after successful write")
	}
	if s := store.Load(ctx, 1); s.StepIndex != 5 {
		t.Fatalf("post-recovery load = %+v", s)
	}
}

func TestStoreMemorySessionSurvivesRecovery(t *testing.T) {
	kv := newFakeKV()
	store := NewStore(kv)
	ctx := context.Background()

	// Session written while the backend is down lands in memory only.
	kv.setFailing(true)
	store.Save(ctx, 1, Session{Mode: ModeCollecting, StepIndex: 4}, time.Hour)

	// Backend comes back empty: the miss must not shadow the memory copy.
	kv.setFailing(false)
	s := store.Load(ctx, 1)
	if !s.Active() || s.StepIndex != 4 {
		t.Fatalf("memory session lost after backend recovery: %+v", s)
	}
}

func TestStoreNilBackendIsMemoryOnly(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	if !store.Degraded() {
		t.Fatalf("nil backend store should start degraded")
	}
	store.Save(ctx, 9, Session{Mode: ModeCollecting}, time.Hour)
	if !store.Load(ctx, 9).Active() {
		t.Fatalf("memory-only store lost session")
	}
	store.Delete(ctx, 9)
	if store.Load(ctx, 9).Active() {
		t.Fatalf("memory-only delete failed")
	}
}

func TestStoreAsset(t *testing.T) {
	store := NewStore(newFakeKV())
	ctx := context.Background()

	if _, ok := store.Asset(ctx); ok {
		t.Fatalf("asset should be unset initially")
	}
	if err := store.SetAsset(ctx, "file-123"); err != nil {
		t.Fatalf("set asset: %v", err)
	}
	fileID, ok := store.Asset(ctx)
	if !ok || fileID != "file-123" {
		t.Fatalf("asset = %q, %v", fileID, ok)
	}
}
