package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/llm"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/storage"
)

// ----- storage -----

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	url     string
}

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: map[string][]byte{}} }

func (f *fakeStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *fakeStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.url == "" {
		return "", storage.ErrNoDirectURL
	}
	return f.url + "/" + key, nil
}

// ----- llm -----

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	chunks   []string
	err      error
	requests []llm.Request
}

func (f *fakeLLM) record(req llm.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *fakeLLM) last() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.record(req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply, Usage: llm.Usage{InputTokens: 11, OutputTokens: 7}}, nil
}

func (f *fakeLLM) Stream(_ context.Context, req llm.Request, onDelta func(string) error) (*llm.Response, error) {
	f.record(req)
	if f.err != nil {
		return nil, f.err
	}
	var all string
	for _, c := range f.chunks {
		if err := onDelta(c); err != nil {
			return nil, err
		}
		all += c
	}
	return &llm.Response{Content: all, Usage: llm.Usage{InputTokens: 3, OutputTokens: len(f.chunks)}}, nil
}

type fakeSystemKeys map[string]bool

func (f fakeSystemKeys) HasSystemKey(p string) bool { return f[p] }

// ----- seeding -----

func seedChat(t *testing.T, db *gorm.DB, userID, title string) *domain.Chat {
	t.Helper()
	c, err := repo.CreateChat(context.Background(), db, userID, title)
	if err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	return c
}

// seedMsg inserts a message with an explicit timestamp offset so ordering
// is deterministic.
func seedMsg(t *testing.T, db *gorm.DB, chatID, role, content string, parent *string, at time.Time) *domain.Message {
	t.Helper()
	m, err := repo.CreateMessage(context.Background(), db, &domain.Message{
		ID:              uuid.NewString(),
		ChatID:          chatID,
		Role:            role,
		Content:         content,
		ParentMessageID: parent,
		CreatedAt:       at,
	})
	if err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return m
}

// dbChatRepo routes the ChatRepo contract to the real repository functions.
type dbChatRepo struct{}

func (dbChatRepo) CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error) {
	return repo.CreateChat(ctx, db, userID, title)
}
func (dbChatRepo) ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	return repo.ListChats(ctx, db, userID)
}
func (dbChatRepo) GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	return repo.GetChat(ctx, db, id, userID)
}
func (dbChatRepo) UpdateChatTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	return repo.UpdateChatTitle(ctx, db, id, userID, title)
}
func (dbChatRepo) CountChats(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountChats(ctx, db, userID)
}
func (dbChatRepo) ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	return repo.ListChatsPage(ctx, db, userID, offset, limit)
}

type fakeCatalog map[string]bool

func (f fakeCatalog) Known(id string) bool { return f[id] }
