// Package services – ChatService
//
// ChatService owns chat metadata: titles, pinning, model and system prompt
// overrides, branching, recency grouping, search and cascading deletes.
// Message level work lives in MessageService.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/search"
	"github.com/tbourn/llm-chat-backend/internal/storage"
	"github.com/tbourn/llm-chat-backend/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChatRepo is the subset of chat queries ChatService goes through an
// interface for, so list and title paths can be tested without a database.
type ChatRepo interface {
	CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error)
	ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error)
	GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error)
	UpdateChatTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error
	CountChats(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error)
}

type ChatService struct {
	DB     *gorm.DB
	Repo   ChatRepo
	Titles Titles

	// Storage receives deletes for the attachments of removed chats; nil
	// leaves objects in place.
	Storage storage.Storage
	// Models validates model overrides. Nil accepts any id.
	Models ModelCatalog
	// MaxSystemPromptRunes caps stored system prompts (0 = 8000).
	MaxSystemPromptRunes int
}

// ModelCatalog reports whether a model id is offered.
type ModelCatalog interface {
	Known(id string) bool
}

// NewChatService returns a ChatService using r for the basic chat queries.
func NewChatService(db *gorm.DB, r ChatRepo) *ChatService {
	return &ChatService{DB: db, Repo: r}
}

// Create inserts a chat for userID. A blank title becomes "New chat".
func (s *ChatService) Create(ctx context.Context, userID, title string) (*domain.Chat, error) {
	return s.Repo.CreateChat(ctx, s.DB, userID, s.Titles.Clean(title, titleNew))
}

// List returns every chat of userID in sidebar order.
func (s *ChatService) List(ctx context.Context, userID string) ([]domain.Chat, error) {
	return s.Repo.ListChats(ctx, s.DB, userID)
}

// ListPage returns one page of chats plus the total. page < 1 reads the
// first page and pageSize <= 0 means 20.
func (s *ChatService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Chat, int64, error) {
	total, err := s.Repo.CountChats(ctx, s.DB, userID)
	if err != nil || total == 0 {
		return []domain.Chat{}, total, err
	}
	offset, limit := pageWindow(page, pageSize)
	items, err := s.Repo.ListChatsPage(ctx, s.DB, userID, offset, limit)
	return items, total, err
}

// UpdateTitle renames an owned chat. A blank title becomes "Untitled".
func (s *ChatService) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	if _, err := s.Repo.GetChat(ctx, s.DB, chatID, userID); err != nil {
		if isNotFound(err) {
			return ErrChatNotFound
		}
		return err
	}
	return s.Repo.UpdateChatTitle(ctx, s.DB, chatID, userID, s.Titles.Clean(title, titleUntitled))
}

// NewChat carries the optional fields accepted at creation.
type NewChat struct {
	Title        string
	Model        string
	SystemPrompt string
}

// CreateWith inserts a chat with an optional model and system prompt.
func (s *ChatService) CreateWith(ctx context.Context, userID string, in NewChat) (*domain.Chat, error) {
	if in.Model == "" && in.SystemPrompt == "" {
		return s.Create(ctx, userID, in.Title)
	}
	if err := s.checkModel(in.Model); err != nil {
		return nil, err
	}
	sp, err := s.checkSystemPrompt(in.SystemPrompt)
	if err != nil {
		return nil, err
	}
	c := &domain.Chat{
		UserID:       userID,
		Title:        s.Titles.Clean(in.Title, titleNew),
		Model:        strings.TrimSpace(in.Model),
		SystemPrompt: sp,
	}
	if err := repo.InsertChat(ctx, s.DB, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns an owned chat.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	c, err := s.Repo.GetChat(ctx, s.DB, chatID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return c, nil
}

// ChatPatch lists the mutable chat fields; nil pointers are left untouched.
type ChatPatch struct {
	Title        *string
	Pinned       *bool
	Model        *string
	SystemPrompt *string
}

// Patch applies a partial update to an owned chat and returns the result.
// Pinning stamps pinned_at so that recently pinned chats sort first.
func (s *ChatService) Patch(ctx context.Context, userID, chatID string, p ChatPatch) (*domain.Chat, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Patch", trace.WithAttributes(
		attribute.String("chat.id", chatID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	fields := map[string]any{}
	if p.Title != nil {
		fields["title"] = s.Titles.Clean(*p.Title, titleUntitled)
	}
	if p.Pinned != nil {
		fields["is_pinned"] = *p.Pinned
		if *p.Pinned {
			fields["pinned_at"] = time.Now().UTC()
		} else {
			fields["pinned_at"] = nil
		}
	}
	if p.Model != nil {
		m := strings.TrimSpace(*p.Model)
		if err := s.checkModel(m); err != nil {
			return nil, err
		}
		fields["model"] = m
	}
	if p.SystemPrompt != nil {
		sp, err := s.checkSystemPrompt(*p.SystemPrompt)
		if err != nil {
			return nil, err
		}
		fields["system_prompt"] = sp
	}

	if len(fields) > 0 {
		if err := repo.UpdateChatFields(ctx, s.DB, chatID, userID, fields); err != nil {
			if isNotFound(err) {
				return nil, ErrChatNotFound
			}
			return nil, err
		}
	}
	return s.Get(ctx, userID, chatID)
}

// Delete removes an owned chat with its messages, feedback, attachments,
// shares and idempotency records in one transaction. Stored attachment
// objects are deleted after commit; failures there are logged, not returned.
func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("chat.id", chatID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	var keys []string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		keys, err = repo.DeleteChat(ctx, tx, chatID, userID)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return ErrChatNotFound
		}
		return err
	}
	span.SetAttributes(attribute.Int("attachments.deleted", len(keys)))
	deleteObjects(ctx, s.Storage, keys)
	return nil
}

// deleteObjects best-effort removes stored objects.
func deleteObjects(ctx context.Context, st storage.Storage, keys []string) {
	if st == nil {
		return
	}
	for _, k := range keys {
		if err := st.Delete(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("storage_key", k).Msg("attachment object delete failed")
		}
	}
}

// Branch copies the thread ending at messageID into a new chat owned by the
// same user. The new chat keeps title, model and system prompt and points
// back at its source; copied messages get fresh ids with remapped parents
// and their original timestamps.
func (s *ChatService) Branch(ctx context.Context, userID, chatID, messageID string) (*domain.Chat, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Branch", trace.WithAttributes(
		attribute.String("chat.id", chatID),
		attribute.String("message.id", messageID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	var out *domain.Chat
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := ownedChat(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}
		chain, err := repo.AncestorChain(ctx, tx, chatID, messageID)
		if err != nil {
			return mapThreadErr(err)
		}

		parent, from := src.ID, messageID
		c := &domain.Chat{
			UserID:                userID,
			Title:                 src.Title,
			Model:                 src.Model,
			SystemPrompt:          src.SystemPrompt,
			ParentChatID:          &parent,
			BranchedFromMessageID: &from,
		}
		if err := repo.InsertChat(ctx, tx, c); err != nil {
			return err
		}
		if _, err := repo.CopyChain(ctx, tx, c.ID, chain); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ChatGroup is one section of the grouped chat listing.
type ChatGroup struct {
	Group string        `json:"group"`
	Chats []domain.Chat `json:"chats"`
}

// GroupPinned is the section holding pinned chats, listed before the time groups.
const GroupPinned = "Pinned"

// ListGrouped returns all chats of a user bucketed by last activity relative
// to now: pinned chats first, then Today, Yesterday, Last 7 Days, Last 30
// Days and Older. Empty groups are omitted; order inside a group follows the
// regular listing order.
func (s *ChatService) ListGrouped(ctx context.Context, userID string, now time.Time) ([]ChatGroup, error) {
	chats, err := s.Repo.ListChats(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	byGroup := map[string][]domain.Chat{}
	for _, c := range chats {
		g := GroupPinned
		if !c.IsPinned {
			g = string(utils.GroupByTime(c.UpdatedAt, now))
		}
		byGroup[g] = append(byGroup[g], c)
	}

	order := make([]string, 0, len(utils.TimeGroups)+1)
	order = append(order, GroupPinned)
	for _, g := range utils.TimeGroups {
		order = append(order, string(g))
	}
	out := make([]ChatGroup, 0, len(order))
	for _, g := range order {
		if cs := byGroup[g]; len(cs) > 0 {
			out = append(out, ChatGroup{Group: g, Chats: cs})
		}
	}
	return out, nil
}

// SearchHit is one chat matching a search, with the best matching excerpt.
type SearchHit struct {
	Chat      domain.Chat `json:"chat"`
	MessageID string      `json:"message_id,omitempty"`
	Snippet   string      `json:"snippet"`
	Score     float64     `json:"score"`
}

// Search ranks the user's chats against q using a transient index over chat
// titles and message contents. At most one hit per chat is returned.
func (s *ChatService) Search(ctx context.Context, userID, q string, limit int) ([]SearchHit, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Search", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("limit", limit),
	))
	defer span.End()

	q = strings.TrimSpace(q)
	if q == "" {
		return []SearchHit{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	chats, err := s.Repo.ListChats(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return []SearchHit{}, nil
	}
	byID := make(map[string]domain.Chat, len(chats))
	docs := make([]search.Document, 0, len(chats)*4)
	for _, c := range chats {
		byID[c.ID] = c
		docs = append(docs, search.Document{ID: c.ID, ChatID: c.ID, Text: c.Title, Title: true})
	}

	var msgs []struct {
		ID      string
		ChatID  string
		Content string
	}
	err = s.DB.WithContext(ctx).
		Model(&domain.Message{}).
		Select("messages.id, messages.chat_id, messages.content").
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("chats.user_id = ? AND messages.role <> ?", userID, domain.RoleSystem).
		Scan(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		docs = append(docs, search.Document{ID: m.ID, ChatID: m.ChatID, Text: m.Content})
	}

	idx := search.New(docs, search.WithStopwords(searchStopwords), search.WithSnippetRunes(120))
	ranked := search.BestPerChat(idx.Search(q, limit*5), limit)

	out := make([]SearchHit, 0, len(ranked))
	for _, r := range ranked {
		h := SearchHit{Chat: byID[r.ChatID], Snippet: r.Snippet, Score: r.Score}
		if r.DocID != r.ChatID {
			h.MessageID = r.DocID
		}
		out = append(out, h)
	}
	span.SetAttributes(attribute.Int("hits", len(out)))
	return out, nil
}

// searchStopwords are ignored in chat search.
var searchStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "in", "is",
	"it", "of", "on", "or", "that", "the", "this", "to", "was", "with",
}

func (s *ChatService) checkModel(id string) error {
	if id == "" || s.Models == nil || s.Models.Known(id) {
		return nil
	}
	return ErrUnknownModel
}

func (s *ChatService) checkSystemPrompt(sp string) (string, error) {
	sp = strings.TrimSpace(sp)
	max := s.MaxSystemPromptRunes
	if max <= 0 {
		max = 8000
	}
	if utf8.RuneCountInString(sp) > max {
		return "", ErrTooLong
	}
	return sp, nil
}

// mapThreadErr converts repository threading errors to service errors.
func mapThreadErr(err error) error {
	switch {
	case isNotFound(err):
		return ErrMessageNotFound
	case errors.Is(err, repo.ErrThreadCycle), errors.Is(err, repo.ErrCrossChatParent):
		return ErrThreadBroken
	}
	return err
}

// pageWindow turns a 1-based page into an offset and limit, defaulting to
// the first page of 20.
func pageWindow(page, size int) (offset, limit int) {
	if size <= 0 {
		size = 20
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * size, size
}
