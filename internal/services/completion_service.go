// Package services – CompletionService
//
// CompletionService proxies a chat turn to an LLM provider: it resolves the
// model and the key to use (system key under the usage gate, or the user's
// own key), stores the user message, replays the thread as history, calls
// the provider and stores the assistant reply with its token accounting.
// Non-streaming answers are cached by a digest of model and history.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/cache"
	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/llm"
	"github.com/tbourn/llm-chat-backend/internal/observability"
	"github.com/tbourn/llm-chat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SystemKeys reports whether the deployment holds a key for a provider.
type SystemKeys interface {
	HasSystemKey(provider string) bool
}

// CompletionService runs chat completions.
type CompletionService struct {
	DB       *gorm.DB
	LLM      llm.Client
	Keys     SystemKeys
	Models   *llm.Registry
	Usage    *UsageService
	UserKeys *APIKeyService // nil disables BYOK
	Messages *MessageService

	Cache     cache.Cache // nil disables caching
	CacheTTL  time.Duration
	MaxTokens int
}

// CompletionRequest is one user turn.
type CompletionRequest struct {
	Content  string
	Parts    []domain.Part
	ParentID *string
	Model    string
}

// CompletionResult holds the stored user and assistant messages. Usage is
// nil when the call ran on the user's own key.
type CompletionResult struct {
	UserMessage *domain.Message `json:"user_message,omitempty"`
	Message     *domain.Message `json:"message"`
	Chat        *domain.Chat    `json:"chat,omitempty"`
	Usage       *UsageSnapshot  `json:"usage,omitempty"`
}

// plan is the resolved routing for one call.
type plan struct {
	model   llm.Model
	userKey string
	usage   *UsageSnapshot
}

// Complete answers a new user message without streaming. Identical
// histories on the same model are served from the cache when configured.
func (s *CompletionService) Complete(ctx context.Context, who Identity, chatID string, req CompletionRequest) (*CompletionResult, error) {
	return s.run(ctx, "Complete", who, chatID, req, nil)
}

// Stream answers a new user message, forwarding text chunks to onDelta as
// they arrive. The caller's context cancels the upstream request.
func (s *CompletionService) Stream(ctx context.Context, who Identity, chatID string, req CompletionRequest, onDelta func(string) error) (*CompletionResult, error) {
	if onDelta == nil {
		onDelta = func(string) error { return nil }
	}
	return s.run(ctx, "Stream", who, chatID, req, onDelta)
}

func (s *CompletionService) run(ctx context.Context, op string, who Identity, chatID string, req CompletionRequest, onDelta func(string) error) (*CompletionResult, error) {
	tr := otel.Tracer("services/CompletionService")
	ctx, span := tr.Start(ctx, op, trace.WithAttributes(
		attribute.String("chat.id", chatID),
		attribute.String("user.id", who.UserID),
	))
	defer span.End()

	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyPrompt
	}
	chat, err := ownedChat(ctx, s.DB, chatID, who.UserID)
	if err != nil {
		return nil, err
	}
	turn := NewMessage{Content: req.Content, Parts: req.Parts, ParentID: req.ParentID}
	if err := s.Messages.Validate(ctx, chatID, turn); err != nil {
		return nil, err
	}
	model, err := s.resolveModel(ctx, who.UserID, req.Model, chat.Model)
	if err != nil {
		return nil, err
	}
	p, err := s.route(ctx, who, model)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("model.id", model.ID),
		attribute.String("model.provider", model.Provider),
		attribute.Bool("byok", p.userKey != ""),
	)

	userMsg, chat, err := s.Messages.Append(ctx, who.UserID, chatID, turn)
	if err != nil {
		return nil, err
	}

	reply, err := s.answer(ctx, chat, userMsg.ID, p, onDelta, onDelta == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &CompletionResult{UserMessage: userMsg, Message: reply, Chat: chat, Usage: p.usage}, nil
}

// Regenerate produces a new assistant reply as a sibling of the existing
// ones. messageID may name the user message or one of its replies; earlier
// replies are kept. The cache is bypassed so that a fresh answer is drawn.
func (s *CompletionService) Regenerate(ctx context.Context, who Identity, chatID, messageID, modelID string) (*CompletionResult, error) {
	tr := otel.Tracer("services/CompletionService")
	ctx, span := tr.Start(ctx, "Regenerate", trace.WithAttributes(
		attribute.String("chat.id", chatID),
		attribute.String("message.id", messageID),
	))
	defer span.End()

	chat, err := ownedChat(ctx, s.DB, chatID, who.UserID)
	if err != nil {
		return nil, err
	}
	target, err := repo.GetChatMessage(ctx, s.DB, chatID, messageID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	prompt := target
	if target.Role == domain.RoleAssistant {
		if target.ParentMessageID == nil {
			return nil, ErrNotRegenerable
		}
		prompt, err = repo.GetChatMessage(ctx, s.DB, chatID, *target.ParentMessageID)
		if err != nil {
			return nil, ErrNotRegenerable
		}
		if modelID == "" {
			modelID = target.Metadata.Data().Model
		}
	}
	if prompt.Role != domain.RoleUser {
		return nil, ErrNotRegenerable
	}

	model, err := s.resolveModel(ctx, who.UserID, modelID, chat.Model)
	if err != nil {
		return nil, err
	}
	p, err := s.route(ctx, who, model)
	if err != nil {
		return nil, err
	}
	reply, err := s.answer(ctx, chat, prompt.ID, p, nil, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &CompletionResult{UserMessage: prompt, Message: reply, Usage: p.usage}, nil
}

// Replay rebuilds the result of an earlier call from its stored reply so
// that a repeated request gets the body of the first one. Usage reports the
// counters as they stand now.
func (s *CompletionService) Replay(ctx context.Context, who Identity, chatID, replyID string) (*CompletionResult, error) {
	tr := otel.Tracer("services/CompletionService")
	ctx, span := tr.Start(ctx, "Replay", trace.WithAttributes(
		attribute.String("chat.id", chatID),
		attribute.String("message.id", replyID),
	))
	defer span.End()

	chat, err := ownedChat(ctx, s.DB, chatID, who.UserID)
	if err != nil {
		return nil, err
	}
	reply, err := repo.GetChatMessage(ctx, s.DB, chatID, replyID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	res := &CompletionResult{Message: reply, Chat: chat}
	if reply.ParentMessageID != nil {
		prompt, err := repo.GetChatMessage(ctx, s.DB, chatID, *reply.ParentMessageID)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		res.UserMessage = prompt
	}
	if !reply.Metadata.Data().UserKey && s.Usage != nil {
		if res.Usage, err = s.Usage.Usage(ctx, who); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// resolveModel picks the requested model, else the chat's model, else the
// user's preferred default, else the registry default. Only an explicitly
// requested unknown id is an error.
func (s *CompletionService) resolveModel(ctx context.Context, userID, requested, chatModel string) (llm.Model, error) {
	if requested = strings.TrimSpace(requested); requested != "" {
		m, ok := s.Models.Lookup(requested)
		if !ok {
			return llm.Model{}, ErrUnknownModel
		}
		return m, nil
	}
	var pref string
	if u, err := repo.GetUser(ctx, s.DB, userID); err == nil {
		pref = u.Preferences.Data().DefaultModel
	}
	return s.Models.Resolve(chatModel, pref), nil
}

// route decides which key pays for the call:
//   - a user key in priority mode is always used and consumes no quota;
//   - without a system key for the provider, a user key is required;
//   - otherwise the usage gate runs, and a user key in fallback mode takes
//     over only when the gate rejects the call.
func (s *CompletionService) route(ctx context.Context, who Identity, model llm.Model) (plan, error) {
	p := plan{model: model}
	uk, err := s.UserKeys.Resolve(ctx, who.UserID, model.Provider)
	if err != nil {
		return p, err
	}
	hasSystem := s.Keys != nil && s.Keys.HasSystemKey(model.Provider)

	switch {
	case uk != nil && uk.Mode == domain.KeyModePriority:
		p.userKey = uk.Key
	case !hasSystem && uk != nil:
		p.userKey = uk.Key
	case !hasSystem:
		return p, ErrProviderUnavailable
	default:
		snap, err := s.Usage.CheckAndConsume(ctx, who, model.Premium)
		if err != nil {
			if uk != nil && errors.Is(err, ErrLimitReached) {
				p.userKey = uk.Key
				return p, nil
			}
			return p, err
		}
		p.usage = snap
	}
	return p, nil
}

// answer builds the history ending at promptID, calls the provider (or the
// cache) and stores the reply under promptID.
func (s *CompletionService) answer(ctx context.Context, chat *domain.Chat, promptID string, p plan, onDelta func(string) error, useCache bool) (*domain.Message, error) {
	chain, err := repo.AncestorChain(ctx, s.DB, chat.ID, promptID)
	if err != nil {
		return nil, mapThreadErr(err)
	}
	history := s.history(ctx, chat, chain)

	meta := domain.MessageMetadata{
		Model:    p.model.ID,
		Provider: p.model.Provider,
		UserKey:  p.userKey != "",
	}
	log := zerolog.Ctx(ctx).With().Str("chat_id", chat.ID).Str("model", p.model.ID).Logger()

	var cacheKey string
	if useCache && s.Cache != nil {
		cacheKey = completionCacheKey(p.model.ID, history)
		if v, hit, err := s.Cache.Get(ctx, cacheKey); err != nil {
			log.Warn().Err(err).Msg("completion cache read failed")
		} else if hit {
			meta.Cached = true
			observability.ObserveLLM(p.model.Provider, p.model.ID, observability.OutcomeCached, 0, 0, 0)
			return s.Messages.AddAssistant(ctx, chat.ID, promptID, string(v), nil, meta)
		}
	}

	req := llm.Request{
		Provider:  p.model.Provider,
		Model:     p.model.Upstream,
		Messages:  history,
		APIKey:    p.userKey,
		MaxTokens: s.MaxTokens,
	}
	start := time.Now()
	var resp *llm.Response
	if onDelta != nil {
		resp, err = s.LLM.Stream(ctx, req, onDelta)
	} else {
		resp, err = s.LLM.Complete(ctx, req)
	}
	if err != nil {
		observability.ObserveLLM(p.model.Provider, p.model.ID, observability.OutcomeError, 0, 0, 0)
		if errors.Is(err, llm.ErrNoAPIKey) || errors.Is(err, llm.ErrUnknownProvider) {
			return nil, ErrProviderUnavailable
		}
		return nil, err
	}
	meta.DurationMs = time.Since(start).Milliseconds()
	meta.InputTokens = resp.Usage.InputTokens
	meta.OutputTokens = resp.Usage.OutputTokens
	meta.ReasoningTokens = resp.Usage.ReasoningTokens
	observability.ObserveLLM(p.model.Provider, p.model.ID, observability.OutcomeOK,
		resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.ReasoningTokens)

	if cacheKey != "" && resp.Content != "" {
		if err := s.Cache.Set(ctx, cacheKey, []byte(resp.Content), s.CacheTTL); err != nil {
			log.Warn().Err(err).Msg("completion cache write failed")
		}
	}
	// A cancelled stream may still deliver the reply; store it detached from
	// the request so that it is not lost with the client.
	return s.Messages.AddAssistant(context.WithoutCancel(ctx), chat.ID, promptID, resp.Content, nil, meta)
}

// history converts a chain into provider messages, prefixed by the user's
// custom instructions and the chat's system prompt.
func (s *CompletionService) history(ctx context.Context, chat *domain.Chat, chain []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(chain)+2)
	if u, err := repo.GetUser(ctx, s.DB, chat.UserID); err == nil {
		if ci := strings.TrimSpace(u.Preferences.Data().CustomInstructions); ci != "" {
			out = append(out, llm.Message{Role: domain.RoleSystem, Content: ci})
		}
	}
	if sp := strings.TrimSpace(chat.SystemPrompt); sp != "" {
		out = append(out, llm.Message{Role: domain.RoleSystem, Content: sp})
	}
	for _, m := range chain {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func completionCacheKey(model string, history []llm.Message) string {
	parts := make([]string, 0, 1+2*len(history))
	parts = append(parts, model)
	for _, m := range history {
		parts = append(parts, m.Role, m.Content)
	}
	return cache.Key(parts...)
}
