package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/llm"
	"github.com/tbourn/llm-chat-backend/internal/services"
)

func TestComplete_StoresBothMessages(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChat("u1")

	w := env.do(http.MethodPost, "/chats/"+ch.ID+"/completions", "u1", CompletionRequest{Content: "hello"})
	expectStatus(t, w, http.StatusOK)
	res := decode[services.CompletionResult](t, w)
	if res.UserMessage == nil || res.UserMessage.Content != "hello" {
		t.Fatalf("user message = %+v", res.UserMessage)
	}
	if res.Message == nil || res.Message.Role != domain.RoleAssistant || res.Message.Content != "hi there" {
		t.Fatalf("reply = %+v", res.Message)
	}
	if res.Message.ParentMessageID == nil || *res.Message.ParentMessageID != res.UserMessage.ID {
		t.Fatalf("reply parent = %v", res.Message.ParentMessageID)
	}
	if res.Usage == nil || res.Usage.DailyUsed != 1 {
		t.Fatalf("usage = %+v", res.Usage)
	}
}

func TestComplete_Validation(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChat("u1")

	expectCode(t, env.do(http.MethodPost, "/chats/"+ch.ID+"/completions", "u1", CompletionRequest{}), http.StatusBadRequest, ErrCodeBadRequest)
	expectCode(t, env.do(http.MethodPost, "/chats/"+ch.ID+"/completions", "u1", CompletionRequest{Content: "x", Model: "ghost"}), http.StatusBadRequest, ErrCodeBadRequest)
	expectCode(t, env.do(http.MethodPost, "/chats/"+ch.ID+"/completions", "u2", CompletionRequest{Content: "x"}), http.StatusNotFound, ErrCodeNotFound)
	if env.llm.callCount() != 0 {
		t.Fatalf("provider called %d times", env.llm.callCount())
	}
}

func TestComplete_DailyLimit(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChat("u1")
	path := "/chats/" + ch.ID + "/completions"

	for i := 0; i < 3; i++ {
		expectStatus(t, env.do(http.MethodPost, path, "u1", CompletionRequest{Content: "q" + strconv.Itoa(i)}), http.StatusOK)
	}
	w := env.do(http.MethodPost, path, "u1", CompletionRequest{Content: "one more"})
	expectCode(t, w, http.StatusTooManyRequests, services.CodeDailyLimit)
	ra, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || ra < 1 || ra > 86400 {
		t.Fatalf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
	if env.llm.callCount() != 3 {
		t.Fatalf("provider calls = %d", env.llm.callCount())
	}
}

func TestComplete_PremiumRequired_UnlessOwnKey(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChat("u1")
	path := "/chats/" + ch.ID + "/completions"

	expectCode(t, env.do(http.MethodPost, path, "u1", CompletionRequest{Content: "x", Model: "pro"}), http.StatusForbidden, services.CodePremiumRequire)

	if _, err := env.svc.APIKeys.Put(context.Background(), "u1", llm.ProviderOpenAI, "sk-test-0123456789abcdef", domain.KeyModeFallback); err != nil {
		t.Fatal(err)
	}
	w := env.do(http.MethodPost, path, "u1", CompletionRequest{Content: "x", Model: "pro"})
	expectStatus(t, w, http.StatusOK)
	res := decode[services.CompletionResult](t, w)
	if !res.Message.Metadata.Data().UserKey || res.Usage != nil {
		t.Fatalf("expected a BYOK reply, got meta=%+v usage=%+v", res.Message.Metadata.Data(), res.Usage)
	}
}

func TestComplete_UpstreamError(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChat("u1")
	env.llm.err = &llm.UpstreamError{Provider: llm.ProviderOpenAI, Status: 500, Err: errors.New("boom")}

	expectCode(t, env.do(http.MethodPost, "/chats/"+ch.ID+"/completions", "u1", CompletionRequest{Content: "x"}), http.StatusBadGateway, ErrCodeUpstream)
}

func TestComplete_IdempotentReplaySkipsProvider(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChat("u1")
	path := "/chats/" + ch.ID + "/completions"

	w1 := env.do(http.MethodPost, path, "u1", CompletionRequest{Content: "x"}, "Idempotency-Key", "c-1")
	expectStatus(t, w1, http.StatusOK)
	first := decode[services.CompletionResult](t, w1)

	w2 := env.do(http.MethodPost, path, "u1", CompletionRequest{Content: "x"}, "Idempotency-Key", "c-1")
	expectStatus(t, w2, http.StatusOK)
	if w2.Header().Get(HeaderIdempotencyReplayed) != "true" {
		t.Fatal("missing replay header")
	}
	again := decode[services.CompletionResult](t, w2)
	if again.Message.ID != first.Message.ID || again.UserMessage == nil || again.UserMessage.ID != first.UserMessage.ID {
		t.Fatalf("replayed %+v want %+v", again, first)
	}
	if again.Chat == nil || again.Chat.ID != ch.ID || again.Usage == nil || again.Usage.DailyUsed != first.Usage.DailyUsed {
		t.Fatalf("replay lost chat or usage: chat=%+v usage=%+v", again.Chat, again.Usage)
	}
	if env.llm.callCount() != 1 {
		t.Fatalf("provider calls = %d", env.llm.callCount())
	}
}

func TestStreamCompletion_DeltasThenDone(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChat("u1")

	w := env.do(http.MethodPost, "/chats/"+ch.ID+"/completions/stream", "u1", CompletionRequest{Content: "hello"})
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type = %q", ct)
	}
	body := w.Body.String()
	if strings.Count(body, "event:delta") != 2 || !strings.Contains(body, "event:done") {
		t.Fatalf("body = %s", body)
	}
	if strings.Index(body, "event:done") < strings.LastIndex(body, "event:delta") {
		t.Fatalf("done before delta: %s", body)
	}

	var n int64
	env.db.Model(&domain.Message{}).Where("chat_id = ? AND role = ?", ch.ID, domain.RoleAssistant).Count(&n)
	if n != 1 {
		t.Fatalf("assistant messages = %d", n)
	}
}

func TestStreamCompletion_EarlyFailureIsJSON(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChat("u1")
	env.llm.err = &llm.UpstreamError{Provider: llm.ProviderOpenAI, Err: errors.New("refused")}

	expectCode(t, env.do(http.MethodPost, "/chats/"+ch.ID+"/completions/stream", "u1", CompletionRequest{Content: "x"}), http.StatusBadGateway, ErrCodeUpstream)
}

func TestStreamCompletion_MidStreamFailureIsEvent(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChat("u1")
	env.llm.err = &llm.UpstreamError{Provider: llm.ProviderOpenAI, Err: errors.New("reset")}
	env.llm.failAfter = 1

	w := env.do(http.MethodPost, "/chats/"+ch.ID+"/completions/stream", "u1", CompletionRequest{Content: "x"})
	expectStatus(t, w, http.StatusOK)
	body := w.Body.String()
	if !strings.Contains(body, "event:delta") || !strings.Contains(body, "event:error") || strings.Contains(body, "event:done") {
		t.Fatalf("body = %s", body)
	}
	if !strings.Contains(body, ErrCodeUpstream) {
		t.Fatalf("error event lacks code: %s", body)
	}
}

func TestRegenerate_AddsSibling(t *testing.T) {
	env := newTestEnv(t)
	ch := env.createChat("u1")

	w := env.do(http.MethodPost, "/chats/"+ch.ID+"/completions", "u1", CompletionRequest{Content: "hello"})
	expectStatus(t, w, http.StatusOK)
	first := decode[services.CompletionResult](t, w)

	env.llm.reply = "second take"
	w = env.do(http.MethodPost, "/chats/"+ch.ID+"/messages/"+first.Message.ID+"/regenerate", "u1", nil)
	expectStatus(t, w, http.StatusCreated)
	again := decode[services.CompletionResult](t, w)
	if again.Message.ID == first.Message.ID || again.Message.Content != "second take" {
		t.Fatalf("regenerated = %+v", again.Message)
	}
	if *again.Message.ParentMessageID != first.UserMessage.ID {
		t.Fatalf("not a sibling: parent %s", *again.Message.ParentMessageID)
	}

	expectCode(t, env.do(http.MethodPost, "/chats/"+ch.ID+"/messages/bad/regenerate", "u1", nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectCode(t, env.do(http.MethodPost, "/chats/"+ch.ID+"/messages/"+first.Message.ID+"/regenerate", "u1", RegenerateRequest{Model: "ghost"}), http.StatusBadRequest, ErrCodeBadRequest)
}
