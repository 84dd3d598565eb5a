package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

var (
	// ErrUnknownProvider is returned for providers without configuration.
	ErrUnknownProvider = errors.New("llm: unknown provider")
	// ErrNoAPIKey is returned when neither a system nor a user key exists.
	ErrNoAPIKey = errors.New("llm: no API key for provider")
	// ErrEmptyResponse is returned when the provider sends no choices.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Message is one turn of the prompt history.
type Message struct {
	Role    string
	Content string
}

// Request describes one completion call.
type Request struct {
	Provider  string
	Model     string // upstream model name
	Messages  []Message
	APIKey    string // overrides the system key when set
	MaxTokens int
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	ReasoningTokens int
}

// Response is a finished completion.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// UpstreamError wraps a provider failure with its HTTP status when known.
type UpstreamError struct {
	Provider string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client is what the services depend on.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	// Stream calls onDelta for each text chunk and returns the assembled
	// response. An error from onDelta aborts the stream.
	Stream(ctx context.Context, req Request, onDelta func(string) error) (*Response, error)
}

// ProviderConfig holds the endpoint and system key of one provider.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
}

// Config configures a Router.
type Config struct {
	Providers   map[string]ProviderConfig
	Timeout     time.Duration // per attempt, non-streaming only
	MaxAttempts int
	RetryDelay  time.Duration
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// Router dispatches requests to the provider named in the request.
type Router struct {
	cfg Config

	mu      sync.Mutex
	clients map[string]*openai.Client // system-key clients per provider
}

// NewRouter applies defaults: 3 attempts, 1s between attempts, 60s timeout.
func NewRouter(cfg Config) *Router {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	return &Router{cfg: cfg, clients: map[string]*openai.Client{}}
}

// HasSystemKey reports whether the provider can be called without a user key.
func (r *Router) HasSystemKey(provider string) bool {
	p, ok := r.cfg.Providers[provider]
	return ok && strings.TrimSpace(p.APIKey) != ""
}

func (r *Router) client(provider, userKey string) (*openai.Client, error) {
	p, ok := r.cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	key := strings.TrimSpace(userKey)
	if key == "" {
		key = strings.TrimSpace(p.APIKey)
		if key == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoAPIKey, provider)
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
		c := r.newClient(p.BaseURL, key)
		r.clients[provider] = c
		return c, nil
	}
	return r.newClient(p.BaseURL, key), nil
}

func (r *Router) newClient(baseURL, key string) *openai.Client {
	cc := openai.DefaultConfig(key)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	if r.cfg.HTTPClient != nil {
		cc.HTTPClient = r.cfg.HTTPClient
	}
	return openai.NewClientWithConfig(cc)
}

func toOpenAI(req Request, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	out := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return out
}

func usageOf(u openai.Usage) Usage {
	out := Usage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens}
	if u.CompletionTokensDetails != nil {
		out.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return out
}

// Complete performs a non-streaming completion with the fixed-attempt retry.
func (r *Router) Complete(ctx context.Context, req Request) (*Response, error) {
	c, err := r.client(req.Provider, req.APIKey)
	if err != nil {
		return nil, err
	}
	var out *Response
	err = r.doWithRetry(ctx, req.Provider, func() error {
		actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
		resp, err := c.CreateChatCompletion(actx, toOpenAI(req, false))
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return ErrEmptyResponse
		}
		out = &Response{
			Content:      resp.Choices[0].Message.Content,
			FinishReason: string(resp.Choices[0].FinishReason),
			Usage:        usageOf(resp.Usage),
		}
		return nil
	})
	if err != nil {
		return nil, wrapUpstream(req.Provider, err)
	}
	return out, nil
}

// Stream performs a streaming completion. Streams are not retried: once a
// delta reached the client a second attempt would duplicate output.
func (r *Router) Stream(ctx context.Context, req Request, onDelta func(string) error) (*Response, error) {
	c, err := r.client(req.Provider, req.APIKey)
	if err != nil {
		return nil, err
	}
	stream, err := c.CreateChatCompletionStream(ctx, toOpenAI(req, true))
	if err != nil {
		return nil, wrapUpstream(req.Provider, err)
	}
	defer stream.Close()

	var (
		b   strings.Builder
		out Response
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapUpstream(req.Provider, err)
		}
		if chunk.Usage != nil {
			out.Usage = usageOf(*chunk.Usage)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		ch := chunk.Choices[0]
		if ch.FinishReason != "" {
			out.FinishReason = string(ch.FinishReason)
		}
		if ch.Delta.Content == "" {
			continue
		}
		b.WriteString(ch.Delta.Content)
		if err := onDelta(ch.Delta.Content); err != nil {
			return nil, err
		}
	}
	out.Content = b.String()
	return &out, nil
}

// doWithRetry runs fn up to MaxAttempts times with a fixed delay. Client
// errors other than 408 and 429 are returned at once.
func (r *Router) doWithRetry(ctx context.Context, provider string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) || attempt == r.cfg.MaxAttempts {
			break
		}
		r.cfg.Logger.Debug().
			Str("provider", provider).
			Int("attempt", attempt).
			Dur("wait", r.cfg.RetryDelay).
			Err(err).
			Msg("llm request failed, retrying")
		select {
		case <-time.After(r.cfg.RetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch s := statusOf(err); {
	case s == 0:
		return true
	case s == http.StatusRequestTimeout, s == http.StatusTooManyRequests:
		return true
	default:
		return s >= 500
	}
}

func wrapUpstream(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &UpstreamError{Provider: provider, Status: statusOf(err), Err: err}
}

var _ Client = (*Router)(nil)
