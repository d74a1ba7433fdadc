// Package summarizer fills article excerpts with short summaries made by
// OpenAI chat completions.
package summarizer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/template"

	"github.com/Semior001/newsagg/app/store"
	cache "github.com/go-pkgz/expirable-cache/v2"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/exp/slog"
)

//go:embed data/prompt.tmpl
var prompt string

var promptTmpl = template.Must(template.New("prompt").Parse(prompt))

//go:generate moq -out mock_openai_client.go . OpenAIClient

// OpenAIClient is interface for OpenAI client with the possibility to mock it
type OpenAIClient interface {
	CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// maxRequestTokens is a maximum number of tokens that can be sent to OpenAI.
const maxRequestTokens = 4097

var (
	// ErrTooManyTokens is returned when article is too long.
	ErrTooManyTokens = errors.New("too many tokens")
	// ErrNoChoices is returned when the response has no completions.
	ErrNoChoices = errors.New("no choices in response")
)

// ChatGPT summarizes articles via OpenAI chat completions.
type ChatGPT struct {
	log       *slog.Logger
	cl        OpenAIClient
	maxTokens int
	cache     cache.Cache[string, string]
}

// NewChatGPT creates new ChatGPT summarizer.
func NewChatGPT(lg *slog.Logger, cl *http.Client, token string, maxTokens int) *ChatGPT {
	config := openai.DefaultConfig(token)
	config.HTTPClient = cl

	return newChatGPT(lg, &loggingClient{log: lg, cl: openai.NewClientWithConfig(config)}, maxTokens)
}

func newChatGPT(lg *slog.Logger, cl OpenAIClient, maxTokens int) *ChatGPT {
	return &ChatGPT{
		log:       lg,
		cl:        cl,
		maxTokens: maxTokens,
		cache: cache.NewCache[string, string]().
			WithLRU().
			WithMaxKeys(100),
	}
}

// CacheStat returns stats of the summaries cache.
func (s *ChatGPT) CacheStat() cache.Stats { return s.cache.Stat() }

// Summarize returns a short excerpt of the article.
func (s *ChatGPT) Summarize(ctx context.Context, article store.Article) (string, error) {
	if resp, ok := s.cache.Get(article.URL); ok {
		return resp, nil
	}

	buf := &strings.Builder{}
	if err := promptTmpl.Execute(buf, article); err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	if tokens := strings.Count(buf.String(), " ") + 1; tokens > maxRequestTokens {
		return "", ErrTooManyTokens
	}

	resp, err := s.cl.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     openai.GPT3Dot5Turbo,
		MaxTokens: s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buf.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	s.cache.Set(article.URL, result, 0)
	return result, nil
}

// Enrich fills empty excerpts of the articles that have content.
// Failures are logged and leave the excerpt empty.
func (s *ChatGPT) Enrich(ctx context.Context, articles []store.Article) []store.Article {
	result := make([]store.Article, len(articles))
	copy(result, articles)

	for i, a := range result {
		if a.Excerpt != "" || a.Content == "" {
			continue
		}

		excerpt, err := s.Summarize(ctx, a)
		if err != nil {
			s.log.WarnCtx(ctx, "failed to summarize article",
				slog.String("url", a.URL), slog.Any("err", err))
			continue
		}

		result[i].Excerpt = excerpt
	}

	return result
}

type loggingClient struct {
	log *slog.Logger
	cl  OpenAIClient
}

func (l *loggingClient) CreateChatCompletion(
	ctx context.Context,
	req openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	l.log.DebugCtx(ctx, "sending request to chatGPT")
	resp, err := l.cl.CreateChatCompletion(ctx, req)
	l.log.DebugCtx(ctx, "response received from chatGPT", slog.Any("err", err))
	return resp, err
}
