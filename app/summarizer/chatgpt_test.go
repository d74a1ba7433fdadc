package summarizer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/Semior001/newsagg/app/store"
	"github.com/jessevdk/go-flags"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func completion(s string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s}}},
	}
}

func TestChatGPT_Integration(t *testing.T) {
	var opts struct {
		Token string `long:"openai-token" env:"OPENAI_TOKEN"`
	}

	_, err := flags.NewParser(&opts, flags.Default|flags.IgnoreUnknown).ParseArgs(nil)
	require.NoError(t, err)

	if opts.Token == "" {
		t.Skip("OPENAI_TOKEN is not set")
	}

	cl := NewChatGPT(slog.Default(), &http.Client{}, opts.Token, 200)

	resp, err := cl.Summarize(context.Background(), store.Article{
		URL:     "https://example.com/ocean",
		Title:   "Ocean currents slow down",
		Content: "Scientists report that the major ocean currents have slowed by 15 percent over the last decades.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp)
}

func TestChatGPT_Summarize(t *testing.T) {
	mock := &OpenAIClientMock{CreateChatCompletionFunc: func(
		_ context.Context,
		req openai.ChatCompletionRequest,
	) (openai.ChatCompletionResponse, error) {
		assert.Equal(t, openai.GPT3Dot5Turbo, req.Model)
		assert.Equal(t, 200, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "Title: Ocean currents slow down")
		assert.Contains(t, req.Messages[0].Content, "Source: BBC")
		assert.Contains(t, req.Messages[0].Content, "slowed by 15 percent")
		return completion("  Ocean currents slowed.  "), nil
	}}

	cl := newChatGPT(slog.Default(), mock, 200)
	article := store.Article{
		URL:     "https://example.com/ocean",
		Title:   "Ocean currents slow down",
		Source:  "BBC",
		Content: "Scientists report that the currents have slowed by 15 percent.",
	}

	resp, err := cl.Summarize(context.Background(), article)
	require.NoError(t, err)
	assert.Equal(t, "Ocean currents slowed.", resp)

	// second call is served from cache
	resp, err = cl.Summarize(context.Background(), article)
	require.NoError(t, err)
	assert.Equal(t, "Ocean currents slowed.", resp)
	assert.Len(t, mock.CreateChatCompletionCalls(), 1)
	assert.Equal(t, 1, cl.CacheStat().Hits)
}

func TestChatGPT_SummarizeErrors(t *testing.T) {
	t.Run("too many tokens", func(t *testing.T) {
		cl := newChatGPT(slog.Default(), &OpenAIClientMock{}, 200)
		_, err := cl.Summarize(context.Background(), store.Article{
			Content: strings.Repeat("word ", maxRequestTokens),
		})
		assert.ErrorIs(t, err, ErrTooManyTokens)
	})

	t.Run("no choices", func(t *testing.T) {
		cl := newChatGPT(slog.Default(), &OpenAIClientMock{
			CreateChatCompletionFunc: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return openai.ChatCompletionResponse{}, nil
			},
		}, 200)
		_, err := cl.Summarize(context.Background(), store.Article{Content: "text"})
		assert.ErrorIs(t, err, ErrNoChoices)
	})

	t.Run("api error", func(t *testing.T) {
		cl := newChatGPT(slog.Default(), &OpenAIClientMock{
			CreateChatCompletionFunc: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return openai.ChatCompletionResponse{}, errors.New("quota exceeded")
			},
		}, 200)
		_, err := cl.Summarize(context.Background(), store.Article{Content: "text"})
		assert.ErrorContains(t, err, "quota exceeded")
	})
}

func TestChatGPT_Enrich(t *testing.T) {
	mock := &OpenAIClientMock{CreateChatCompletionFunc: func(
		_ context.Context,
		req openai.ChatCompletionRequest,
	) (openai.ChatCompletionResponse, error) {
		if strings.Contains(req.Messages[0].Content, "broken") {
			return openai.ChatCompletionResponse{}, errors.New("boom")
		}
		return completion("summary"), nil
	}}

	cl := newChatGPT(slog.Default(), mock, 200)
	in := []store.Article{
		{URL: "https://a.com/1", Content: "some text"},
		{URL: "https://a.com/2", Content: "some text", Excerpt: "given"},
		{URL: "https://a.com/3"},
		{URL: "https://a.com/4", Content: "broken text"},
	}

	out := cl.Enrich(context.Background(), in)
	require.Len(t, out, 4)
	assert.Equal(t, "summary", out[0].Excerpt)
	assert.Equal(t, "given", out[1].Excerpt)
	assert.Empty(t, out[2].Excerpt)
	assert.Empty(t, out[3].Excerpt)
	assert.Len(t, mock.CreateChatCompletionCalls(), 2)

	assert.Empty(t, in[0].Excerpt, "input must not be mutated")
}
