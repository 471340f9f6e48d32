package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	// ProviderTest streams TestMessage without calling out to a model.
	ProviderTest = "test"
)

var ErrUnknownProvider = errors.New("unknown provider")

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderOllama:    "mistral-nemo",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

type Config struct {
	Provider string
	// Model defaults to a per-provider model if empty.
	Model string
	// URL of the provider's API, if not the provider default.
	URL string
	// APIKey falls back to the provider's usual environment variable if empty,
	// e.g. OPENAI_API_KEY.
	APIKey     string
	HTTPClient *http.Client
}

func (c Config) model() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}

// New creates the model client shared by all requests.
func New(cfg Config) (llms.Model, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithModel(cfg.model()),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.URL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.URL))
		}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return llm, nil
	case ProviderOllama:
		opts := []ollama.Option{
			ollama.WithModel(cfg.model()),
			ollama.WithHTTPClient(httpClient),
		}
		if cfg.URL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.URL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return llm, nil
	case ProviderAnthropic:
		opts := []anthropic.Option{
			anthropic.WithModel(cfg.model()),
			anthropic.WithHTTPClient(httpClient),
		}
		if cfg.URL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.URL))
		}
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		llm, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		return llm, nil
	case ProviderTest:
		return NewScripted(Chunk(TestMessage, 4), WithDelay(100*time.Millisecond)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}
