package llm

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
)

const TestMessage = `Hello!

I'm a test message.

I'm here to help you test your integration with the API.

If you can see me, then your integration is working!`

// Chunk splits s into chunks of size runes.
func Chunk(s string, size int) (chunks []string) {
	for chunk := range slices.Chunk([]rune(s), size) {
		chunks = append(chunks, string(chunk))
	}
	return chunks
}

type ScriptedOption func(*Scripted)

// WithDelay waits before each chunk is sent.
func WithDelay(d time.Duration) ScriptedOption {
	return func(s *Scripted) {
		s.delay = d
	}
}

// WithFailure returns err after the given number of chunks have been sent.
func WithFailure(after int, err error) ScriptedOption {
	return func(s *Scripted) {
		s.failAfter = after
		s.failErr = err
	}
}

// NewScripted creates a model that streams the same chunks in response to
// every request. It records the messages it receives.
func NewScripted(chunks []string, opts ...ScriptedOption) *Scripted {
	s := &Scripted{
		chunks: chunks,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Scripted struct {
	chunks    []string
	delay     time.Duration
	failAfter int
	failErr   error

	m     sync.Mutex
	calls [][]llms.MessageContent
}

var _ llms.Model = (*Scripted)(nil)

func (s *Scripted) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	s.m.Lock()
	s.calls = append(s.calls, slices.Clone(messages))
	s.m.Unlock()

	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	var sb strings.Builder
	for i := 0; ; i++ {
		if s.failErr != nil && i == s.failAfter {
			return nil, s.failErr
		}
		if i == len(s.chunks) {
			break
		}
		if err := sleep(ctx, s.delay); err != nil {
			return nil, err
		}
		sb.WriteString(s.chunks[i])
		if opts.StreamingFunc == nil {
			continue
		}
		if err := opts.StreamingFunc(ctx, []byte(s.chunks[i])); err != nil {
			return nil, err
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:    sb.String(),
				StopReason: "stop",
			},
		},
	}, nil
}

func (s *Scripted) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

// Calls returns the messages of each request received so far.
func (s *Scripted) Calls() [][]llms.MessageContent {
	s.m.Lock()
	defer s.m.Unlock()
	return slices.Clone(s.calls)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
