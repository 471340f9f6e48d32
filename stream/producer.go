package stream

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/chatstream/models"
	"github.com/tmc/langchaingo/llms"
)

func NewProducer(llm llms.Model, systemPrompt string, streamContext models.StreamContextData) Producer {
	return Producer{
		llm:           llm,
		systemPrompt:  systemPrompt,
		streamContext: streamContext,
	}
}

type Producer struct {
	llm           llms.Model
	systemPrompt  string
	streamContext models.StreamContextData
}

type Result struct {
	Chunks int
}

// Produce writes one content event per chunk generated by the model, then
// the context event. If an error is returned, the context event has not been
// written.
func (p Producer) Produce(ctx context.Context, w io.Writer, history []models.HistoryTurn, content string) (res Result, err error) {
	msgs, err := Messages(p.systemPrompt, history, content)
	if err != nil {
		return res, fmt.Errorf("failed to build messages: %w", err)
	}

	sw := NewWriter(w)
	f := func(ctx context.Context, chunk []byte) error {
		res.Chunks++
		return sw.WriteContent(string(chunk))
	}
	if _, err = p.llm.GenerateContent(ctx, msgs, llms.WithStreamingFunc(f)); err != nil {
		return res, fmt.Errorf("failed to generate content: %w", err)
	}

	if err = sw.WriteContext(p.streamContext); err != nil {
		return res, err
	}
	return res, nil
}
