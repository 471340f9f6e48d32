package stream

import (
	"errors"
	"fmt"

	"github.com/a-h/chatstream/models"
	"github.com/tmc/langchaingo/llms"
)

var ErrInvalidHistoryTurn = errors.New("invalid history turn")

// Messages returns the sequence sent to the model: the system prompt, one
// message per history turn in order, then the current content.
func Messages(systemPrompt string, history []models.HistoryTurn, content string) ([]llms.MessageContent, error) {
	msgs := make([]llms.MessageContent, 0, len(history)+2)
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for i, turn := range history {
		msg, err := historyMessage(turn)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		msgs = append(msgs, msg)
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, content))
	return msgs, nil
}

func historyMessage(turn models.HistoryTurn) (msg llms.MessageContent, err error) {
	sender, ok := turn["sender"]
	if !ok {
		return msg, fmt.Errorf("%w: missing sender", ErrInvalidHistoryTurn)
	}
	v, ok := turn["text"]
	if !ok {
		return msg, fmt.Errorf("%w: missing text", ErrInvalidHistoryTurn)
	}
	text, ok := v.(string)
	if !ok {
		return msg, fmt.Errorf("%w: text is %T, not a string", ErrInvalidHistoryTurn, v)
	}
	if sender == models.SenderUser {
		return llms.TextParts(llms.ChatMessageTypeHuman, text), nil
	}
	return llms.TextParts(llms.ChatMessageTypeAI, text), nil
}
