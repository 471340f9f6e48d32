package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/chatstream/client"
	"github.com/a-h/chatstream/llm"
	"github.com/a-h/chatstream/models"
)

// Run against a server started with:
//
//	chatstream serve --provider=test
func TestStreamPost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	var sb strings.Builder
	var streamContext *models.StreamContextData
	f := func(ctx context.Context, event models.StreamEvent) (err error) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if event.Content != nil {
			sb.WriteString(event.Content.Content)
		}
		if event.Context != nil {
			streamContext = event.Context
		}
		return nil
	}
	content := "This is a test message."
	c := client.New("http://localhost:8000")
	err := c.StreamPost(context.Background(), models.StreamPostRequest{
		Content: &content,
		History: []models.HistoryTurn{
			models.NewHistoryTurn(models.SenderUser, "Hi"),
			models.NewHistoryTurn(models.SenderBot, "Hello"),
		},
	}, f)
	if err != nil {
		t.Fatalf("failed to post message: %v", err)
	}
	if actual := sb.String(); actual != llm.TestMessage {
		t.Errorf("expected %q, got %q", llm.TestMessage, actual)
	}
	if streamContext == nil {
		t.Fatal("expected a context event")
	}
	if len(streamContext.Sources) == 0 {
		t.Error("expected sources in the context event")
	}
}

func TestRoot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := client.New("http://localhost:8000")
	resp, err := c.Root(context.Background())
	if err != nil {
		t.Fatalf("failed to get root: %v", err)
	}
	if resp.Message == "" {
		t.Error("expected a greeting")
	}
}
