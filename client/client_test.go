package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/chatstream/client"
	rootget "github.com/a-h/chatstream/handlers/root/get"
	streampost "github.com/a-h/chatstream/handlers/stream/post"
	"github.com/a-h/chatstream/llm"
	"github.com/a-h/chatstream/models"
	"github.com/a-h/chatstream/stream"
	"github.com/a-h/jsonapi"
	"github.com/google/go-cmp/cmp"
	"github.com/tmc/langchaingo/llms"
)

func newTestServer(model llms.Model) *httptest.Server {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", rootget.New())
	mux.Handle("POST /stream", streampost.New(log, stream.NewProducer(model, "system", models.DefaultStreamContextData)))
	return httptest.NewServer(mux)
}

func ptr[T any](v T) *T {
	return &v
}

type collector struct {
	events []models.StreamEvent
}

func (c *collector) collect(ctx context.Context, event models.StreamEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestRoot(t *testing.T) {
	s := newTestServer(llm.NewScripted(nil))
	defer s.Close()

	resp, err := client.New(s.URL).Root(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message != rootget.Greeting {
		t.Errorf("expected %q, got %q", rootget.Greeting, resp.Message)
	}
}

func TestRootStatusError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer s.Close()

	if _, err := client.New(s.URL).Root(context.Background()); err == nil {
		t.Error("expected an error for a non-2xx status")
	}
}

func TestStreamPost(t *testing.T) {
	t.Run("content events are followed by the context event", func(t *testing.T) {
		s := newTestServer(llm.NewScripted([]string{"Hel", "lo!"}))
		defer s.Close()

		var c collector
		err := client.New(s.URL).StreamPost(context.Background(), models.StreamPostRequest{
			Content: ptr("Hi"),
			History: []models.HistoryTurn{},
		}, c.collect)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []models.StreamEvent{
			{Content: &models.StreamContent{Content: "Hel"}},
			{Content: &models.StreamContent{Content: "lo!"}},
			{Context: ptr(models.DefaultStreamContextData)},
		}
		if diff := cmp.Diff(expected, c.events); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("history is sent to the model", func(t *testing.T) {
		model := llm.NewScripted([]string{"Fine."})
		s := newTestServer(model)
		defer s.Close()

		var c collector
		err := client.New(s.URL).StreamPost(context.Background(), models.StreamPostRequest{
			Content: ptr("How are you?"),
			History: []models.HistoryTurn{
				models.NewHistoryTurn(models.SenderUser, "Hi"),
				models.NewHistoryTurn(models.SenderBot, "Hello"),
			},
		}, c.collect)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		calls := model.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		if len(calls[0]) != 4 {
			t.Errorf("expected 4 messages, got %d", len(calls[0]))
		}
	})
	t.Run("provider failures return ErrStreamTruncated", func(t *testing.T) {
		s := newTestServer(llm.NewScripted([]string{"Hel", "lo!"}, llm.WithFailure(1, errors.New("provider failed"))))
		defer s.Close()

		var c collector
		err := client.New(s.URL).StreamPost(context.Background(), models.StreamPostRequest{
			Content: ptr("Hi"),
		}, c.collect)
		if !errors.Is(err, client.ErrStreamTruncated) {
			t.Fatalf("expected ErrStreamTruncated, got %v", err)
		}
		expected := []models.StreamEvent{
			{Content: &models.StreamContent{Content: "Hel"}},
		}
		if diff := cmp.Diff(expected, c.events); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("streams that end without a context event return ErrStreamTruncated", func(t *testing.T) {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			_ = stream.NewWriter(w).WriteContent("Hel")
		}))
		defer s.Close()

		var c collector
		err := client.New(s.URL).StreamPost(context.Background(), models.StreamPostRequest{
			Content: ptr("Hi"),
		}, c.collect)
		if !errors.Is(err, client.ErrStreamTruncated) {
			t.Fatalf("expected ErrStreamTruncated, got %v", err)
		}
		if len(c.events) != 1 {
			t.Errorf("expected 1 event, got %d", len(c.events))
		}
	})
	t.Run("invalid requests return the status", func(t *testing.T) {
		s := newTestServer(llm.NewScripted([]string{"Hel"}))
		defer s.Close()

		var c collector
		err := client.New(s.URL).StreamPost(context.Background(), models.StreamPostRequest{}, c.collect)
		var ise jsonapi.InvalidStatusError
		if !errors.As(err, &ise) {
			t.Fatalf("expected InvalidStatusError, got %v", err)
		}
		if ise.Status != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", ise.Status)
		}
		if len(c.events) != 0 {
			t.Errorf("expected no events, got %d", len(c.events))
		}
	})
	t.Run("callback errors stop the stream", func(t *testing.T) {
		s := newTestServer(llm.NewScripted([]string{"Hel", "lo!"}))
		defer s.Close()

		errStop := errors.New("stop")
		var count int
		f := func(ctx context.Context, event models.StreamEvent) error {
			count++
			return errStop
		}
		err := client.New(s.URL).StreamPost(context.Background(), models.StreamPostRequest{
			Content: ptr("Hi"),
		}, f)
		if !errors.Is(err, errStop) {
			t.Fatalf("expected errStop, got %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 event, got %d", count)
		}
	})
}
