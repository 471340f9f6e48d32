package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/chatstream/models"
	"github.com/a-h/jsonapi"
	"github.com/tmaxmax/go-sse"
)

// ErrStreamTruncated is returned when a stream ends before the context event.
var ErrStreamTruncated = errors.New("stream ended without a context event")

func New(baseURL string) Client {
	return Client{
		baseURL: baseURL,
	}
}

type Client struct {
	baseURL string
}

func (c Client) Root(ctx context.Context) (resp models.RootGetResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Get[models.RootGetResponse](ctx, url)
}

// StreamPost sends a message and calls f for each event in the response, in
// the order they are received.
func (c Client) StreamPost(ctx context.Context, req models.StreamPostRequest, f func(ctx context.Context, event models.StreamEvent) error) (err error) {
	url, err := jsonapi.URL(c.baseURL).Path("stream").String()
	if err != nil {
		return err
	}
	buf, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Accept", "text/event-stream"))
	if err != nil {
		return fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if err = checkStatus(res); err != nil {
		return err
	}

	var complete bool
	for e, err := range sse.Read(res.Body, nil) {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStreamTruncated, err)
		}
		var event models.StreamEvent
		if err = json.Unmarshal([]byte(e.Data), &event); err != nil {
			return fmt.Errorf("failed to decode event %q: %w", e.Data, err)
		}
		if event.Context != nil {
			complete = true
		}
		if err = f(ctx, event); err != nil {
			return fmt.Errorf("failed to process event: %w", err)
		}
	}
	if !complete {
		return ErrStreamTruncated
	}
	return nil
}

func checkStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	return jsonapi.InvalidStatusError{
		Status: res.StatusCode,
		Body:   string(body),
	}
}
