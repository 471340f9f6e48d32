package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/chatstream/models"
	"github.com/tmaxmax/go-sse"
)

// Writer writes events as SSE data frames, flushing after each one.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (sw *Writer) WriteContent(text string) error {
	return sw.write(models.StreamContent{Content: text})
}

func (sw *Writer) WriteContext(data models.StreamContextData) error {
	return sw.write(models.StreamContext{
		Type: models.StreamEventTypeContext,
		Data: data,
	})
}

func (sw *Writer) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := &sse.Message{}
	msg.AppendData(string(data))
	if _, err = msg.WriteTo(sw.w); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if flusher, canFlush := sw.w.(http.Flusher); canFlush {
		flusher.Flush()
	}
	return nil
}
