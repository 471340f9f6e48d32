package post

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/a-h/chatstream/models"
	"github.com/a-h/chatstream/stream"
	"github.com/a-h/respond"
	"github.com/google/uuid"
)

func New(log *slog.Logger, producer stream.Producer) Handler {
	return Handler{
		log:      log,
		producer: producer,
	}
}

type Handler struct {
	log      *slog.Logger
	producer stream.Producer
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := h.log.With(slog.String("requestId", requestID))
	w.Header().Set("X-Request-Id", requestID)

	var req models.StreamPostRequest
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(&req)
	if err != nil {
		log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if err = dec.Decode(&json.RawMessage{}); err != io.EOF {
		log.Error("unexpected data after body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body: unexpected data after the request", http.StatusBadRequest)
		return
	}
	if err = req.Validate(); err != nil {
		log.Error("invalid request", slog.Any("error", err))
		respond.WithError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	log.Info("streaming response", slog.Int("history", len(req.History)), slog.Int("files", len(req.Files)))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if flusher, canFlush := w.(http.Flusher); canFlush {
		flusher.Flush()
	}

	res, err := h.producer.Produce(r.Context(), w, req.History, *req.Content)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("client disconnected", slog.Int("chunks", res.Chunks))
		} else {
			log.Error("stream failed", slog.Int("chunks", res.Chunks), slog.Any("error", err))
		}
		// The status has already been sent, so the only way to signal the
		// failure is to drop the connection before the context event.
		panic(http.ErrAbortHandler)
	}
	log.Info("stream complete", slog.Int("chunks", res.Chunks))
}
