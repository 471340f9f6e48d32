package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/a-h/chatstream/client"
	"github.com/a-h/chatstream/models"
)

type StreamCommand struct {
	ServerURL   string `help:"The URL of the chat server." env:"CHAT_SERVER_URL" default:"http://localhost:8000"`
	HistoryFile string `help:"A JSON file containing previous turns, e.g. [{\"sender\":\"user\",\"text\":\"Hi\"}]." env:"HISTORY_FILE" default:""`
	Content     string `arg:"" help:"The message to send."`
}

func (c StreamCommand) Run(ctx context.Context) (err error) {
	history, err := readHistory(c.HistoryFile)
	if err != nil {
		return err
	}
	sc := client.New(c.ServerURL)
	return sc.StreamPost(ctx, models.StreamPostRequest{
		Content: &c.Content,
		History: history,
	}, printEvent(os.Stdout, os.Stderr))
}

func readHistory(filename string) (history []models.HistoryTurn, err error) {
	if filename == "" {
		return nil, nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()
	if err = json.NewDecoder(f).Decode(&history); err != nil {
		return nil, fmt.Errorf("failed to decode history file: %w", err)
	}
	return history, nil
}

// printEvent writes content to stdout as it arrives, and the final context to
// stderr as JSON.
func printEvent(stdout, stderr io.Writer) func(ctx context.Context, event models.StreamEvent) error {
	return func(ctx context.Context, event models.StreamEvent) (err error) {
		if event.Content != nil {
			_, err = io.WriteString(stdout, event.Content.Content)
			return err
		}
		if _, err = io.WriteString(stdout, "\n"); err != nil {
			return err
		}
		enc := json.NewEncoder(stderr)
		enc.SetIndent("", "  ")
		return enc.Encode(event.Context)
	}
}
