package main

import (
	"context"
	"fmt"

	"github.com/a-h/chatstream/client"
)

type PingCommand struct {
	ServerURL string `help:"The URL of the chat server." env:"CHAT_SERVER_URL" default:"http://localhost:8000"`
}

func (c PingCommand) Run(ctx context.Context) (err error) {
	resp, err := client.New(c.ServerURL).Root(ctx)
	if err != nil {
		return fmt.Errorf("server is not available: %w", err)
	}
	fmt.Println(resp.Message)
	return nil
}
