package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

type CLI struct {
	Serve   ServeCommand   `cmd:"serve" help:"Start the chat server."`
	Stream  StreamCommand  `cmd:"stream" help:"Send a single message and print the streamed response."`
	Chat    ChatCommand    `cmd:"chat" help:"Chat with the server in the terminal."`
	Ping    PingCommand    `cmd:"ping" help:"Check that the server is running."`
	Version VersionCommand `cmd:"version" help:"Print the version of the chat server."`
}

func main() {
	// Variables from a .env file are used as flag defaults, but don't
	// override the environment.
	_ = godotenv.Load()

	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli, kong.UsageOnError(), kong.BindTo(ctx, (*context.Context)(nil)))
	if err := kctx.Run(); err != nil {
		log := getLogger("error")
		log.Error("error", slog.Any("error", err))
		os.Exit(1)
	}
}

func getLogger(level string) *slog.Logger {
	ll := slog.LevelInfo
	switch level {
	case "debug":
		ll = slog.LevelDebug
	case "info":
		ll = slog.LevelInfo
	case "warn":
		ll = slog.LevelWarn
	case "error":
		ll = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ll,
	}))
}
