package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	rootget "github.com/a-h/chatstream/handlers/root/get"
	streampost "github.com/a-h/chatstream/handlers/stream/post"
	"github.com/a-h/chatstream/llm"
	"github.com/a-h/chatstream/models"
	"github.com/a-h/chatstream/stream"
	"github.com/rs/cors"
	"gopkg.in/yaml.v3"
)

type ServeCommand struct {
	ListenAddr      string        `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:8000"`
	Provider        string        `help:"The LLM provider to use." env:"LLM_PROVIDER" default:"openai" enum:"openai,ollama,anthropic,test"`
	Model           string        `help:"The model to chat with. Defaults to a model suited to the provider." env:"CHAT_MODEL" default:""`
	ProviderURL     string        `help:"The URL of the provider API, if not the provider default." env:"PROVIDER_URL" default:""`
	APIKey          string        `help:"The provider API key. Defaults to the provider's own environment variable, e.g. OPENAI_API_KEY." env:"PROVIDER_API_KEY" default:""`
	SystemPrompt    string        `help:"A file containing the system prompt to use." env:"SYSTEM_PROMPT" default:""`
	ContextFile     string        `help:"A YAML file containing the context sent at the end of each response." env:"CONTEXT_FILE" default:""`
	TLSCertFile     string        `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile      string        `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	ShutdownTimeout time.Duration `help:"How long to wait for open streams to finish on shutdown." env:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

const systemPrompt = `You are an expert assistant. Answer the user's question and be friendly.
Format your responses in markdown.
`

func readFileOrDefault(filename, defaultContent string) (string, error) {
	if filename == "" {
		return defaultContent, nil
	}
	contents, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return string(contents), nil
}

func readStreamContext(filename string) (data models.StreamContextData, err error) {
	if filename == "" {
		return models.DefaultStreamContextData, nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return data, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer f.Close()
	if err = yaml.NewDecoder(f).Decode(&data); err != nil {
		return data, fmt.Errorf("failed to decode file %s: %w", filename, err)
	}
	if data.Sources == nil {
		data.Sources = []string{}
	}
	return data, nil
}

func newHandler(log *slog.Logger, producer stream.Producer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", rootget.New())
	mux.Handle("POST /stream", streampost.New(log, producer))

	return cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	systemPrompt, err := readFileOrDefault(c.SystemPrompt, systemPrompt)
	if err != nil {
		return fmt.Errorf("failed to read system prompt: %w", err)
	}
	streamContext, err := readStreamContext(c.ContextFile)
	if err != nil {
		return fmt.Errorf("failed to read context file: %w", err)
	}

	log.Info("creating LLM client", slog.String("provider", c.Provider), slog.String("model", c.Model))
	llmc, err := llm.New(llm.Config{
		Provider:   c.Provider,
		Model:      c.Model,
		URL:        c.ProviderURL,
		APIKey:     c.APIKey,
		HTTPClient: &http.Client{},
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM: %w", err)
	}

	s := &http.Server{
		Addr:              c.ListenAddr,
		Handler:           newHandler(log, stream.NewProducer(llmc, systemPrompt, streamContext)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Listening", slog.String("addr", c.ListenAddr))
		serverErrors <- c.listen(log, s)
	}()

	select {
	case err = <-serverErrors:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down", slog.Duration("timeout", c.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	if err = s.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed, closing connections", slog.Any("error", err))
		return s.Close()
	}
	return nil
}

func (c ServeCommand) listen(log *slog.Logger, s *http.Server) (err error) {
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		err = s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
	} else {
		err = s.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
