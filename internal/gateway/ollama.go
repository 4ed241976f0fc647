package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"convertit/internal/logging"
)

// OllamaConfig holds configuration for the local text provider.
type OllamaConfig struct {
	BaseURL     string        // Default: "http://localhost:11434"
	Model       string        // e.g. "llama3.2"
	HTTPTimeout time.Duration // Default: 120s
}

// Ollama answers text prompts with a local Ollama server.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates an Ollama text provider.
func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model name is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 120 * time.Second
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	if baseURL.Scheme == "http" {
		host := baseURL.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			logging.Warn("Ollama connection uses unencrypted HTTP to remote host", "host", host)
		}
	}

	return &Ollama{
		client: api.NewClient(baseURL, &http.Client{Timeout: cfg.HTTPTimeout}),
		model:  cfg.Model,
	}, nil
}

// Name implements TextProvider.
func (o *Ollama) Name() string {
	return "ollama/" + o.model
}

// GenerateText implements TextProvider.
func (o *Ollama) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		System: system,
		Stream: &stream,
	}

	var sb strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", o.wrapError(err)
	}
	return sb.String(), nil
}

func (o *Ollama) wrapError(err error) error {
	if code, ok := ollamaStatus(err); ok {
		switch code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("ollama: api key rejected (401): %w", err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("ollama: rate limit (429): %w", err)
		case http.StatusNotFound:
			return fmt.Errorf("ollama: model %q not found, run 'ollama pull %s': %w", o.model, o.model, err)
		}
	}
	if strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("ollama server not reachable, start it with 'ollama serve': %w", err)
	}
	return err
}

func ollamaStatus(err error) (int, bool) {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	var statusErrPtr *api.StatusError
	if errors.As(err, &statusErrPtr) && statusErrPtr != nil {
		return statusErrPtr.StatusCode, true
	}
	return 0, false
}
