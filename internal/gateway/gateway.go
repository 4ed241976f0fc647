// Package gateway sends prompts to the generative service and translates
// its failures into a small set of kinds the UI can show.
package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/genai"

	"convertit/internal/config"
	"convertit/internal/geo"
	"convertit/internal/leads"
	"convertit/internal/logging"
	"convertit/internal/metrics"
	"convertit/internal/prompt"
	"convertit/internal/ratelimit"
)

// Generator is the part of genai.Models the gateway uses.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// TextProvider answers plain text prompts. It replaces Gemini for text only.
type TextProvider interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// Speech is raw 16-bit little-endian mono PCM.
type Speech struct {
	PCM        []byte
	SampleRate int
}

// Image is a generated picture.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL embeds the image as a data: URL.
func (i *Image) DataURL() string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}

// SearchResult is a grounded answer and the places it cites.
type SearchResult struct {
	Text       string
	References []leads.Reference
}

// Options configures a Gateway.
type Options struct {
	Models  config.ModelsConfig
	Voices  config.VoicesConfig
	Timeout time.Duration
	Limiter *ratelimit.Limiter
	Text    TextProvider // nil sends text to Gemini
}

// Gateway issues single-shot requests. It never retries.
type Gateway struct {
	gen     Generator
	text    TextProvider
	models  config.ModelsConfig
	voices  config.VoicesConfig
	timeout time.Duration
	limiter *ratelimit.Limiter
}

// New creates a gateway over gen.
func New(gen Generator, opts Options) *Gateway {
	models := opts.Models
	defaults := config.DefaultConfig()
	if models.Text == "" {
		models.Text = defaults.Models.Text
	}
	if models.Speech == "" {
		models.Speech = defaults.Models.Speech
	}
	if models.Image == "" {
		models.Image = defaults.Models.Image
	}
	if models.Search == "" {
		models.Search = defaults.Models.Search
	}
	voices := opts.Voices
	if voices.Speech == "" {
		voices.Speech = defaults.Voices.Speech
	}

	return &Gateway{
		gen:     gen,
		text:    opts.Text,
		models:  models,
		voices:  voices,
		timeout: opts.Timeout,
		limiter: opts.Limiter,
	}
}

// Limiter returns the client-side rate limiter, or nil.
func (g *Gateway) Limiter() *ratelimit.Limiter {
	return g.limiter
}

// NewClient creates the shared genai client from cfg.
func NewClient(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	if cfg.API.GeminiKey == "" {
		return nil, config.ErrMissingAuth
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  cfg.API.GeminiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// FromConfig builds a gateway over client using cfg.
func FromConfig(client *genai.Client, cfg *config.Config) (*Gateway, error) {
	opts := Options{
		Models:  cfg.Models,
		Voices:  cfg.Voices,
		Timeout: cfg.API.Timeout,
		// Built even when disabled so a config reload can switch it on.
		Limiter: ratelimit.NewLimiter(ratelimit.Config{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			BurstSize:         cfg.RateLimit.BurstSize,
		}),
	}
	if cfg.API.TextProvider == "ollama" {
		provider, err := NewOllama(OllamaConfig{
			BaseURL: cfg.API.OllamaBaseURL,
			Model:   cfg.API.OllamaModel,
		})
		if err != nil {
			return nil, err
		}
		opts.Text = provider
	}
	return New(client.Models, opts), nil
}

// TextOption adjusts a text request.
type TextOption func(*textRequest)

type textRequest struct {
	system string
}

// WithSystemInstruction sets the system instruction for a text request.
func WithSystemInstruction(s string) TextOption {
	return func(r *textRequest) { r.system = s }
}

// Text answers a plain prompt.
func (g *Gateway) Text(ctx context.Context, p string, opts ...TextOption) (string, error) {
	var req textRequest
	for _, opt := range opts {
		opt(&req)
	}

	var out string
	err := g.do(ctx, "text", func(ctx context.Context) error {
		if g.text != nil {
			text, err := g.text.GenerateText(ctx, req.system, p)
			out = text
			return err
		}

		cfg := &genai.GenerateContentConfig{}
		if req.system != "" {
			cfg.SystemInstruction = genai.NewContentFromText(req.system, genai.RoleUser)
		}
		resp, err := g.gen.GenerateContent(ctx, g.models.Text, genai.Text(p), cfg)
		if err != nil {
			return err
		}
		if err := checkBlocked(resp); err != nil {
			return err
		}
		out = resp.Text()
		return nil
	})
	return out, err
}

// Speech synthesizes text with the configured voice. A response without
// audio yields nil and no error.
func (g *Gateway) Speech(ctx context.Context, text string) (*Speech, error) {
	var out *Speech
	err := g.do(ctx, "speech", func(ctx context.Context) error {
		cfg := &genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityAudio)},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.voices.Speech},
				},
			},
		}
		resp, err := g.gen.GenerateContent(ctx, g.models.Speech, genai.Text(prompt.Speech(text)), cfg)
		if err != nil {
			return err
		}
		if err := checkBlocked(resp); err != nil {
			return err
		}
		// Only the first part is considered.
		if parts := firstParts(resp); len(parts) > 0 && parts[0] != nil && parts[0].InlineData != nil {
			out = &Speech{
				PCM:        parts[0].InlineData.Data,
				SampleRate: config.DefaultOutputSampleRate,
			}
		}
		return nil
	})
	return out, err
}

// Image generates a square picture. The first inline part wins; a response
// without one yields nil and no error.
func (g *Gateway) Image(ctx context.Context, p string) (*Image, error) {
	var out *Image
	err := g.do(ctx, "image", func(ctx context.Context) error {
		cfg := &genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{AspectRatio: "1:1"},
		}
		resp, err := g.gen.GenerateContent(ctx, g.models.Image, genai.Text(p), cfg)
		if err != nil {
			return err
		}
		if err := checkBlocked(resp); err != nil {
			return err
		}
		for _, part := range firstParts(resp) {
			if part != nil && part.InlineData != nil {
				out = &Image{MIMEType: part.InlineData.MIMEType, Data: part.InlineData.Data}
				break
			}
		}
		return nil
	})
	return out, err
}

// Search runs a map-grounded lead search biased toward pos.
func (g *Gateway) Search(ctx context.Context, q prompt.LeadQuery, pos geo.LatLng) (*SearchResult, error) {
	var out *SearchResult
	err := g.do(ctx, "search", func(ctx context.Context) error {
		lat, lng := pos.Latitude, pos.Longitude
		cfg := &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}},
			ToolConfig: &genai.ToolConfig{
				RetrievalConfig: &genai.RetrievalConfig{
					LatLng: &genai.LatLng{Latitude: &lat, Longitude: &lng},
				},
			},
		}
		resp, err := g.gen.GenerateContent(ctx, g.models.Search, genai.Text(prompt.LeadSearch(q)), cfg)
		if err != nil {
			return err
		}
		if err := checkBlocked(resp); err != nil {
			return err
		}
		out = &SearchResult{
			Text:       resp.Text(),
			References: mapReferences(resp),
		}
		return nil
	})
	return out, err
}

// do applies the limiter and timeout, records metrics and classifies the error.
func (g *Gateway) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	started := time.Now()

	if err := g.limiter.Acquire(ctx); err != nil {
		metrics.ObserveRequest(op, KindRateLimit.String(), started)
		return &Error{Op: op, Kind: KindRateLimit, Err: err}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	err := wrap(op, fn(ctx))
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
		logging.Warn("generative request failed", "op", op, "kind", outcome, "error", err)
	} else {
		logging.Debug("generative request done", "op", op, "duration", time.Since(started))
	}
	metrics.ObserveRequest(op, outcome, started)
	return err
}

func firstParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

// mapReferences keeps map chunks only; web chunks are ignored.
func mapReferences(resp *genai.GenerateContentResponse) []leads.Reference {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}
	var refs []leads.Reference
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Maps == nil {
			continue
		}
		refs = append(refs, leads.Reference{Title: chunk.Maps.Title, URI: chunk.Maps.URI})
	}
	return refs
}
