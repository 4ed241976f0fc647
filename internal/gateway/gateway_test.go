package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"convertit/internal/config"
	"convertit/internal/geo"
	"convertit/internal/leads"
	"convertit/internal/prompt"
	"convertit/internal/ratelimit"
)

type call struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	calls []call
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, call{model: model, contents: contents, config: cfg})
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func promptOf(c call) string {
	var sb strings.Builder
	for _, content := range c.contents {
		for _, part := range content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func newTestGateway(gen Generator) *Gateway {
	return New(gen, Options{Models: config.DefaultConfig().Models, Voices: config.DefaultConfig().Voices})
}

func TestText(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("12 kg = 26.4555 lb")}
	gw := newTestGateway(gen)

	out, err := gw.Text(context.Background(), "Convert 12 kg to lb.")
	require.NoError(t, err)
	assert.Equal(t, "12 kg = 26.4555 lb", out)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, config.DefaultTextModel, gen.calls[0].model)
	assert.Nil(t, gen.calls[0].config.SystemInstruction)
}

func TestTextWithSystemInstruction(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("hi")}
	gw := newTestGateway(gen)

	_, err := gw.Text(context.Background(), "hello", WithSystemInstruction(prompt.SupportInstruction))
	require.NoError(t, err)

	sys := gen.calls[0].config.SystemInstruction
	require.NotNil(t, sys)
	assert.Equal(t, prompt.SupportInstruction, sys.Parts[0].Text)
}

type fakeProvider struct {
	system, prompt string
}

func (f *fakeProvider) GenerateText(_ context.Context, system, p string) (string, error) {
	f.system, f.prompt = system, p
	return "local answer", nil
}

func (f *fakeProvider) Name() string { return "fake" }

func TestTextUsesProvider(t *testing.T) {
	gen := &fakeGenerator{}
	provider := &fakeProvider{}
	gw := New(gen, Options{Text: provider})

	out, err := gw.Text(context.Background(), "story", WithSystemInstruction("sys"))
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
	assert.Equal(t, "sys", provider.system)
	assert.Empty(t, gen.calls)
}

func TestSpeech(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f}
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{Data: pcm, MIMEType: "audio/pcm"}}}},
		}},
	}}
	gw := newTestGateway(gen)

	speech, err := gw.Speech(context.Background(), "welcome")
	require.NoError(t, err)
	require.NotNil(t, speech)
	assert.Equal(t, pcm, speech.PCM)
	assert.Equal(t, 24000, speech.SampleRate)

	c := gen.calls[0]
	assert.Equal(t, config.DefaultSpeechModel, c.model)
	assert.Equal(t, "Say naturally: welcome", promptOf(c))
	assert.Equal(t, []string{string(genai.ModalityAudio)}, c.config.ResponseModalities)
	assert.Equal(t, "Kore", c.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestSpeechWithoutAudio(t *testing.T) {
	gw := newTestGateway(&fakeGenerator{resp: textResponse("no audio")})
	speech, err := gw.Speech(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, speech)
}

func TestImageFirstInlinePart(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{Data: []byte("png1"), MIMEType: "image/png"}},
				{InlineData: &genai.Blob{Data: []byte("png2"), MIMEType: "image/png"}},
			}},
		}},
	}}
	gw := newTestGateway(gen)

	img, err := gw.Image(context.Background(), prompt.Logo("gold"))
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, []byte("png1"), img.Data)
	assert.Equal(t, "data:image/png;base64,cG5nMQ==", img.DataURL())
	assert.Equal(t, "1:1", gen.calls[0].config.ImageConfig.AspectRatio)
}

func TestSearchMapsGrounding(t *testing.T) {
	resp := textResponse("Here are some leads")
	resp.Candidates[0].GroundingMetadata = &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			{Maps: &genai.GroundingChunkMaps{Title: "Acme Dental", URI: "https://maps.example/1"}},
			{Web: &genai.GroundingChunkWeb{Title: "ignored", URI: "https://web.example"}},
			{Maps: &genai.GroundingChunkMaps{}},
		},
	}
	gen := &fakeGenerator{resp: resp}
	gw := newTestGateway(gen)

	pos := geo.LatLng{Latitude: 40.7, Longitude: -74}
	result, err := gw.Search(context.Background(), prompt.LeadQuery{Query: "dentists"}, pos)
	require.NoError(t, err)

	assert.Equal(t, "Here are some leads", result.Text)
	assert.Equal(t, []leads.Reference{
		{Title: "Acme Dental", URI: "https://maps.example/1"},
		{},
	}, result.References)

	c := gen.calls[0]
	assert.Equal(t, config.DefaultSearchModel, c.model)
	require.Len(t, c.config.Tools, 1)
	assert.NotNil(t, c.config.Tools[0].GoogleMaps)
	latLng := c.config.ToolConfig.RetrievalConfig.LatLng
	assert.Equal(t, 40.7, *latLng.Latitude)
	assert.Equal(t, -74.0, *latLng.Longitude)

	found := leads.FromGrounding(result.References)
	assert.Equal(t, leads.DefaultName, found[1].Name)
	assert.Equal(t, leads.DefaultURI, found[1].URI)
}

func TestErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
		msg  string
	}{
		{"api 401", genai.APIError{Code: 401, Message: "bad key"}, KindAuth, "Auth Error: Invalid API Key."},
		{"api 429", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, KindRateLimit, "Rate Limit: Too many requests."},
		{"untyped key", errors.New("API key not valid"), KindAuth, "Auth Error: Invalid API Key."},
		{"untyped safety", errors.New("blocked for SAFETY reasons"), KindSafety, "Safety Block: Content violates policy."},
		{"generic", errors.New("connection reset"), KindGeneric, "Error: connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(&fakeGenerator{err: tt.err})
			_, err := gw.Text(context.Background(), "x")
			require.Error(t, err)

			var gwErr *Error
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tt.want, gwErr.Kind)
			assert.Equal(t, "text", gwErr.Op)
			if tt.want != KindGeneric {
				assert.Equal(t, tt.msg, gwErr.UserMessage())
			} else {
				assert.True(t, strings.HasPrefix(gwErr.UserMessage(), "Error: "))
				assert.Contains(t, gwErr.UserMessage(), "connection reset")
			}
		})
	}
}

func TestBlockedResponseIsSafety(t *testing.T) {
	resp := textResponse("")
	resp.Candidates[0].FinishReason = genai.FinishReasonSafety
	gw := newTestGateway(&fakeGenerator{resp: resp})

	_, err := gw.Text(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, KindSafety, KindOf(err))
	assert.True(t, errors.Is(err, ErrBlocked))

	prompted := &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}
	gw = newTestGateway(&fakeGenerator{resp: prompted})
	_, err = gw.Image(context.Background(), "x")
	assert.Equal(t, KindSafety, KindOf(err))
}

func TestRateLimitWaitFailure(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Config{Enabled: true, RequestsPerMinute: 1, BurstSize: 1})
	gen := &fakeGenerator{resp: textResponse("ok")}
	gw := New(gen, Options{Limiter: limiter})

	_, err := gw.Text(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.Text(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, KindRateLimit, KindOf(err))
	assert.Len(t, gen.calls, 1)
	assert.Same(t, limiter, gw.Limiter())
	assert.Equal(t, int64(1), gw.Limiter().Stats().BlockedRequests)
}

func TestUserMessageForForeignError(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Rate Limit: Too many requests.", UserMessage(fmt.Errorf("got 429 from upstream")))
}
