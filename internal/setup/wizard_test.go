package setup

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convertit/internal/config"
)

func newWizard(t *testing.T, input string) (*Wizard, *bytes.Buffer) {
	t.Helper()
	t.Setenv("CONVERTIT_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	out := &bytes.Buffer{}
	return &Wizard{
		In:          strings.NewReader(input),
		Out:         out,
		Path:        filepath.Join(t.TempDir(), "config.yaml"),
		ValidateKey: func(context.Context, string) error { return nil },
		ListModels: func(context.Context, string) ([]string, error) {
			return []string{"llama3.2", "qwen3"}, nil
		},
	}, out
}

func TestWizardSavesGeminiKey(t *testing.T) {
	w, out := newWizard(t, "AIzaSyTestKey123\n1\n")

	cfg, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyTestKey123", cfg.API.GeminiKey)
	assert.Equal(t, "gemini", cfg.API.TextProvider)
	assert.Contains(t, out.String(), "Configuration saved")

	loaded, err := config.LoadFrom(w.Path)
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyTestKey123", loaded.API.GeminiKey)
	assert.NoError(t, loaded.Validate())
}

func TestWizardOllamaByNumber(t *testing.T) {
	w, _ := newWizard(t, "AIzaSyTestKey123\n2\n\n2\n")

	cfg, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.API.TextProvider)
	assert.Equal(t, "qwen3", cfg.API.OllamaModel)
	assert.Equal(t, "http://localhost:11434", cfg.API.OllamaBaseURL)
}

func TestWizardOllamaUnreachable(t *testing.T) {
	w, out := newWizard(t, "AIzaSyTestKey123\n2\nhttp://gpu:11434\nmistral\n")
	w.ListModels = func(context.Context, string) ([]string, error) {
		return nil, errors.New("connection refused")
	}

	cfg, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.API.OllamaModel)
	assert.Equal(t, "http://gpu:11434", cfg.API.OllamaBaseURL)
	assert.Contains(t, out.String(), "Could not list models")
}

func TestWizardRejectsInvalidKey(t *testing.T) {
	w, _ := newWizard(t, "AIzaSyBadKey000\n")
	w.ValidateKey = func(context.Context, string) error {
		return errors.New("API key not valid")
	}

	_, err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Auth Error")
}

func TestWizardShortKey(t *testing.T) {
	w, _ := newWizard(t, "abc\n")
	_, err := w.Run(context.Background())
	assert.ErrorContains(t, err, "too short")
}

func TestWizardRetriesProviderChoice(t *testing.T) {
	w, out := newWizard(t, "AIzaSyTestKey123\n7\n1\n")
	cfg, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.API.TextProvider)
	assert.Contains(t, out.String(), "Invalid choice")
}
