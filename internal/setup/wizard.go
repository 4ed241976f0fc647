// Package setup runs the first-time configuration wizard.
package setup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"

	"convertit/internal/config"
	"convertit/internal/gateway"
)

// ANSI color codes for enhanced output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

const welcomeMessage = `
%s╔═══════════════════════════════════════════════╗
║                                               ║
║            %sWelcome to ConvertIt!%s              ║
║   Conversions, deal closing and branding      ║
║                                               ║
╚═══════════════════════════════════════════════╝%s

A Gemini API key powers every tool.
Get one at: %shttps://aistudio.google.com/apikey%s
`

const providerMessage = `
%sText answers come from:%s

  %s[1]%s Gemini (default)
  %s[2]%s Ollama (local server, speech, images and search still use Gemini)

%sEnter your choice (1-2):%s `

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Wizard prompts for the settings ConvertIt cannot start without.
type Wizard struct {
	In   io.Reader
	Out  io.Writer
	Path string // empty saves to the default location

	// ValidateKey checks a key against the service. Defaults to a model
	// listing call.
	ValidateKey func(ctx context.Context, key string) error
	// ListModels returns models installed on an Ollama server.
	ListModels func(ctx context.Context, baseURL string) ([]string, error)
}

// RunSetupWizard runs the wizard on stdin/stdout and saves to path.
func RunSetupWizard(in io.Reader, out io.Writer, path string) (*config.Config, error) {
	w := &Wizard{In: in, Out: out, Path: path}
	return w.Run(context.Background())
}

// Run asks for the API key and text provider, then saves the result on
// top of whatever configuration already exists at Path.
func (w *Wizard) Run(ctx context.Context) (*config.Config, error) {
	if w.ValidateKey == nil {
		w.ValidateKey = validateGeminiKey
	}
	if w.ListModels == nil {
		w.ListModels = detectInstalledOllamaModels
	}

	cfg, err := config.LoadFrom(w.Path)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(w.Out, welcomeMessage, colorCyan, colorBold, colorCyan, colorReset, colorBold, colorReset)
	reader := bufio.NewReader(w.In)

	key, err := w.askKey(ctx, reader)
	if err != nil {
		return nil, err
	}
	cfg.API.GeminiKey = key

	if err := w.askProvider(ctx, reader, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Save(w.Path); err != nil {
		return nil, err
	}
	path := w.Path
	if path == "" {
		path = config.GetConfigPath()
	}
	fmt.Fprintf(w.Out, "\n%s✓ Configuration saved!%s\n", colorGreen, colorReset)
	fmt.Fprintf(w.Out, "  %sConfig:%s %s\n", colorYellow, colorReset, path)
	return cfg, nil
}

func (w *Wizard) askKey(ctx context.Context, reader *bufio.Reader) (string, error) {
	fmt.Fprintf(w.Out, "\n%sEnter API key:%s ", colorGreen, colorReset)
	line, err := readLine(reader)
	if err != nil {
		return "", err
	}
	if len(line) < 10 {
		return "", fmt.Errorf("invalid API key format (too short)")
	}

	done := make(chan struct{})
	var validationErr error
	go func() {
		defer close(done)
		vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		validationErr = w.ValidateKey(vctx, line)
	}()
	w.spin("Validating API key...", done)

	if validationErr != nil {
		return "", fmt.Errorf("API key validation failed: %s", gateway.UserMessage(validationErr))
	}
	return line, nil
}

func (w *Wizard) askProvider(ctx context.Context, reader *bufio.Reader, cfg *config.Config) error {
	for {
		fmt.Fprintf(w.Out, providerMessage, colorYellow, colorReset, colorGreen, colorReset, colorGreen, colorReset, colorCyan, colorReset)
		choice, err := readLine(reader)
		if err != nil {
			return err
		}
		switch choice {
		case "", "1":
			cfg.API.TextProvider = "gemini"
			return nil
		case "2":
			return w.setupOllama(ctx, reader, cfg)
		default:
			fmt.Fprintf(w.Out, "\n%s⚠ Invalid choice. Please enter 1 or 2.%s\n", colorRed, colorReset)
		}
	}
}

func (w *Wizard) setupOllama(ctx context.Context, reader *bufio.Reader, cfg *config.Config) error {
	cfg.API.TextProvider = "ollama"

	fmt.Fprintf(w.Out, "\n%sOllama server [%s]:%s ", colorGreen, cfg.API.OllamaBaseURL, colorReset)
	base, err := readLine(reader)
	if err != nil {
		return err
	}
	if base != "" {
		cfg.API.OllamaBaseURL = base
	}

	lctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	models, err := w.ListModels(lctx, cfg.API.OllamaBaseURL)
	cancel()
	if err != nil {
		fmt.Fprintf(w.Out, "%s⚠ Could not list models: %v%s\n", colorYellow, err, colorReset)
	}

	if len(models) > 0 {
		fmt.Fprintf(w.Out, "\n%sInstalled models:%s\n", colorYellow, colorReset)
		for i, m := range models {
			fmt.Fprintf(w.Out, "  %s[%d]%s %s\n", colorGreen, i+1, colorReset, m)
		}
	}
	fmt.Fprintf(w.Out, "\n%sModel (number or name):%s ", colorGreen, colorReset)
	choice, err := readLine(reader)
	if err != nil {
		return err
	}
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(models) {
		choice = models[n-1]
	}
	if choice == "" {
		return fmt.Errorf("an Ollama model name is required")
	}
	cfg.API.OllamaModel = choice
	fmt.Fprintf(w.Out, "\n%sTip:%s pull it first with: %sollama pull %s%s\n", colorYellow, colorReset, colorBold, choice, colorReset)
	return nil
}

// spin shows a spinner animation while waiting for a task to complete.
func (w *Wizard) spin(message string, done <-chan struct{}) {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		fmt.Fprintf(w.Out, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], message)
		select {
		case <-done:
			fmt.Fprintf(w.Out, "\r%s\r", strings.Repeat(" ", len(message)+10))
			return
		case <-ticker.C:
		}
	}
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// validateGeminiKey tests a key with a lightweight model listing.
func validateGeminiKey(ctx context.Context, key string) error {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  key,
	})
	if err != nil {
		return err
	}
	_, err = client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1})
	return err
}

// detectInstalledOllamaModels returns a list of installed Ollama models.
func detectInstalledOllamaModels(ctx context.Context, serverURL string) ([]string, error) {
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}

	baseURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	client := api.NewClient(baseURL, &http.Client{Timeout: 5 * time.Second})

	resp, err := client.List(ctx)
	if err != nil {
		return nil, err
	}

	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.Name)
	}
	return models, nil
}
