// Package highlight colours code found in generated output.
package highlight

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// Highlighter applies terminal syntax highlighting.
type Highlighter struct {
	style     string
	formatter chroma.Formatter
}

// New creates a Highlighter with the named chroma style.
// Supported styles include "monokai", "dracula", "github-dark" and "native".
func New(style string) *Highlighter {
	if style == "" {
		style = "monokai"
	}
	return &Highlighter{
		style:     style,
		formatter: formatters.Get("terminal256"),
	}
}

// Highlight colours code as lang. Unknown languages are analysed from the
// content before falling back to plain text.
func (h *Highlighter) Highlight(code, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(h.style)
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

var labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)

// HighlightFences colours every fenced code block in text and leaves the
// prose between them untouched. An unterminated fence runs to the end.
func (h *Highlighter) HighlightFences(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	var code []string
	lang := ""
	inFence := false

	flush := func() {
		if lang != "" {
			out = append(out, labelStyle.Render(lang))
		}
		out = append(out, h.Highlight(strings.Join(code, "\n"), lang))
		code = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				flush()
				inFence = false
				continue
			}
			inFence = true
			lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			continue
		}
		if inFence {
			code = append(code, line)
			continue
		}
		out = append(out, line)
	}
	if inFence {
		flush()
	}
	return strings.Join(out, "\n")
}

// HasFences reports whether text contains a fenced code block.
func HasFences(text string) bool {
	return strings.Contains(text, "```")
}

// LanguageFor maps a document format name, as typed in the doc converter,
// to a chroma lexer name. Formats without a lexer map to "".
func LanguageFor(format string) string {
	formatMap := map[string]string{
		"json":       "json",
		"yaml":       "yaml",
		"yml":        "yaml",
		"xml":        "xml",
		"html":       "html",
		"markdown":   "markdown",
		"md":         "markdown",
		"csv":        "",
		"latex":      "tex",
		"tex":        "tex",
		"toml":       "toml",
		"sql":        "sql",
		"go":         "go",
		"python":     "python",
		"javascript": "javascript",
		"typescript": "typescript",
	}
	if lang, ok := formatMap[strings.ToLower(strings.TrimSpace(format))]; ok {
		return lang
	}
	if lexer := lexers.Get(format); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}
