package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"convertit/internal/app"
	"convertit/internal/audio"
	"convertit/internal/config"
	"convertit/internal/fileutil"
	"convertit/internal/gateway"
	"convertit/internal/geo"
	"convertit/internal/highlight"
	"convertit/internal/leads"
	"convertit/internal/prompt"
)

// session is what the one-shot commands share: a validated config and a
// gateway bound to it.
type session struct {
	cfg *config.Config
	gw  *gateway.Gateway
}

func newSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	client, err := gateway.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gw, err := gateway.FromConfig(client, cfg)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, gw: gw}, nil
}

// commandContext is cancelled on Ctrl+C.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

// inputText joins args, or reads stdin when there are none.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func requireInput(s string) error {
	if strings.TrimSpace(s) == "" {
		return app.ErrEmptyInput
	}
	return nil
}

// userError turns a gateway failure into the same short text the
// dashboard shows.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s", gateway.UserMessage(err))
}

func runText(cmd *cobra.Command, p string, render func(string) string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	out, err := s.gw.Text(ctx, p)
	if err != nil {
		return userError(err)
	}
	if render != nil {
		out = render(out)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func unitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "units <value> <from> <to>",
		Short:   "Convert a value between units",
		Example: "  convertit units 12 kg lb",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInput(args[0]); err != nil {
				return err
			}
			return runText(cmd, prompt.UnitConversion(args[0], args[1], args[2]), nil)
		},
	}
}

func docCmd() *cobra.Command {
	var from, to, style string
	cmd := &cobra.Command{
		Use:   "doc [text]",
		Short: "Restyle text from one document format to another",
		Long:  "Restyle text from one document format to another. Without arguments the text is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			if err := requireInput(text); err != nil {
				return err
			}
			h := highlight.New(style)
			return runText(cmd, prompt.DocConversion(text, from, to), func(out string) string {
				if highlight.HasFences(out) {
					return h.HighlightFences(out)
				}
				if lang := highlight.LanguageFor(to); lang != "" {
					return h.Highlight(out, lang)
				}
				return out
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", prompt.DefaultDocFrom, "source format")
	cmd.Flags().StringVar(&to, "to", prompt.DefaultDocTo, "target format")
	cmd.Flags().StringVar(&style, "style", "monokai", "syntax highlighting style")
	return cmd
}

func storyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "story <idea>",
		Short: "Develop a script or story from an idea",
		RunE: func(cmd *cobra.Command, args []string) error {
			idea, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			if err := requireInput(idea); err != nil {
				return err
			}
			return runText(cmd, prompt.Story(idea), nil)
		},
	}
}

func ttsCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "tts <text>",
		Short: "Speak text aloud, or save it as a WAV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			if err := requireInput(text); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			s, err := newSession(ctx)
			if err != nil {
				return err
			}
			speech, err := s.gw.Speech(ctx, text)
			if err != nil {
				return userError(err)
			}
			if out != "" {
				if err := fileutil.WriteFile(out, audio.WAV(speech.PCM, speech.SampleRate), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", out, audio.Duration(len(speech.PCM)/2, speech.SampleRate))
				return nil
			}
			return audio.Speaker{Rate: speech.SampleRate}.Play(ctx, speech.PCM)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write a WAV file instead of playing")
	return cmd
}

func imageCmd(use, short string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   use + " [brief]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			// An empty brief is allowed: the branding prefix alone is a prompt.
			brief := strings.Join(args, " ")
			ctx, cancel := commandContext(cmd)
			defer cancel()
			s, err := newSession(ctx)
			if err != nil {
				return err
			}
			img, err := s.gw.Image(ctx, prompt.Logo(brief))
			if err != nil {
				return userError(err)
			}
			if out == "" {
				out = "convertit-" + use + imageExtension(img.MIMEType)
			}
			if err := fileutil.WriteFile(out, img.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}

func imageExtension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func leadsCmd() *cobra.Command {
	var q prompt.LeadQuery
	cmd := &cobra.Command{
		Use:   "leads <query>",
		Short: "Find business leads with a grounded search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Query = strings.Join(args, " ")
			if err := requireInput(q.Query); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			s, err := newSession(ctx)
			if err != nil {
				return err
			}
			var locator geo.Locator
			if s.cfg.Geo.Enabled {
				locator = geo.StaticLocator{Latitude: s.cfg.Geo.Latitude, Longitude: s.cfg.Geo.Longitude}
			}
			pos := geo.Resolve(ctx, locator, geo.Fallback)
			result, err := s.gw.Search(ctx, q, pos)
			if err != nil {
				return userError(err)
			}
			printLeads(cmd.OutOrStdout(), leads.FromGrounding(result.References))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Industry, "industry", "", "industry filter")
	cmd.Flags().StringVar(&q.Location, "location", "", "location filter (default: near the configured position)")
	cmd.Flags().StringVar(&q.Size, "size", "", "company size filter")
	return cmd
}

func printLeads(w io.Writer, list []leads.Lead) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No leads found.")
		return
	}
	for i, l := range list {
		fmt.Fprintf(w, "%2d. %s\n    %s\n", i+1, l.Name, l.URI)
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the ConvertIt support agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			s, err := newSession(ctx)
			if err != nil {
				return err
			}
			return supportLoop(ctx, s.gw, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

type textSender interface {
	Text(ctx context.Context, p string, opts ...gateway.TextOption) (string, error)
}

// supportLoop answers one line at a time until EOF or ctx ends. Failures
// become canned replies so the conversation keeps going.
func supportLoop(ctx context.Context, gw textSender, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "agent> %s\n", app.SupportGreeting)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		answer, err := gw.Text(ctx, line, gateway.WithSystemInstruction(prompt.SupportInstruction))
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			answer = app.SupportFailure
		case strings.TrimSpace(answer) == "":
			answer = app.SupportEmptyAnswer
		}
		fmt.Fprintf(out, "agent> %s\n", answer)
	}
}
