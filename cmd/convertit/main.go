package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"convertit/internal/app"
	"convertit/internal/config"
	"convertit/internal/logging"
	"convertit/internal/setup"
	"convertit/internal/ui"
)

var (
	version  = "0.1.0"
	cfgFile  string
	verbose  bool
	runSetup bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "convertit",
		Short: "AI utility suite for conversions, deal closing and branding",
		Long: `ConvertIt converts units and documents, writes stories, speaks text,
designs logos, finds business leads with follow-up reminders, and runs
live voice outreach calls. Without a subcommand it opens the dashboard.`,
		SilenceUsage: true,
		RunE:         runApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/convertit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.Flags().BoolVar(&runSetup, "setup", false, "run the setup wizard")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			logging.Configure(logging.LevelDebug, os.Stderr)
		}
	}

	rootCmd.AddCommand(
		unitsCmd(),
		docCmd(),
		storyCmd(),
		ttsCmd(),
		imageCmd("image", "Generate an image from a brief"),
		imageCmd("logo", "Design a convertit.space logo"),
		leadsCmd(),
		chatCmd(),
		callCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("convertit version %s\n", version)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.GetConfigPath()
}

// loadConfig loads and validates the configuration. A missing API key runs
// the setup wizard when interactive is set.
func loadConfig(interactive bool) (*config.Config, error) {
	cfg, err := config.LoadFrom(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, config.ErrMissingAuth) || !interactive {
			return nil, err
		}
		// No API key configured - run setup wizard
		if cfg, err = setup.RunSetupWizard(os.Stdin, os.Stdout, configPath()); err != nil {
			return nil, err
		}
		cfg.Version = version
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runApp(cmd *cobra.Command, args []string) error {
	if runSetup {
		if _, err := setup.RunSetupWizard(os.Stdin, os.Stdout, configPath()); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	if !verbose {
		// Without a log file the logger keeps discarding; the dashboard owns the terminal.
		app.LogIgnoredError("enable file logging", logging.EnableFileLogging(config.Dir(), logging.ParseLevel(cfg.Logging.Level)))
	}

	application, err := app.NewBuilder(cfg, configPath()).Build()
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	model := ui.NewModel(application, ui.Options{
		MarkdownRendering: cfg.UI.MarkdownRendering,
		HighlightStyle:    cfg.UI.HighlightStyle,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	application.SetOnChange(model.NotifyChanged)
	application.OnAlert(model.PushAlert)

	if err := application.Start(); err != nil {
		logging.Warn("follow-up scheduler not started", "error", err)
	}
	application.HandleSignals()

	_, runErr := p.Run()

	ctx, cancel := context.WithTimeout(context.Background(), app.GracefulShutdownTimeout)
	defer cancel()
	application.Shutdown(ctx)

	return runErr
}
