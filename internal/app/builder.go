package app

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"convertit/internal/audio"
	"convertit/internal/config"
	"convertit/internal/followup"
	"convertit/internal/gateway"
	"convertit/internal/geo"
	"convertit/internal/live"
	"convertit/internal/logging"
	"convertit/internal/metrics"
	"convertit/internal/notify"
	"convertit/internal/store"
)

// Builder wires an App from configuration.
type Builder struct {
	cfg        *config.Config
	configPath string
	ctx        context.Context
	cancel     context.CancelFunc

	client    *genai.Client
	gateway   *gateway.Gateway
	notifier  *notify.Manager
	voice     *live.Manager
	db        *store.DB
	locator   geo.Locator
	watcher   *config.Watcher
	metricsWG sync.WaitGroup

	buildErrors []error
	mu          sync.Mutex
}

// NewBuilder creates a Builder. configPath is watched for settings changes
// when non-empty.
func NewBuilder(cfg *config.Config, configPath string) *Builder {
	ctx, cancel := context.WithCancel(context.Background())
	return &Builder{
		cfg:        cfg,
		configPath: configPath,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Build constructs the App. Storage, metrics and the config watcher are
// optional and only logged when they fail.
func (b *Builder) Build() (*App, error) {
	if err := b.initClient(); err != nil {
		b.cancel()
		b.addError(err)
		return nil, b.finalizeError()
	}
	b.initNotifier()
	b.initVoice()
	b.initLocator()
	if err := b.initStorage(); err != nil {
		logging.Warn("storage disabled", "path", b.cfg.Storage.Path, "error", err)
	}

	a := b.assembleApp()
	b.initMetrics(a)
	b.initWatcher(a)
	return a, nil
}

// Gateway returns the gateway built by Build.
func (b *Builder) Gateway() *gateway.Gateway {
	return b.gateway
}

func (b *Builder) initClient() error {
	client, err := gateway.NewClient(b.ctx, b.cfg)
	if err != nil {
		return err
	}
	gw, err := gateway.FromConfig(client, b.cfg)
	if err != nil {
		return fmt.Errorf("failed to configure text provider: %w", err)
	}
	b.client = client
	b.gateway = gw
	return nil
}

func (b *Builder) initNotifier() {
	b.notifier = notify.NewManager(notify.Options{
		Desktop:    b.cfg.Notifications.Desktop,
		ChimeURL:   b.cfg.Notifications.ChimeURL,
		MaxHistory: b.cfg.Notifications.MaxHistory,
	})
}

func (b *Builder) initVoice() {
	remote := &live.GeminiRemote{Client: b.client, Model: b.cfg.Models.Live}
	b.voice = live.NewManager(remote, live.SystemDevices{}, live.Options{
		InputRate:  b.cfg.Live.InputSampleRate,
		OutputRate: b.cfg.Live.OutputSampleRate,
		FrameSize:  b.cfg.Live.FrameSize,
		Voice:      b.cfg.Voices.Live,
	})
}

func (b *Builder) initLocator() {
	if !b.cfg.Geo.Enabled {
		return
	}
	b.locator = geo.StaticLocator{
		Latitude:  b.cfg.Geo.Latitude,
		Longitude: b.cfg.Geo.Longitude,
	}
}

func (b *Builder) initStorage() error {
	if b.cfg.Storage.Path == "" {
		return nil
	}
	db, err := store.Open(b.cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.db = db
	return nil
}

func (b *Builder) assembleApp() *App {
	deps := Deps{
		Gateway:  b.gateway,
		Voice:    b.voice,
		Notifier: b.notifier,
		Speaker:  audio.Speaker{Rate: b.cfg.Live.OutputSampleRate},
		Locator:  b.locator,
		Limiter:  b.gateway.Limiter(),
		Settings: SettingsFromConfig(b.cfg),
		Interval: b.cfg.Scheduler.Interval,
	}
	if b.db != nil {
		deps.Store = b.db
	}
	a := New(deps)
	a.OnShutdown("notifier", func() error {
		b.notifier.Wait()
		return nil
	})
	a.OnShutdown("builder", func() error {
		b.cancel()
		return nil
	})
	return a
}

func (b *Builder) initMetrics(a *App) {
	if b.cfg.Metrics.Addr == "" {
		return
	}
	b.metricsWG.Add(1)
	go func() {
		defer b.metricsWG.Done()
		if err := metrics.Serve(b.ctx, b.cfg.Metrics.Addr); err != nil {
			logging.Warn("metrics endpoint stopped", "addr", b.cfg.Metrics.Addr, "error", err)
		}
	}()
	a.OnShutdown("metrics", func() error {
		b.cancel()
		b.metricsWG.Wait()
		return nil
	})
}

func (b *Builder) initWatcher(a *App) {
	if b.configPath == "" {
		return
	}
	w, err := config.Watch(b.configPath, func(cfg *config.Config) {
		a.ApplySettings(SettingsFromConfig(cfg))
		b.gateway.Limiter().SetEnabled(cfg.RateLimit.Enabled)
		logging.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	})
	if err != nil {
		logging.Debug("config watcher disabled", "path", b.configPath, "error", err)
		return
	}
	b.watcher = w
	a.OnShutdown("config watcher", w.Stop)
}

// SettingsFromConfig converts the settings section of cfg.
func SettingsFromConfig(cfg *config.Config) followup.Settings {
	return followup.Settings{
		NotificationsEnabled: cfg.Settings.NotificationsEnabled,
		SoundEnabled:         cfg.Settings.SoundEnabled,
		LeadTime:             cfg.Settings.LeadTime(),
	}
}

func (b *Builder) addError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buildErrors = append(b.buildErrors, err)
}

func (b *Builder) finalizeError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buildErrors) == 0 {
		return nil
	}
	if len(b.buildErrors) == 1 {
		return b.buildErrors[0]
	}
	msg := fmt.Sprintf("app build failed with %d error(s)", len(b.buildErrors))
	for i, err := range b.buildErrors {
		msg += fmt.Sprintf("\n  %d. %s", i+1, err.Error())
	}
	return fmt.Errorf("%s", msg)
}
