package config

import "time"

// Config represents the main application configuration.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Models        ModelsConfig        `yaml:"models"`
	Voices        VoicesConfig        `yaml:"voices"`
	Settings      SettingsConfig      `yaml:"settings"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Live          LiveConfig          `yaml:"live"`
	Geo           GeoConfig           `yaml:"geo"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Storage       StorageConfig       `yaml:"storage"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Logging       LoggingConfig       `yaml:"logging"`
	UI            UIConfig            `yaml:"ui"`

	// Runtime version information
	Version string `yaml:"-"`
}

// APIConfig holds API-related settings.
type APIConfig struct {
	GeminiKey string `yaml:"gemini_key,omitempty"`

	// Text provider: gemini (default) or ollama. Audio, image and search
	// always go to Gemini.
	TextProvider  string `yaml:"text_provider"`
	OllamaBaseURL string `yaml:"ollama_base_url,omitempty"`
	OllamaModel   string `yaml:"ollama_model,omitempty"`

	Timeout time.Duration `yaml:"timeout"` // 0 = no timeout, as in the web client
}

// ModelsConfig names the remote model for each request shape.
type ModelsConfig struct {
	Text   string `yaml:"text"`
	Speech string `yaml:"speech"`
	Image  string `yaml:"image"`
	Search string `yaml:"search"`
	Live   string `yaml:"live"`
}

// VoicesConfig holds prebuilt voice names.
type VoicesConfig struct {
	Speech string `yaml:"speech"`
	Live   string `yaml:"live"`
}

// SettingsConfig is the initial value of the user-facing settings panel.
type SettingsConfig struct {
	NotificationsEnabled bool `yaml:"notifications_enabled"`
	SoundEnabled         bool `yaml:"sound_enabled"`
	ReminderLeadMinutes  int  `yaml:"reminder_lead_minutes"`
}

// LeadTime returns the reminder lead time as a duration.
func (s SettingsConfig) LeadTime() time.Duration {
	if s.ReminderLeadMinutes < 0 {
		return 0
	}
	return time.Duration(s.ReminderLeadMinutes) * time.Minute
}

// SchedulerConfig holds follow-up sweep settings.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// NotificationsConfig holds platform notification settings.
type NotificationsConfig struct {
	Desktop    bool   `yaml:"desktop"`     // Native desktop notifications
	ChimeURL   string `yaml:"chime_url"`   // Sound played when sound is enabled
	MaxHistory int    `yaml:"max_history"` // Notifications kept in memory
}

// LiveConfig holds voice session audio settings.
type LiveConfig struct {
	InputSampleRate  int `yaml:"input_sample_rate"`
	OutputSampleRate int `yaml:"output_sample_rate"`
	FrameSize        int `yaml:"frame_size"` // Samples per uploaded frame
}

// GeoConfig holds the search bias coordinate.
type GeoConfig struct {
	Enabled   bool    `yaml:"enabled"` // Use the configured position instead of the fallback
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// RateLimitConfig holds client-side rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	BurstSize         int  `yaml:"burst_size"`
}

// StorageConfig holds optional persistence settings.
type StorageConfig struct {
	Path string `yaml:"path"` // SQLite file; empty keeps everything in memory
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // e.g. "127.0.0.1:9464"; empty disables
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// UIConfig holds dashboard settings.
type UIConfig struct {
	MarkdownRendering bool   `yaml:"markdown_rendering"`
	HighlightStyle    string `yaml:"highlight_style"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			TextProvider:  "gemini",
			OllamaBaseURL: "http://localhost:11434",
		},
		Models: ModelsConfig{
			Text:   DefaultTextModel,
			Speech: DefaultSpeechModel,
			Image:  DefaultImageModel,
			Search: DefaultSearchModel,
			Live:   DefaultLiveModel,
		},
		Voices: VoicesConfig{
			Speech: "Kore",
			Live:   "Puck",
		},
		Settings: SettingsConfig{
			NotificationsEnabled: true,
			SoundEnabled:         true,
			ReminderLeadMinutes:  0,
		},
		Scheduler: SchedulerConfig{
			Interval: DefaultSweepInterval,
		},
		Notifications: NotificationsConfig{
			Desktop:    true,
			ChimeURL:   DefaultChimeURL,
			MaxHistory: 100,
		},
		Live: LiveConfig{
			InputSampleRate:  DefaultInputSampleRate,
			OutputSampleRate: DefaultOutputSampleRate,
			FrameSize:        DefaultFrameSize,
		},
		Geo: GeoConfig{
			Latitude:  DefaultLatitude,
			Longitude: DefaultLongitude,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: DefaultRequestsPerMinute,
			BurstSize:         5,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		UI: UIConfig{
			MarkdownRendering: true,
			HighlightStyle:    "monokai",
		},
	}
}
