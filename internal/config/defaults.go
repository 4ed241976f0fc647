package config

import "time"

// Default configuration values.
const (
	// Remote models
	DefaultTextModel   = "gemini-flash-lite-latest"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultImageModel  = "gemini-2.5-flash-image"
	DefaultSearchModel = "gemini-2.5-flash"
	DefaultLiveModel   = "gemini-2.5-flash-native-audio-preview-12-2025"

	// Follow-up sweep
	DefaultSweepInterval = 10 * time.Second

	// Live audio
	DefaultInputSampleRate  = 16000
	DefaultOutputSampleRate = 24000
	DefaultFrameSize        = 4096

	// Search bias used when no position is available
	DefaultLatitude  = 37.78193
	DefaultLongitude = -122.40476

	DefaultChimeURL = "https://assets.mixkit.co/active_storage/sfx/2869/2869-preview.mp3"

	DefaultRequestsPerMinute = 60

	DefaultGracefulShutdown = 10 * time.Second
)
