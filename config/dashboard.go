package config

import "time"

// WatcherConfig controls the background job snapshot refresher.
type WatcherConfig struct {
	Enabled  bool          `env:"ENABLED"  envDefault:"true"`
	Interval time.Duration `env:"INTERVAL" envDefault:"15s"`
}

// Sanitize applies guardrails to watcher configuration values.
func (w *WatcherConfig) Sanitize() {
	if w.Interval < time.Second {
		w.Interval = time.Second
	}
}

// SettingsConfig controls pipeline settings version history.
type SettingsConfig struct {
	// HistoryLimit is the number of versions kept; older versions are pruned on save.
	HistoryLimit int `env:"HISTORY_LIMIT" envDefault:"50"`
}

// Sanitize applies guardrails to settings configuration values.
func (s *SettingsConfig) Sanitize() {
	if s.HistoryLimit < 1 {
		s.HistoryLimit = 1
	}
}

// UploadConfig limits content uploads.
type UploadConfig struct {
	MaxBytes int64 `env:"MAX_BYTES" envDefault:"10485760"`
}

// Sanitize applies guardrails to upload configuration values.
func (u *UploadConfig) Sanitize() {
	if u.MaxBytes <= 0 {
		u.MaxBytes = 10 << 20
	}
}
