package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-content-dashboard/config"
)

func TestValidateServiceConfig(t *testing.T) {
	tests := []struct {
		name     string
		services string
		watch    bool
		wantErr  bool
	}{
		{name: "http and jobwatch", services: "http,jobwatch", watch: true},
		{name: "http only", services: "http"},
		{name: "empty", services: " ", wantErr: true},
		{name: "unknown mode", services: "http,scheduler", wantErr: true},
		{name: "disabled watcher alone", services: "jobwatch", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.AppConfig{Services: tt.services, Watcher: config.WatcherConfig{Enabled: tt.watch}}
			err := ValidateServiceConfig(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	require.Error(t, ValidateServiceConfig(nil))
}

func TestGetEnabledServices(t *testing.T) {
	assert.Equal(t, []string{"http", "jobwatch"}, GetEnabledServices(&config.AppConfig{Services: "jobwatch, http"}))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Empty(t, GetEnabledServices(nil))
}
