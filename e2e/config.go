package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_BACKEND_URL targets a real backend instead of the in-process one
	BackendURL   string `envconfig:"E2E_BACKEND_URL"`
	WebsocketURL string `envconfig:"E2E_WEBSOCKET_URL"`
	AdminToken   string `envconfig:"E2E_ADMIN_TOKEN" default:"e2e-admin"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

// External reports whether the suite runs against a real backend.
func (c Config) External() bool {
	return c.BackendURL != "" && c.WebsocketURL != ""
}
