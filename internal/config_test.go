package internal

import (
	"chat-stress/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("EMAIL_DOMAIN", "example.com")

	config, err := LoadConfig()
	req.NoError(err)
	req.Equal(100, config.NumUsers)
	req.Equal(20, config.MaxConcurrent)
	req.Equal(3, config.ConnectRetries)
	req.Equal(10, config.CleanupConcurrency)
	req.Equal(time.Second, config.RetryDelay)
	req.Equal(domain.DeliveryHTTP, config.Delivery())
	req.Equal("INFO", config.LogLevel)
}

func TestLoadConfig_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("NUM_USERS", "500")
	t.Setenv("MAX_CONCURRENT", "5")
	t.Setenv("LOGIN_CONCURRENCY", "3")
	t.Setenv("CLEANUP_CONCURRENCY", "50")
	t.Setenv("DELIVERY_MODE", "websocket")
	t.Setenv("TRAFFIC_MIN_DELAY", "10ms")
	t.Setenv("TRAFFIC_MAX_DELAY", "50ms")

	config, err := LoadConfig()
	req.NoError(err)
	req.Equal(500, config.NumUsers)
	req.Equal(5, config.MaxConcurrent)
	req.Equal(3, config.LoginConcurrency)
	req.Equal(50, config.CleanupConcurrency)
	req.Equal(domain.DeliveryWebsocket, config.Delivery())
	req.Equal(10*time.Millisecond, config.TrafficMinDelay)
	req.Equal(50*time.Millisecond, config.TrafficMaxDelay)
}

func TestLoadConfig_Rejects_Invalid_Values(t *testing.T) {
	cases := map[string]map[string]string{
		"zero gate":            {"MAX_CONCURRENT": "0"},
		"unknown mode":         {"DELIVERY_MODE": "both"},
		"inverted delays":      {"TRAFFIC_MIN_DELAY": "2s", "TRAFFIC_MAX_DELAY": "1s"},
		"bad backend url":      {"BACKEND_URL": "not a url"},
		"unknown log level":    {"LOG_LEVEL": "TRACE"},
		"negative retries":     {"CONNECT_RETRIES": "-1"},
		"negative cleanup":     {"CLEANUP_CONCURRENCY": "-1"},
		"unparseable duration": {"RETRY_DELAY": "soon"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
