package internal

import (
	"chat-stress/domain"
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	BackendURL   string `env:"BACKEND_URL,default=http://localhost:8080" validate:"required,url"`
	WebsocketURL string `env:"WEBSOCKET_URL,default=ws://localhost:8080/ws" validate:"required,url"`

	NumUsers             int    `env:"NUM_USERS,default=100" validate:"gte=0"`
	EmailDomain          string `env:"EMAIL_DOMAIN,default=example.com" validate:"required,fqdn"`
	UserPassword         string `env:"USER_PASSWORD,default=test123456" validate:"required"`
	ProvisionConcurrency int    `env:"PROVISION_CONCURRENCY,default=0" validate:"gte=0"`
	LoginConcurrency     int    `env:"LOGIN_CONCURRENCY,default=10" validate:"gte=1"`
	CleanupConcurrency   int    `env:"CLEANUP_CONCURRENCY,default=10" validate:"gte=0"`

	MaxConcurrent  int           `env:"MAX_CONCURRENT,default=20" validate:"gte=1"`
	ConnectRetries int           `env:"CONNECT_RETRIES,default=3" validate:"gte=0"`
	RetryDelay     time.Duration `env:"RETRY_DELAY,default=1s" validate:"gte=0"`

	TrafficMinDelay time.Duration `env:"TRAFFIC_MIN_DELAY,default=100ms" validate:"gt=0"`
	TrafficMaxDelay time.Duration `env:"TRAFFIC_MAX_DELAY,default=1s" validate:"gtefield=TrafficMinDelay"`
	DeliveryMode    string        `env:"DELIVERY_MODE,default=http" validate:"oneof=websocket http"`

	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT,default=10s" validate:"gt=0"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT,default=45s" validate:"gt=0"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
	ReportInterval   time.Duration `env:"REPORT_INTERVAL,default=5s" validate:"gt=0"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gte=0"`

	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/identities" validate:"required"`
	AdminToken     string `env:"ADMIN_TOKEN"`
	DebugPort      int    `env:"DEBUG_PORT,default=0" validate:"gte=0,lte=65535"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

var validate = validator.New()

// LoadConfig reads the environment and validates the result.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) Delivery() domain.DeliveryMode {
	// Validated by oneof
	mode, _ := domain.ParseDeliveryMode(c.DeliveryMode)
	return mode
}
