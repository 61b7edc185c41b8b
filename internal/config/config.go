package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is shared by both binaries. Worker-only settings carry no
// env-required tag so the gateway can start without SMTP or VAPID
// credentials; ValidateWorker enforces them where they matter.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	RedisAddr   string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	NATSURL     string `env:"NATS_URL" env-default:""`

	SMTPFrom string `env:"SMTP_FROM" env-default:"no-reply@web-store4eto.com"`
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPPort string `env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `env:"SMTP_USER"`

	VAPIDSubject    string `env:"VAPID_MAILTO"`
	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`

	// APIBaseURL is the internal REST API the gateway proxies api_call
	// messages to.
	APIBaseURL string `env:"API_BASE_URL" env-default:"http://localhost:3000"`
	// RelayURL is where the worker forwards in-app events (the gateway's
	// POST /message endpoint).
	RelayURL string `env:"RELAY_URL" env-default:"http://localhost:5004"`

	GatewayAddr string `env:"GATEWAY_ADDR" env-default:":5004"`
	SocketPath  string `env:"SOCKET_PATH" env-default:"/ws/notifications"`

	BatchSize          int `env:"QUEUE_BATCH_SIZE" env-default:"10"`
	MaxAttempts        int `env:"QUEUE_MAX_ATTEMPTS" env-default:"5"`
	PollIntervalSec    int `env:"QUEUE_POLL_INTERVAL_SEC" env-default:"30"`
	LeaseTimeoutMin    int `env:"QUEUE_LEASE_TIMEOUT_MIN" env-default:"10"`
	RetryInitialMin    int `env:"RETRY_INITIAL_MIN" env-default:"5"`
	RetryMultiplier    int `env:"RETRY_MULTIPLIER" env-default:"2"`
	RetryMaxMin        int `env:"RETRY_MAX_MIN" env-default:"120"`
	StreamThresholdKiB int `env:"STREAM_THRESHOLD_KIB" env-default:"64"`

	DryRun        bool `env:"DRY_RUN" env-default:"false"`
	WebPushDryRun bool `env:"WEB_PUSH_DRY_RUN" env-default:"false"`
}

func Load() (*Config, error) {
	var cfg Config

	// Environment variables only; no config files.
	err := cleanenv.ReadEnv(&cfg)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return &cfg, nil
}

// ValidateWorker reports the settings the queue worker cannot run without.
func (c *Config) ValidateWorker() error {
	required := []struct {
		name, value string
	}{
		{"DATABASE_URL", c.DatabaseURL},
		{"SMTP_HOST", c.SMTPHost},
		{"SMTP_USER", c.SMTPUser},
		{"SMTP_PASS", c.SMTPPass},
		{"VAPID_MAILTO", c.VAPIDSubject},
		{"VAPID_PUBLIC_KEY", c.VAPIDPublicKey},
		{"VAPID_PRIVATE_KEY", c.VAPIDPrivateKey},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config error: missing %s", strings.Join(missing, ", "))
	}
	return nil
}
