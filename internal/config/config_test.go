package config

import (
	"strings"
	"testing"
)

func workerConfig() Config {
	return Config{
		DatabaseURL:     "postgres://localhost/store",
		SMTPHost:        "mail.example.com",
		SMTPUser:        "mailer",
		SMTPPass:        "secret",
		VAPIDSubject:    "mailto:ops@example.com",
		VAPIDPublicKey:  "pub",
		VAPIDPrivateKey: "priv",
	}
}

func TestValidateWorker_CompleteConfig(t *testing.T) {
	cfg := workerConfig()
	if err := cfg.ValidateWorker(); err != nil {
		t.Fatalf("complete config: %v", err)
	}
}

func TestValidateWorker_NamesEveryMissingSetting(t *testing.T) {
	var cfg Config
	err := cfg.ValidateWorker()
	if err == nil {
		t.Fatal("empty config must fail worker validation")
	}
	for _, name := range []string{"DATABASE_URL", "SMTP_HOST", "SMTP_USER", "SMTP_PASS", "VAPID_MAILTO", "VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error does not name %s: %v", name, err)
		}
	}
}

func TestValidateWorker_SingleMissingSetting(t *testing.T) {
	cfg := workerConfig()
	cfg.VAPIDPrivateKey = ""
	err := cfg.ValidateWorker()
	if err == nil || !strings.Contains(err.Error(), "VAPID_PRIVATE_KEY") {
		t.Fatalf("want VAPID_PRIVATE_KEY named, got %v", err)
	}
	if strings.Contains(err.Error(), "SMTP_HOST") {
		t.Errorf("present settings must not be reported: %v", err)
	}
}

// The gateway binary shares this struct but needs none of the worker
// credentials, so a bare environment must still load.
func TestLoad_GatewayNeedsNoWorkerSecrets(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "SMTP_HOST", "SMTP_USER", "SMTP_PASS",
		"VAPID_MAILTO", "VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GatewayAddr != ":5004" || cfg.SocketPath != "/ws/notifications" {
		t.Errorf("defaults: addr=%q path=%q", cfg.GatewayAddr, cfg.SocketPath)
	}
}
