package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                    int    `env:"PORT" envDefault:"8080"`
	DatabaseURL             string `env:"DATABASE_URL,required"`
	RedisURL                string `env:"REDIS_URL,required"`
	GatewayBaseURL          string `env:"GATEWAY_BASE_URL,required"`
	GatewayAPIKey           string `env:"GATEWAY_API_KEY"`
	WorkflowBaseURL         string `env:"WORKFLOW_BASE_URL,required"`
	WebhookSecret           string `env:"WEBHOOK_SECRET"`
	EncryptionKey           string `env:"ENCRYPTION_KEY"`
	OutboundTimeoutSeconds  int    `env:"OUTBOUND_TIMEOUT_SECONDS" envDefault:"15"`
	DedupeTTLSeconds        int    `env:"DEDUPE_TTL_SECONDS" envDefault:"86400"`
	HandoffLogRetentionDays int    `env:"HANDOFF_LOG_RETENTION_DAYS" envDefault:"90"`
	RetentionSchedule       string `env:"RETENTION_SCHEDULE" envDefault:"@daily"`
	LogLevel                string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) OutboundTimeout() time.Duration {
	return time.Duration(c.OutboundTimeoutSeconds) * time.Second
}

func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLSeconds) * time.Second
}

func (c *Config) HandoffLogRetention() time.Duration {
	return time.Duration(c.HandoffLogRetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	for name, raw := range map[string]string{
		"GATEWAY_BASE_URL":  c.GatewayBaseURL,
		"WORKFLOW_BASE_URL": c.WorkflowBaseURL,
	} {
		if err := validateBaseURL(name, raw); err != nil {
			return err
		}
	}

	if c.OutboundTimeoutSeconds <= 0 || c.OutboundTimeoutSeconds > MaxOutboundTimeoutSeconds {
		return fmt.Errorf("OUTBOUND_TIMEOUT_SECONDS must be between 1 and %d", MaxOutboundTimeoutSeconds)
	}

	if c.EncryptionKey != "" && len(c.EncryptionKey) != 64 {
		return fmt.Errorf("ENCRYPTION_KEY must be 32 bytes hex encoded (generate with: openssl rand -hex 32)")
	}

	if isProduction {
		if c.GatewayAPIKey == "" {
			log.Warn().Msg("GATEWAY_API_KEY is empty in production: gateway send calls will be unauthenticated")
		}
		if c.WebhookSecret == "" {
			log.Warn().Msg("WEBHOOK_SECRET is empty in production: webhook signature verification disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.EncryptionKey == "" {
			log.Warn().Msg("ENCRYPTION_KEY is empty in production: inbox API tokens are stored in plain text")
		}
	}

	return nil
}

func validateBaseURL(name, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", name)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.GatewayBaseURL = strings.TrimRight(cfg.GatewayBaseURL, "/")
	cfg.WorkflowBaseURL = strings.TrimRight(cfg.WorkflowBaseURL, "/")
	return &cfg, nil
}
