package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	Redis       RedisConfig
	Sessions    SessionsConfig
	Audit       AuditConfig
	Onboarding  OnboardingConfig
	Stripe      StripeConfig
	Attachments AttachmentsConfig
	Pricing     PricingConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"SPORTELLO_APP_ENV" required:"true"`
	Port          string `envconfig:"SPORTELLO_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"SPORTELLO_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"SPORTELLO_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"SPORTELLO_PUBLIC_BASE_URL" required:"true"`
	DefaultLocale string `envconfig:"SPORTELLO_DEFAULT_LOCALE" default:"en"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"SPORTELLO_REDIS_URL"`
	Address      string        `envconfig:"SPORTELLO_REDIS_ADDR"`
	Password     string        `envconfig:"SPORTELLO_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPORTELLO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPORTELLO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPORTELLO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPORTELLO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPORTELLO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPORTELLO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether any redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type SessionsConfig struct {
	Backend string        `envconfig:"SPORTELLO_SESSION_BACKEND" default:"redis"`
	TTL     time.Duration `envconfig:"SPORTELLO_SESSION_TTL" default:"2h"`
}

type AuditConfig struct {
	URL     string        `envconfig:"SPORTELLO_AUDIT_URL" required:"true"`
	Token   string        `envconfig:"SPORTELLO_AUDIT_TOKEN" required:"true"`
	Timeout time.Duration `envconfig:"SPORTELLO_AUDIT_TIMEOUT" default:"10s"`
	Grace   time.Duration `envconfig:"SPORTELLO_AUDIT_GRACE" default:"500ms"`
}

type OnboardingConfig struct {
	URL           string        `envconfig:"SPORTELLO_ONBOARDING_URL" required:"true"`
	Token         string        `envconfig:"SPORTELLO_ONBOARDING_TOKEN"`
	Timeout       time.Duration `envconfig:"SPORTELLO_ONBOARDING_TIMEOUT" default:"20s"`
	MaxQueryBytes int           `envconfig:"SPORTELLO_RETURN_URL_MAX_QUERY_BYTES" default:"2048"`
}

type StripeConfig struct {
	APIKey         string `envconfig:"SPORTELLO_STRIPE_API_KEY" required:"true"`
	PublishableKey string `envconfig:"SPORTELLO_STRIPE_PUBLISHABLE_KEY" required:"true"`
	Env            string `envconfig:"SPORTELLO_STRIPE_ENV" default:"test"`
	Currency       string `envconfig:"SPORTELLO_STRIPE_CURRENCY" default:"gbp"`
	VoidAbandoned  bool   `envconfig:"SPORTELLO_STRIPE_VOID_ABANDONED" default:"true"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

const defaultAttachmentMB = 5

type AttachmentsConfig struct {
	AllowedTypes []string       `envconfig:"SPORTELLO_ATTACHMENT_TYPES" default:"application/pdf,image/jpeg,image/png"`
	DefaultMaxMB int            `envconfig:"SPORTELLO_ATTACHMENT_MAX_MB" default:"5"`
	MaxMBByForm  map[string]int `envconfig:"SPORTELLO_ATTACHMENT_MAX_MB_BY_FORM"`
}

// MaxBytesFor resolves the size limit for a form. A per-form override wins,
// then the form's own built-in limit (builtinMB, zero when it has none),
// then DefaultMaxMB.
func (a AttachmentsConfig) MaxBytesFor(form string, builtinMB int) int64 {
	if mb, ok := a.MaxMBByForm[form]; ok && mb > 0 {
		return int64(mb) << 20
	}
	if builtinMB > 0 {
		return int64(builtinMB) << 20
	}
	if a.DefaultMaxMB > 0 {
		return int64(a.DefaultMaxMB) << 20
	}
	return defaultAttachmentMB << 20
}

type PricingConfig struct {
	// Overrides keyed by "<form>.<tier>" with decimal amounts, e.g. passport.1:45.
	Overrides map[string]string `envconfig:"SPORTELLO_PRICING_OVERRIDES"`
}

// OverridesFor returns the tier->amount overrides that apply to one form.
func (p PricingConfig) OverridesFor(form string) map[string]string {
	out := map[string]string{}
	prefix := form + "."
	for key, amount := range p.Overrides {
		if tier, ok := strings.CutPrefix(key, prefix); ok && tier != "" {
			out[tier] = strings.TrimSpace(amount)
		}
	}
	return out
}

// RateLimitConfig throttles the public submission endpoints when redis is
// available. Zero limits disable a dimension.
type RateLimitConfig struct {
	Window   time.Duration `envconfig:"SPORTELLO_RATE_LIMIT_WINDOW" default:"10m"`
	PerIP    int           `envconfig:"SPORTELLO_RATE_LIMIT_PER_IP" default:"30"`
	PerEmail int           `envconfig:"SPORTELLO_RATE_LIMIT_PER_EMAIL" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SPORTELLO_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (c *Config) validate() error {
	base, err := url.Parse(strings.TrimSpace(c.App.PublicBaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvPublicBaseURL)
	}
	switch strings.ToLower(c.Sessions.Backend) {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if !c.Redis.Configured() {
			return fmt.Errorf("%s or %s is required when %s=%s", EnvRedisURL, EnvRedisAddr, EnvSessionBackend, SessionBackendRedis)
		}
	default:
		return fmt.Errorf("%s must be %q or %q", EnvSessionBackend, SessionBackendMemory, SessionBackendRedis)
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvSessionTTL)
	}
	for key, amount := range c.Pricing.Overrides {
		if !strings.Contains(key, ".") {
			return fmt.Errorf("%s: key %q must be <form>.<tier>", EnvPricingOverrides, key)
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(amount), 64); err != nil {
			return fmt.Errorf("%s: amount for %q is not numeric", EnvPricingOverrides, key)
		}
	}
	if c.Onboarding.MaxQueryBytes <= 0 {
		return fmt.Errorf("%s must be positive", EnvReturnURLMaxQuery)
	}
	return nil
}
