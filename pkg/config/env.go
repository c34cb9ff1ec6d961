package config

const (
	EnvPrefix = "SPORTELLO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

const (
	EnvAppEnv               = "SPORTELLO_APP_ENV"
	EnvPort                 = "SPORTELLO_APP_PORT"
	EnvPublicBaseURL        = "SPORTELLO_PUBLIC_BASE_URL"
	EnvRedisURL             = "SPORTELLO_REDIS_URL"
	EnvRedisAddr            = "SPORTELLO_REDIS_ADDR"
	EnvSessionBackend       = "SPORTELLO_SESSION_BACKEND"
	EnvSessionTTL           = "SPORTELLO_SESSION_TTL"
	EnvAuditURL             = "SPORTELLO_AUDIT_URL"
	EnvAuditToken           = "SPORTELLO_AUDIT_TOKEN"
	EnvAuditGrace           = "SPORTELLO_AUDIT_GRACE"
	EnvOnboardingURL        = "SPORTELLO_ONBOARDING_URL"
	EnvStripeAPIKey         = "SPORTELLO_STRIPE_API_KEY"
	EnvStripePublishableKey = "SPORTELLO_STRIPE_PUBLISHABLE_KEY"
	EnvAttachmentMaxMB      = "SPORTELLO_ATTACHMENT_MAX_MB"
	EnvAttachmentMaxByForm  = "SPORTELLO_ATTACHMENT_MAX_MB_BY_FORM"
	EnvPricingOverrides     = "SPORTELLO_PRICING_OVERRIDES"
	EnvReturnURLMaxQuery    = "SPORTELLO_RETURN_URL_MAX_QUERY_BYTES"
)
