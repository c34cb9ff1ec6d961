package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/sportello-uk/sportello-backend/pkg/config"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired         = errors.New("stripe api key is required")
	errPublishableKeyRequired = errors.New("stripe publishable key is required")
	errInvalidStripeEnv       = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's payment intent API plus env-specific metadata.
type Client struct {
	environment    string
	publishableKey string
	currency       string
	logger         *logger.Logger
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	publishable := strings.TrimSpace(cfg.PublishableKey)
	if publishable == "" {
		return nil, errPublishableKeyRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyGBP)
	}

	return &Client{
		environment:    env,
		publishableKey: publishable,
		currency:       currency,
		logger:         logg,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// PublishableKey is handed to the browser to mount the embedded payment UI.
func (c *Client) PublishableKey() string {
	if c == nil {
		return ""
	}
	return c.publishableKey
}

// Currency is the ISO currency every intent is created in.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

func (c *Client) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params == nil {
		return nil, errors.New("payment intent params required")
	}
	params.Context = ctx
	c.log(ctx, "request", "create_payment_intent", map[string]any{
		"amount":   int64Value(params.Amount),
		"currency": stringValue(params.Currency),
	})

	pi, err := paymentintent.New(params)
	if err != nil {
		c.log(ctx, "error", "create_payment_intent", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_payment_intent", map[string]any{
		"payment_intent_id": pi.ID,
		"status":            string(pi.Status),
		"client_secret":     pi.ClientSecret,
	})
	return pi, nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	c.log(ctx, "request", "get_payment_intent", map[string]any{"payment_intent_id": id})

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		c.log(ctx, "error", "get_payment_intent", map[string]any{"error": err.Error()})
		return nil, err
	}
	c.log(ctx, "response", "get_payment_intent", map[string]any{
		"payment_intent_id": pi.ID,
		"status":            string(pi.Status),
	})
	return pi, nil
}

func (c *Client) CancelPaymentIntent(ctx context.Context, id, reason string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	if reason != "" {
		params.CancellationReason = stripe.String(reason)
	}
	params.Context = ctx
	c.log(ctx, "request", "cancel_payment_intent", map[string]any{"payment_intent_id": id, "reason": reason})

	pi, err := paymentintent.Cancel(id, params)
	if err != nil {
		c.log(ctx, "error", "cancel_payment_intent", map[string]any{"error": err.Error()})
		return nil, err
	}
	c.log(ctx, "response", "cancel_payment_intent", map[string]any{
		"payment_intent_id": pi.ID,
		"status":            string(pi.Status),
	})
	return pi, nil
}

// FindPaymentIntentByMetadata returns the most recent intent whose metadata
// key equals value, or nil when none matches.
func (c *Client) FindPaymentIntentByMetadata(ctx context.Context, key, value string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentSearchParams{}
	params.Query = fmt.Sprintf("metadata['%s']:'%s'", key, strings.ReplaceAll(value, "'", ""))
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	c.log(ctx, "request", "search_payment_intents", map[string]any{"metadata_key": key})

	iter := paymentintent.Search(params)
	for iter.Next() {
		pi := iter.PaymentIntent()
		c.log(ctx, "response", "search_payment_intents", map[string]any{"payment_intent_id": pi.ID})
		return pi, nil
	}
	if err := iter.Err(); err != nil {
		c.log(ctx, "error", "search_payment_intents", map[string]any{"error": err.Error()})
		return nil, err
	}
	return nil, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("stripe %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("stripe %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "secret", "token", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}

func int64Value(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
