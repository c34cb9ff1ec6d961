package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sportello-uk/sportello-backend/api/controllers"
	"github.com/sportello-uk/sportello-backend/api/middleware"
	"github.com/sportello-uk/sportello-backend/internal/forms"
	"github.com/sportello-uk/sportello-backend/pkg/config"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
	pkgredis "github.com/sportello-uk/sportello-backend/pkg/redis"
)

// multipart framing and text fields on top of the file bytes
const formOverheadBytes = 1 << 20

// Services is everything the booking, payment and contact routes call.
type Services interface {
	controllers.BookingService
	controllers.IntentCreator
	controllers.ContactService
}

// RedisStore is the redis surface the router uses. A nil store turns off
// idempotency replay, rate limiting and the readiness ping.
type RedisStore interface {
	pkgredis.IdempotencyStore
	Ping(context.Context) error
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisStore RedisStore,
	gatherer prometheus.Gatherer,
	catalogue *forms.Catalogue,
	bookingService Services,
	onboardingService controllers.OnboardingService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
		middleware.Locale(cfg.App.DefaultLocale, logg),
	)

	var (
		idempotencyStore pkgredis.IdempotencyStore
		pinger           controllers.Pinger
		limits           = func(string) func(http.Handler) http.Handler { return passThrough }
	)
	if redisStore != nil {
		idempotencyStore = redisStore
		pinger = redisStore
		limits = func(name string) func(http.Handler) http.Handler {
			policy := middleware.NewRateLimitPolicy(name, cfg.RateLimit.Window, cfg.RateLimit.PerIP, cfg.RateLimit.PerEmail)
			return middleware.RateLimit(policy, redisStore, logg)
		}
	}

	uploadLimit := func(form string) int64 {
		def, err := catalogue.Get(form)
		if err != nil || def.Encoder == nil {
			return formOverheadBytes
		}
		return def.Encoder.MaxBytes() + formOverheadBytes
	}
	contactLimit := int64(formOverheadBytes)
	if def, err := catalogue.Get("other"); err == nil && def.Encoder != nil {
		contactLimit += def.Encoder.MaxBytes() * int64(max(def.MaxAttachments, 1))
	}

	// group middleware sees only the raw path, so the limit is keyed on it
	bodyLimit := func(r *http.Request) int64 {
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/"), "/")
		switch {
		case path == "contact":
			return contactLimit
		case strings.HasPrefix(path, "onboarding/"):
			return uploadLimit(strings.TrimPrefix(path, "onboarding/"))
		}
		return formOverheadBytes
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pinger))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, bodyLimit, logg))

		r.Get("/forms", controllers.FormsCatalogue(catalogue, logg))
		r.Route("/forms/{form}/sessions", func(r chi.Router) {
			r.Post("/", controllers.BookingMount(bookingService, logg))
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", controllers.BookingView(bookingService, logg))
				r.Patch("/", controllers.BookingPatch(bookingService, logg))
				r.Put("/group-count", controllers.BookingGroupCount(bookingService, logg))
				r.Post("/attachments", controllers.BookingUpload(bookingService, uploadLimit, logg))
				r.Post("/advance", controllers.BookingAdvance(bookingService, logg))
				r.Post("/retreat", controllers.BookingRetreat(bookingService, logg))
				r.Post("/submit", controllers.BookingSubmit(bookingService, logg))
				r.Post("/back", controllers.BookingBack(bookingService, logg))
				r.Post("/confirmation", controllers.BookingConfirmation(bookingService, logg))
				r.Post("/confirmation/result", controllers.BookingConfirmationResult(bookingService, logg))
			})
		})

		r.With(limits("intents")).Post("/payments/intents", controllers.PaymentIntentCreate(bookingService, logg))

		r.Route("/onboarding", func(r chi.Router) {
			r.Get("/context", controllers.OnboardingContext(onboardingService, logg))
			r.With(limits("onboarding")).Post("/{form}", controllers.OnboardingSubmit(onboardingService, uploadLimit, logg))
		})

		r.With(limits("contact")).Post("/contact", controllers.ContactSubmit(bookingService, contactLimit, logg))
	})

	return r
}

func passThrough(next http.Handler) http.Handler {
	return next
}
