package middleware

import (
	"net/http"

	"github.com/sportello-uk/sportello-backend/pkg/locale"
	"github.com/sportello-uk/sportello-backend/pkg/logger"
)

// Locale negotiates en/it from the ?locale= parameter, then Accept-Language.
func Locale(fallback string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := locale.Resolve(r.URL.Query().Get("locale"), r.Header.Get("Accept-Language"), fallback)
			w.Header().Set("Content-Language", loc)
			ctx := WithLocale(r.Context(), loc)
			if logg != nil {
				ctx = logg.WithField(ctx, "locale", loc)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
