package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/memorial-backend/api/controllers"
	"github.com/angelmondragon/memorial-backend/api/middleware"
	"github.com/angelmondragon/memorial-backend/api/responses"
	"github.com/angelmondragon/memorial-backend/internal/auth"
	"github.com/angelmondragon/memorial-backend/internal/billing"
	"github.com/angelmondragon/memorial-backend/internal/interactions"
	"github.com/angelmondragon/memorial-backend/internal/memorials"
	"github.com/angelmondragon/memorial-backend/pkg/auth/session"
	"github.com/angelmondragon/memorial-backend/pkg/config"
	"github.com/angelmondragon/memorial-backend/pkg/db"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
	"github.com/angelmondragon/memorial-backend/pkg/metrics"
	"github.com/angelmondragon/memorial-backend/pkg/redis"
)

// Deps carries everything the router wires. Redis, Sessions, Metrics and
// StaticDirs are optional.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	Readiness    *db.Readiness
	Redis        *redis.Client
	Sessions     session.AccessSessionChecker
	Metrics      *metrics.Metrics
	Auth         auth.Service
	Memorials    memorials.Service
	Interactions interactions.Service
	Music        controllers.MusicLister
	Billing      billing.Service
	// StaticDirs maps a URL prefix such as "/uploads" to the directory served there.
	StaticDirs map[string]string
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	// Interfaces stay nil without Redis so the middleware can switch itself off.
	var (
		cache       controllers.Pinger
		idempotency redis.IdempotencyStore
		rateLimiter middleware.WindowLimiter
	)
	if d.Redis != nil {
		cache, idempotency, rateLimiter = d.Redis, d.Redis, d.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Readiness, cache))
	})

	for prefix, dir := range d.StaticDirs {
		prefix = "/" + strings.Trim(prefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(dir))))
	}

	requireAuth := middleware.Auth(cfg.JWT, d.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, d.Sessions, logg)
	idem := middleware.Idempotency(idempotency, middleware.DefaultIdempotencyTTL, logg)
	paymentIdem := middleware.Idempotency(idempotency, middleware.PaymentIdempotencyTTL, logg)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(apiNotFound(logg))

		r.Get("/music", controllers.MusicList(d.Music, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.StoreReady(d.Readiness, logg))

			r.Route("/auth", func(r chi.Router) {
				r.With(middleware.RateLimit(middleware.SignupPolicy(cfg.AuthRateLimit), rateLimiter, logg)).
					Post("/signup", controllers.AuthSignup(d.Auth, logg))
				r.With(middleware.RateLimit(middleware.LoginPolicy(cfg.AuthRateLimit), rateLimiter, logg)).
					Post("/login", controllers.AuthLogin(d.Auth, logg))
				r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
				r.With(requireAuth).Get("/me", controllers.AuthMe(d.Auth, logg))
				r.With(requireAuth).Post("/logout", controllers.AuthLogout(d.Auth, logg))
			})

			r.Route("/memorials", func(r chi.Router) {
				r.Get("/", controllers.MemorialList(d.Memorials, logg))
				r.With(optionalAuth).Post("/", controllers.MemorialCreate(d.Memorials, cfg.Media, logg))
				r.With(requireAuth).Get("/user/my", controllers.MemorialListMine(d.Memorials, logg))

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", controllers.MemorialGet(d.Memorials, logg))
					r.With(requireAuth).Put("/", controllers.MemorialUpdate(d.Memorials, cfg.Media, logg))
					r.With(requireAuth, middleware.RequireRole(enums.SystemRoleAdmin, logg)).
						Delete("/", controllers.MemorialDelete(d.Memorials, logg))
					r.With(requireAuth).Post("/upload", controllers.MemorialUpload(d.Memorials, cfg.Media, logg))

					r.Get("/condolences", controllers.CondolenceList(d.Interactions, logg))
					r.With(optionalAuth, idem).Post("/condolences", controllers.CondolenceCreate(d.Interactions, logg))
					r.Get("/candles", controllers.CandleList(d.Interactions, logg))
					r.Post("/candles", controllers.CandleLight(d.Interactions, logg))
				})
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/plans", controllers.BillingPlans(d.Billing))
				r.Group(func(r chi.Router) {
					r.Use(requireAuth)
					r.Get("/", controllers.PaymentList(d.Billing, logg))
					r.With(paymentIdem).Post("/create", controllers.PaymentCreate(d.Billing, logg))
					r.With(paymentIdem).Post("/confirm", controllers.PaymentConfirm(d.Billing, logg))
				})
			})

			r.With(requireAuth).Get("/subscriptions", controllers.SubscriptionList(d.Billing, logg))
		})
	})

	return r
}

func apiNotFound(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "API endpoint not found"))
	}
}
