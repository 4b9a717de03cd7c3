package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/ttml-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/ttml-backend/api/controllers/admin"
	authcontrollers "github.com/angelmondragon/ttml-backend/api/controllers/auth"
	billingcontrollers "github.com/angelmondragon/ttml-backend/api/controllers/billing"
	employeecontrollers "github.com/angelmondragon/ttml-backend/api/controllers/employee"
	lettercontrollers "github.com/angelmondragon/ttml-backend/api/controllers/letters"
	subscriptioncontrollers "github.com/angelmondragon/ttml-backend/api/controllers/subscriptions"
	"github.com/angelmondragon/ttml-backend/api/middleware"
	"github.com/angelmondragon/ttml-backend/api/responses"
	"github.com/angelmondragon/ttml-backend/internal/audit"
	"github.com/angelmondragon/ttml-backend/internal/auth"
	"github.com/angelmondragon/ttml-backend/pkg/auth/session"
	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ttml-backend/pkg/errors"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/redis"
)

// Params carries everything the router hands to middleware and controllers.
// Redis may be nil, in which case rate limiting and idempotency are skipped.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Audit    audit.Recorder

	Auth          auth.Service
	Users         admincontrollers.UserService
	Letters       lettercontrollers.LetterService
	AllLetters    admincontrollers.LetterLister
	Quota         lettercontrollers.QuotaService
	Checkout      billingcontrollers.CheckoutService
	Subscriptions subscriptioncontrollers.Service
	SubList       admincontrollers.SubscriptionLister
	Coupons       admincontrollers.CouponService
	CouponCheck   billingcontrollers.CouponValidator
	Commissions   admincontrollers.CommissionService
	Earnings      employeecontrollers.CommissionLister
	Purchases     billingcontrollers.PurchaseService
	Employees     employeecontrollers.StatsService
	AuditLogs     admincontrollers.AuditLister
}

type windowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicURL),
		middleware.RequestMeta(),
	)

	// Middleware checks its store against nil, so a nil client must not
	// reach it wrapped in a non-nil interface.
	var (
		windows   windowStore
		idemStore redis.IdempotencyStore
		deps      = map[string]controllers.Pinger{}
	)
	if p.DB != nil {
		deps["db"] = p.DB
	}
	if p.Redis != nil {
		windows, idemStore = p.Redis, p.Redis
		deps["redis"] = p.Redis
	}

	idempotent := middleware.Idempotency(idemStore, cfg.Idempotency, logg)
	limit := func(endpoint string, n int) func(http.Handler) http.Handler {
		return middleware.RateLimit(middleware.RateLimitPolicy{
			Endpoint: endpoint,
			Limit:    n,
			Window:   cfg.RateLimit.Window,
		}, windows, p.Audit, logg)
	}

	loginLimit := middleware.AuthRateLimit(middleware.AuthRateLimitPolicy{
		Endpoint:   "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
		EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
	}, windows, p.Audit, logg)
	registerLimit := middleware.AuthRateLimit(middleware.AuthRateLimitPolicy{
		Endpoint:   "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		IPLimit:    cfg.AuthRateLimit.RegisterIPLimit,
		EmailLimit: cfg.AuthRateLimit.RegisterEmailLimit,
	}, windows, p.Audit, logg)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "no route for "+req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, req.Method+" is not supported here"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(registerLimit).Post("/register", authcontrollers.Register(p.Auth, logg))
		r.With(loginLimit).Post("/login", authcontrollers.Login(p.Auth, logg))
		r.Post("/refresh", authcontrollers.Refresh(p.Auth, logg))
		r.Post("/logout", authcontrollers.Logout(p.Auth, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/letter-types", lettercontrollers.Types())
		r.Get("/plans", billingcontrollers.Plans())
		r.With(limit("validate-coupon", cfg.RateLimit.CouponLimit)).
			Get("/validate-coupon", billingcontrollers.ValidateCoupon(p.CouponCheck, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

			r.Get("/me", authcontrollers.Me(p.Auth, logg))

			r.Route("/letters", func(r chi.Router) {
				r.Get("/", lettercontrollers.List(p.Letters, logg))
				r.Get("/quota", lettercontrollers.Quota(p.Quota, logg))
				r.With(idempotent, limit("generate", cfg.RateLimit.GenerateLimit)).
					Post("/generate", lettercontrollers.Generate(p.Letters, logg))
				r.Get("/{id}", lettercontrollers.Get(p.Letters, logg))
				r.Get("/{id}/pdf", lettercontrollers.PDF(p.Letters, logg))
				r.With(limit("send-email", cfg.RateLimit.SendEmailLimit)).
					Post("/{id}/send-email", lettercontrollers.SendEmail(p.Letters, logg))
			})

			r.With(idempotent, limit("checkout", cfg.RateLimit.CheckoutLimit)).
				Post("/checkout", billingcontrollers.Checkout(p.Checkout, logg))

			r.Route("/subscriptions", func(r chi.Router) {
				r.Get("/", subscriptioncontrollers.List(p.Subscriptions, logg))
				r.Post("/{id}/cancel", subscriptioncontrollers.Cancel(p.Subscriptions, logg))
			})
			r.Route("/purchases", func(r chi.Router) {
				r.Get("/", billingcontrollers.Purchases(p.Purchases, logg))
				r.Get("/{id}/receipt", billingcontrollers.Receipt(p.Purchases, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
				r.Get("/users", admincontrollers.ListUsers(p.Users, logg))
				r.Patch("/users/{id}/role", admincontrollers.ChangeUserRole(p.Users, logg))
				r.Get("/letters", admincontrollers.ListLetters(p.AllLetters, logg))
				r.Get("/subscriptions", admincontrollers.ListSubscriptions(p.SubList, logg))
				r.Post("/subscriptions/{id}/cancel", subscriptioncontrollers.Cancel(p.Subscriptions, logg))
				r.Get("/coupons", admincontrollers.ListCoupons(p.Coupons, logg))
				r.Post("/coupons", admincontrollers.CreateCoupon(p.Coupons, logg))
				r.Patch("/coupons/{id}", admincontrollers.UpdateCoupon(p.Coupons, logg))
				r.Get("/commissions", admincontrollers.ListCommissions(p.Commissions, logg))
				r.Post("/commissions/{id}/pay", admincontrollers.PayCommission(p.Commissions, logg))
				r.Post("/commissions/{id}/cancel", admincontrollers.CancelCommission(p.Commissions, logg))
				r.Get("/audit-logs", admincontrollers.ListAuditLogs(p.AuditLogs, logg))
			})

			r.Route("/employee", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleEmployee, enums.RoleAdmin))
				r.Get("/stats", employeecontrollers.Stats(p.Employees, logg))
				r.Get("/coupons", employeecontrollers.Coupons(p.Coupons, logg))
				r.Get("/commissions", employeecontrollers.Commissions(p.Earnings, logg))
			})
		})
	})

	return r
}
