package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lensbook/lensbook-backend/api/controllers"
	albumcontrollers "github.com/lensbook/lensbook-backend/api/controllers/albums"
	complaintcontrollers "github.com/lensbook/lensbook-backend/api/controllers/complaints"
	ordercontrollers "github.com/lensbook/lensbook-backend/api/controllers/orders"
	settlementcontrollers "github.com/lensbook/lensbook-backend/api/controllers/settlement"
	"github.com/lensbook/lensbook-backend/api/middleware"
	"github.com/lensbook/lensbook-backend/internal/albums"
	"github.com/lensbook/lensbook-backend/internal/auth"
	"github.com/lensbook/lensbook-backend/internal/complaints"
	"github.com/lensbook/lensbook-backend/internal/ledger"
	"github.com/lensbook/lensbook-backend/internal/notifications"
	"github.com/lensbook/lensbook-backend/internal/orders"
	"github.com/lensbook/lensbook-backend/internal/paymentmethods"
	"github.com/lensbook/lensbook-backend/internal/servicefees"
	"github.com/lensbook/lensbook-backend/internal/settlement"
	"github.com/lensbook/lensbook-backend/pkg/auth/session"
	"github.com/lensbook/lensbook-backend/pkg/config"
	"github.com/lensbook/lensbook-backend/pkg/enums"
	"github.com/lensbook/lensbook-backend/pkg/logger"
	"github.com/lensbook/lensbook-backend/pkg/metrics"
)

// RedisStore is the slice of the redis client the HTTP layer depends on.
type RedisStore interface {
	middleware.IdempotencyStore
	controllers.Pinger
	albumcontrollers.ViewCounter
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the API router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Auth           auth.Service
	Register       auth.RegisterService
	Orders         orders.Service
	Settlement     settlement.Service
	Albums         albums.Service
	Complaints     complaints.Service
	ServiceFees    servicefees.Service
	PaymentMethods paymentmethods.Service
	Ledger         ledger.Service
	Notifications  notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTP),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    d.DB,
			"redis": d.Redis,
		}, logg))
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, d.Redis, logg),
			middleware.Idempotency(d.Redis, logg),
		).Post("/register", controllers.AuthRegister(d.Register, d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
	})

	r.Route("/api/v1/share/albums/{token}", func(r chi.Router) {
		r.Get("/", albumcontrollers.PublicAlbum(d.Albums, d.Redis, logg))
		r.Post("/selection", albumcontrollers.PublicSelection(d.Albums, logg))
	})

	r.Get("/api/v1/payment-methods/public", controllers.PaymentMethodsPublic(d.PaymentMethods, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.Idempotency(d.Redis, logg))

		admin := middleware.RequireRole(logg, enums.RoleAdmin)
		customer := middleware.RequireRole(logg, enums.RoleCustomer)
		photographer := middleware.RequireRole(logg, enums.RolePhotographer)
		reviewer := middleware.RequireRole(logg, enums.RoleAdmin, enums.RolePhotographer)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(customer).Post("/", ordercontrollers.Create(d.Orders, logg))
			r.Get("/", ordercontrollers.List(d.Orders, logg))
			r.Post("/travel-quote", ordercontrollers.QuoteTravelFee(d.Orders, logg))
			r.Get("/stats", ordercontrollers.Stats(d.Orders, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(d.Orders, logg))
				r.Get("/history", ordercontrollers.History(d.Orders, logg))
				r.Get("/payment-qr", ordercontrollers.PaymentQR(d.Orders, logg))
				r.With(admin).Get("/ledger", ordercontrollers.Ledger(d.Ledger, logg))

				r.With(customer).Post("/deposit-proof", ordercontrollers.SubmitDepositProof(d.Orders, logg))
				r.With(customer).Post("/final-payment-proof", ordercontrollers.SubmitFinalPaymentProof(d.Orders, logg))
				r.With(customer).Post("/confirm-completion", ordercontrollers.ConfirmCompletion(d.Orders, logg))
				r.With(reviewer).Post("/approve-payment", ordercontrollers.ApprovePayment(d.Orders, logg))
				r.With(reviewer).Post("/reject-payment", ordercontrollers.RejectPayment(d.Orders, logg))
				r.Post("/cancel", ordercontrollers.Cancel(d.Orders, logg))
				r.With(photographer).Post("/start", ordercontrollers.Start(d.Orders, logg))
				r.With(photographer).Post("/request-final-payment", ordercontrollers.RequestFinalPayment(d.Orders, logg))
				r.With(admin).Post("/transition", ordercontrollers.Transition(d.Orders, logg))

				r.With(photographer).Post("/photos", albumcontrollers.UploadOrderPhotos(d.Albums, logg))
				r.Get("/album", albumcontrollers.OrderAlbum(d.Albums, logg))
			})
		})

		r.Route("/albums", func(r chi.Router) {
			r.Get("/", albumcontrollers.List(d.Albums, logg))
			r.With(photographer).Post("/", albumcontrollers.CreateFreelance(d.Albums, logg))

			r.Route("/{albumId}", func(r chi.Router) {
				r.Get("/", albumcontrollers.Detail(d.Albums, logg))
				r.With(customer).Put("/selection", albumcontrollers.SubmitSelection(d.Albums, logg))

				r.Group(func(r chi.Router) {
					r.Use(photographer)
					r.Patch("/", albumcontrollers.UpdateDetails(d.Albums, logg))
					r.Delete("/", albumcontrollers.Delete(d.Albums, logg))
					r.Post("/photos", albumcontrollers.AddPhotos(d.Albums, logg))
					r.Delete("/photos/{photoId}", albumcontrollers.DeletePhoto(d.Albums, logg))
					r.Post("/deliver", albumcontrollers.Deliver(d.Albums, logg))
					r.Post("/share", albumcontrollers.CreateShareLink(d.Albums, logg))
					r.Delete("/share", albumcontrollers.RevokeShareLink(d.Albums, logg))
				})
			})
		})

		r.Route("/complaints", func(r chi.Router) {
			r.With(customer).Post("/", complaintcontrollers.Create(d.Complaints, logg))
			r.Get("/", complaintcontrollers.List(d.Complaints, logg))
			r.Get("/{complaintId}", complaintcontrollers.Detail(d.Complaints, logg))
			r.With(admin).Post("/{complaintId}/negotiate", complaintcontrollers.Negotiate(d.Complaints, logg))
			r.With(admin).Post("/{complaintId}/process", complaintcontrollers.Process(d.Complaints, logg))
			r.With(admin).Post("/{complaintId}/resolve", complaintcontrollers.Resolve(d.Complaints, logg))
		})

		r.Route("/settlements", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", settlementcontrollers.List(d.Settlement, logg))
			r.Get("/summary", settlementcontrollers.Summary(d.Settlement, logg))
			r.Post("/{orderId}/settle", settlementcontrollers.Settle(d.Settlement, logg))
		})

		r.Get("/service-fees/active", controllers.ServiceFeeActive(d.ServiceFees, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(admin)
			r.Route("/service-fees", func(r chi.Router) {
				r.Get("/", controllers.ServiceFeeList(d.ServiceFees, logg))
				r.Post("/", controllers.ServiceFeeCreate(d.ServiceFees, logg))
				r.Put("/{feeId}", controllers.ServiceFeeUpdate(d.ServiceFees, logg))
				r.Delete("/{feeId}", controllers.ServiceFeeDelete(d.ServiceFees, logg))
				r.Post("/{feeId}/activate", controllers.ServiceFeeActivate(d.ServiceFees, logg))
			})
			r.Route("/payment-methods", func(r chi.Router) {
				r.Get("/", controllers.PaymentMethodsList(d.PaymentMethods, logg))
				r.Post("/", controllers.PaymentMethodCreate(d.PaymentMethods, logg))
				r.Put("/{methodId}", controllers.PaymentMethodUpdate(d.PaymentMethods, logg))
				r.Delete("/{methodId}", controllers.PaymentMethodDelete(d.PaymentMethods, logg))
				r.Post("/{methodId}/toggle", controllers.PaymentMethodToggle(d.PaymentMethods, logg))
			})
		})
	})

	return r
}
