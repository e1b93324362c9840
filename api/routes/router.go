package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/learnloom/learnloom-backend/api/controllers"
	webhookcontrollers "github.com/learnloom/learnloom-backend/api/controllers/webhooks"
	"github.com/learnloom/learnloom-backend/api/middleware"
	paymentwebhook "github.com/learnloom/learnloom-backend/internal/webhooks/payments"
	"github.com/learnloom/learnloom-backend/pkg/config"
	"github.com/learnloom/learnloom-backend/pkg/db"
	"github.com/learnloom/learnloom-backend/pkg/enums"
	"github.com/learnloom/learnloom-backend/pkg/logger"
	"github.com/learnloom/learnloom-backend/pkg/redis"
	stripeclient "github.com/learnloom/learnloom-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	stripeClient *stripeclient.Client,
	webhookService *paymentwebhook.Service,
	webhookGuard *paymentwebhook.IdempotencyGuard,
	earningsService controllers.EarningsService,
	accountService controllers.PayoutAccountService,
	payoutService controllers.PayoutInitiationService,
	enrollmentService controllers.FreeEnrollmentService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentsWebhook(
			webhookService,
			stripeClient,
			webhookGuard,
			cfg.Webhook.SignatureTolerance,
			logg,
		))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/enrollments", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleStudent.String(), logg))
			r.Post("/free", controllers.FreeEnrollment(enrollmentService, logg))
		})

		r.Route("/instructors/me", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleInstructor.String(), logg))
			r.Get("/earnings", controllers.InstructorEarnings(earningsService, logg))
			r.Route("/payout-account", func(r chi.Router) {
				r.Post("/", controllers.CreatePayoutAccount(accountService, logg))
				r.Post("/refresh", controllers.RefreshPayoutAccount(accountService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAdmin.String(), logg))

		r.Get("/instructors/{instructorID}/earnings", controllers.AdminInstructorEarnings(earningsService, logg))
		r.Post("/payouts", controllers.AdminInitiatePayout(payoutService, logg))
	})

	return r
}
