package routes

import (
	"casedesk/internal/adapters/http/handlers"
	"casedesk/internal/adapters/http/middleware"
	"casedesk/internal/adapters/persistence/repositories"
	"casedesk/internal/config"
	"casedesk/internal/core/domain"
	"casedesk/internal/core/services"
	"casedesk/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// EventBus is the event plumbing the routes publish to and stream from.
// Publisher may be a relay in front of the local hub.
type EventBus struct {
	Source    handlers.EventSource
	Publisher services.EventBroadcaster
	Clients   func() int
}

// Setup configures all routes for the application and returns the
// reconciliation service so the caller can tie it to the process lifetime
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config, log *logger.Logger, bus EventBus) *services.ReconcileService {
	// Initialize repositories
	creditRepo := repositories.NewCreditCaseRepository(db)
	legalRepo := repositories.NewLegalCaseRepository(db)
	userRepo := repositories.NewUserRepository(db)
	transitionRepo := repositories.NewTransitionRepository(db)
	commentRepo := repositories.NewCommentRepository(db)

	// Initialize services
	escalations := services.NewEscalationCoordinator(
		creditRepo,
		legalRepo,
		userRepo,
		transitionRepo,
		bus.Publisher,
		services.EscalationConfig{
			RollbackAfter: cfg.Reconcile.RollbackAfter,
			RetryTimeout:  cfg.Reconcile.RetryTimeout,
		},
		log,
	)
	machine := services.NewStateMachine(creditRepo, legalRepo, transitionRepo, escalations, bus.Publisher, log)
	caseService := services.NewCaseService(creditRepo, legalRepo, userRepo, commentRepo, transitionRepo, bus.Publisher, log)
	userService := services.NewUserService(userRepo, log)
	reconciler := services.NewReconcileService(creditRepo, escalations, services.ReconcileConfig{
		Schedule: cfg.Reconcile.Schedule,
		MinAge:   cfg.Reconcile.MinAge,
	}, log)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, cfg.AppMode, bus.Clients)
	caseHandler := handlers.NewCaseHandler(caseService, machine)
	escalationHandler := handlers.NewEscalationHandler(escalations, caseService)
	eventHandler := handlers.NewEventHandler(bus.Source, cfg.Events.Heartbeat, log)
	userHandler := handlers.NewUserHandler(userService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)
	apiV1.Get("/health", healthHandler.HealthCheck)

	setupAPIV1Routes(apiV1, caseHandler, escalationHandler, eventHandler, userHandler, cfg)

	return reconciler
}

// setupAPIV1Routes configures the authenticated API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	caseHandler *handlers.CaseHandler,
	escalationHandler *handlers.EscalationHandler,
	eventHandler *handlers.EventHandler,
	userHandler *handlers.UserHandler,
	cfg *config.Config,
) {
	auth := middleware.AuthMiddleware(cfg)
	writes := middleware.WriteRateLimiter(cfg.WriteRateLimit)

	// Credit case routes
	creditRoutes := router.Group("/credit-cases", auth)
	creditRoutes.Post("/", caseHandler.CreateCredit)
	creditRoutes.Get("/", caseHandler.ListCredit)
	creditRoutes.Get("/:id", caseHandler.GetCredit)
	creditRoutes.Delete("/:id", caseHandler.Delete(domain.KindCredit))
	creditRoutes.Post("/:id/escalate", writes, escalationHandler.Escalate)
	creditRoutes.Put("/:id/escalation/confirm-fee", escalationHandler.ConfirmFee)
	setupCaseRoutes(creditRoutes, caseHandler, domain.KindCredit, writes)

	// Legal case routes
	legalRoutes := router.Group("/legal-cases", auth)
	legalRoutes.Post("/", caseHandler.CreateLegal)
	legalRoutes.Get("/", caseHandler.ListLegal)
	legalRoutes.Get("/:id", caseHandler.GetLegal)
	legalRoutes.Delete("/:id", caseHandler.Delete(domain.KindLegal))
	legalRoutes.Put("/:id/enrichment", caseHandler.Enrich)
	legalRoutes.Put("/:id/filing-fee/paid", caseHandler.MarkFilingFeePaid)
	setupCaseRoutes(legalRoutes, caseHandler, domain.KindLegal, writes)

	// Staff directory
	userRoutes := router.Group("/users", auth)
	userRoutes.Get("/", userHandler.ListUsers)
	userRoutes.Get("/summary", userHandler.Summary)
	userRoutes.Get("/:id", userHandler.GetUser)
	userRoutes.Post("/", middleware.FirmAdminOnly(), userHandler.CreateUser)

	// Event stream
	router.Get("/events", auth, eventHandler.Stream)
}

// setupCaseRoutes configures the routes shared by both case kinds
func setupCaseRoutes(router fiber.Router, handler *handlers.CaseHandler, kind domain.CaseKind, writes fiber.Handler) {
	router.Post("/:id/transitions", writes, handler.Transition(kind))
	router.Put("/:id/assignee", handler.Assign(kind))
	router.Get("/:id/comments", handler.ListComments(kind))
	router.Post("/:id/comments", handler.AddComment(kind))
	router.Post("/:id/documents", handler.AttachDocument(kind))
	router.Get("/:id/history", handler.History(kind))
}
