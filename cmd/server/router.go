package main

import (
	"context"
	"time"

	"mind-scribe/cmd/server/handlers"
	"mind-scribe/cmd/server/handlers/auth"
	"mind-scribe/cmd/server/handlers/httperr"
	notesHandlers "mind-scribe/cmd/server/handlers/notes"
	"mind-scribe/cmd/server/middlewares"
	"mind-scribe/internal/clients/mongo"
	"mind-scribe/internal/config"
	"mind-scribe/internal/logger"
	authServices "mind-scribe/internal/services/auth"
	notesServices "mind-scribe/internal/services/notes"
	"mind-scribe/internal/utils/crypto"

	_ "mind-scribe/docs" // Load swagger docs

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
)

const (
	RateLimitExpiration = 1 * time.Minute
)

// apiDeps are the services the HTTP layer is built on.
type apiDeps struct {
	auth     auth.AuthService
	notes    notesHandlers.Service
	hub      notesHandlers.Hub
	identity notesHandlers.Identity
	stream   middlewares.StreamStats
}

// setupRouter wires the Mongo repositories into the services and returns the
// fully routed app.
func setupRouter(ctx context.Context, cfg config.Config) *fiber.App {
	usersRepo, err := mongo.NewUsersRepo(ctx, mongo.DB())
	if err != nil {
		logger.L().Error("failed to create users repository", "error", err)
		panic(err)
	}

	notesRepo, err := mongo.NewNotesRepo(ctx, mongo.DB())
	if err != nil {
		logger.L().Error(notesServices.ErrCreateNotesRepo.Error(), "error", err)
		panic(err)
	}

	authSvc := authServices.NewService(usersRepo, notesRepo, cfg, logger.L())
	hub := notesServices.NewHub(cfg.WSOutboxBuffer)
	notesSvc := notesServices.NewService(notesRepo, usersRepo, hub, cfg, logger.L())

	return newApp(cfg, apiDeps{
		auth:     authSvc,
		notes:    notesSvc,
		hub:      hub,
		identity: authSvc,
		stream:   hub,
	})
}

// newApp builds the Fiber app around already constructed services.
func newApp(cfg config.Config, deps apiDeps) *fiber.App {
	// Initialize validator and register password validation
	v := validator.New()
	if err := crypto.RegisterPasswordValidator(v); err != nil {
		logger.L().Error("failed to register password validator", "err", err)
		panic(err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		Immutable:    true, // make Fiber copy all request-derived strings
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Authorization",
	}))

	if cfg.RouteMetricsEnabled {
		middlewares.AttachMetrics(app, deps.stream)
	}

	// Health check endpoint, outside the API group to avoid logging
	app.Get("/healthz", handlers.Healthz)

	app.Get("/docs/*", swagger.HandlerDefault)

	var api fiber.Router
	if cfg.RequestLoggingEnabled {
		api = app.Group("/api", fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${method} ${path} ${latency}\n",
		}))
		logger.L().Info("request logging enabled")
	} else {
		api = app.Group("/api")
		logger.L().Info("request logging disabled")
	}

	jwtMiddleware := middlewares.JWT(cfg)
	limiterMW := middlewares.BuildRateLimiter(cfg.AuthRatePerMin, RateLimitExpiration)

	authH := auth.NewHandlers(deps.auth, v)
	authGrp := api.Group("/auth")
	authGrp.Post("/register", limiterMW, authH.Register)
	authGrp.Post("/login", limiterMW, authH.Login)
	authGrp.Get("/verify", authH.Verify)
	authGrp.Get("/me", jwtMiddleware, authH.Me)
	authGrp.Put("/update-profile", jwtMiddleware, authH.UpdateProfile)
	authGrp.Post("/change-password", jwtMiddleware, authH.ChangePassword)

	notesH := notesHandlers.NewHandlers(deps.notes, v)
	notesGrp := api.Group("/notes", jwtMiddleware)
	notesGrp.Post("/", notesH.Create)
	notesGrp.Get("/", notesH.List)
	notesGrp.Get("/nearby", notesH.Nearby)
	notesGrp.Put("/:id", notesH.Update)
	notesGrp.Delete("/:id", notesH.Delete)
	notesGrp.Get("/:id/owner", notesH.Owner)
	notesGrp.Put("/:id/add-collaborator", notesH.AddCollaborator)
	notesGrp.Put("/:id/remove-collaborator", notesH.RemoveCollaborator)

	// WebSocket routes
	wsHandlers := notesHandlers.NewWebSocketHandlers(deps.hub, deps.identity, cfg.WSMaxSessionSec)
	app.Use("/ws", notesHandlers.LogWSConnections(deps.identity))
	app.Get("/ws/notes/stream", wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSNotesStream))

	return app
}
