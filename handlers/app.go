package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"multiplication-shooter/middleware"
	"multiplication-shooter/services"
)

// Deps are the services the HTTP layer is built from.
type Deps struct {
	Log            *zap.Logger
	AllowedOrigins []string
	Identity       services.IdentityResolver
	Accounts       *services.AccountDirectory
	Sessions       *services.SessionService
	Ledger         *services.ShotLedger
	Reports        *services.ReportingService
	Roster         *services.RosterImporter
}

// NewApp builds the Fiber app with every route mounted under /api.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "multiplication-shooter",
		BodyLimit:    4 * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: ErrorHandler(d.Log),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(d.Log))

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(origins, ","),
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		ExposeHeaders: "Content-Length, Content-Type, Content-Disposition, X-Request-ID",
		MaxAge:        86400,
	}))

	api := app.Group("/api")
	SetupHealthRoutes(api)
	SetupAuthRoutes(api, d.Identity, d.Accounts, d.Log)

	auth := middleware.GoogleAuth(d.Identity, d.Accounts, d.Log)

	sessions := api.Group("/sessions", auth)
	SetupSessionRoutes(sessions, d.Sessions, d.Ledger)

	admin := api.Group("/admin", auth, middleware.RequireAdmin())
	SetupAdminRoutes(admin, d.Reports, d.Roster)

	return app
}
