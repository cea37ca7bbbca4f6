package router

import (
	"net/http"

	authsvc "voicepost-backend/internal/application/auth"
	dsvc "voicepost-backend/internal/application/drafts"
	"voicepost-backend/internal/application/emails"
	healthsvc "voicepost-backend/internal/application/health"
	invsvc "voicepost-backend/internal/application/invitations"
	msvc "voicepost-backend/internal/application/membership"
	nsvc "voicepost-backend/internal/application/notes"
	uploadsvc "voicepost-backend/internal/application/uploads"
	wssvc "voicepost-backend/internal/application/workspace"
	"voicepost-backend/internal/config"
	"voicepost-backend/internal/infrastructure/database"
	authhandler "voicepost-backend/internal/interfaces/handlers/auth"
	drafthandler "voicepost-backend/internal/interfaces/handlers/drafts"
	healthhandler "voicepost-backend/internal/interfaces/handlers/health"
	invhandler "voicepost-backend/internal/interfaces/handlers/invitations"
	memberhandler "voicepost-backend/internal/interfaces/handlers/membership"
	notehandler "voicepost-backend/internal/interfaces/handlers/notes"
	payhandler "voicepost-backend/internal/interfaces/handlers/payments"
	uploadhandler "voicepost-backend/internal/interfaces/handlers/uploads"
	wshandler "voicepost-backend/internal/interfaces/handlers/workspace"
	"voicepost-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Stripe webhook before the session middleware so the raw body survives.
	stripeWebhook := &payhandler.WebhookHandler{WebhookSecret: cfg.StripeWebhookSecret}
	app.Post("/api/v1/stripe/webhook", func(c *fiber.Ctx) error {
		return stripeWebhook.HandleWebhook(c)
	})

	sessionHandler, redisClient, err := middleware.Session(middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	rdb := redisClient
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb: rdb,
		DB:  nil,
		Cfg: healthsvc.Config{
			FrontendURL:      cfg.InviteBaseURL,
			TranscriptionURL: cfg.TranscriptionURL,
		},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Root)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		hh.DB = &gormDBPinger{db: db}
		stripeWebhook.DB = db
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	if db != nil && rdb != nil {
		var emailSender emails.Sender
		if cfg.BrevoAPIKey != "" {
			emailSender = &emails.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom}
		}

		ws := &wssvc.Service{DB: db}

		// Auth
		ah := &authhandler.Handlers{
			DB:         db,
			UserFinder: &authsvc.GormUserFinder{DB: db},
			Workspaces: ws,
			Mailer:     emailSender,
			Rdb:        rdb,
			Config:     sessionCfg,
		}
		authGroup := app.Group("/api/v1/auth")
		authGroup.Post("/register", ah.Register)
		authGroup.Post("/login", ah.Login)
		authGroup.Get("/me", ah.Me)
		authGroup.Delete("/logout", ah.Logout)

		// Workspaces
		wh := &wshandler.Handlers{Service: ws, Config: sessionCfg}
		wg := app.Group("/api/v1/workspaces", middleware.RequireAuth())
		wg.Post("/", wh.Create)
		wg.Get("/", wh.List)
		wg.Get("/current", wh.View)
		wg.Patch("/current", wh.Update)
		wg.Post("/switch", wh.Switch)

		// Invitations
		is := &invsvc.Service{DB: db, Mailer: emailSender, InviteBaseURL: cfg.InviteBaseURL}
		ih := &invhandler.Handlers{Service: is, Workspaces: ws}
		app.Get("/api/v1/invitations/check/:token", ih.CheckToken)
		ig := app.Group("/api/v1/invitations", middleware.RequireAuth())
		ig.Post("/", ih.Send)
		ig.Get("/", ih.List)
		ig.Post("/resend", ih.Resend)
		ig.Post("/revoke", ih.Revoke)
		ig.Post("/accept", ih.Accept)

		// Members
		ms := &msvc.Service{DB: db}
		mh := &memberhandler.Handlers{Service: ms, Workspaces: ws}
		mg := app.Group("/api/v1/members", middleware.RequireAuth())
		mg.Patch("/role", mh.ChangeRole)
		mg.Delete("/", mh.Remove)
		mg.Post("/transfer-ownership", mh.Transfer)

		// Drafts
		ds := &dsvc.Service{DB: db}
		dh := &drafthandler.Handlers{Service: ds, Workspaces: ws}
		dg := app.Group("/api/v1/drafts", middleware.RequireAuth())
		dg.Post("/", dh.Create)
		dg.Get("/", dh.List)
		dg.Get("/:draft_id", dh.Get)
		dg.Patch("/:draft_id", dh.Update)
		dg.Delete("/:draft_id", dh.Delete)
		dg.Post("/:draft_id/schedule", dh.Schedule)
		dg.Post("/:draft_id/move", dh.Move)

		// Voice notes
		ns := &nsvc.Service{
			DB:          db,
			Transcriber: &nsvc.HTTPTranscriber{BaseURL: cfg.TranscriptionURL, APIKey: cfg.TranscriptionAPIKey},
			Generator:   &nsvc.HTTPDraftGenerator{BaseURL: cfg.TranscriptionURL, APIKey: cfg.TranscriptionAPIKey},
		}
		nh := &notehandler.Handlers{Service: ns, Workspaces: ws}
		ng := app.Group("/api/v1/notes", middleware.RequireAuth())
		ng.Post("/", nh.Create)
		ng.Get("/", nh.List)
		ng.Post("/:note_id/transcribe", nh.Transcribe)
		ng.Post("/:note_id/generate", nh.Generate)

		// Uploads
		sc := &uploadsvc.HTTPClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey}
		upsvc := &uploadsvc.Service{Client: sc, SupabaseURL: cfg.SupabaseURL}
		uph := &uploadhandler.Handlers{Service: upsvc}
		upg := app.Group("/api/v1/uploads", middleware.RequireAuth())
		upg.Post("/voice-note", uph.UploadVoiceNote)
		upg.Post("/workspace-logo", uph.UploadWorkspaceLogo)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
