package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/menucraft/api/internal/catalog"
	"github.com/menucraft/api/internal/checkout"
	"github.com/menucraft/api/internal/config"
	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/enum"
	"github.com/menucraft/api/internal/handler"
	mw "github.com/menucraft/api/internal/middleware"
	"github.com/menucraft/api/internal/notify"
	"github.com/menucraft/api/internal/offline"
	"github.com/menucraft/api/internal/service"
	"github.com/menucraft/api/internal/ws"
)

// Deps are the long-lived components shared by the routes. Queries, Pool
// and Hub are required. Missing optional parts fall back to in-process
// defaults: an in-memory challenge store, the log sender, a fresh session
// store and a hub-only dispatcher. Without a Worker no asset routes are mounted.
type Deps struct {
	Queries *database.Queries
	Pool    *pgxpool.Pool
	Hub     *ws.Hub

	Challenges checkout.ChallengeStore
	Sender     checkout.Sender
	Sessions   *checkout.SessionStore
	Dispatcher *notify.Dispatcher
	Worker     *offline.Worker
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, tenant scoping, and role-based middleware as needed.
func New(cfg *config.Config, d Deps) chi.Router {
	if d.Challenges == nil {
		d.Challenges = checkout.NewMemoryChallengeStore()
	}
	if d.Sender == nil {
		d.Sender = checkout.LogSender{}
	}
	if d.Sessions == nil {
		d.Sessions = checkout.NewSessionStore(checkout.DefaultSessionTTL)
	}
	if d.Dispatcher == nil {
		d.Dispatcher = notify.NewDispatcher(notify.NewHubChannel(d.Hub))
	}

	// Services
	queries := d.Queries
	settingsService := service.NewSettingsService(queries)
	catalogService := service.NewCatalogService(queries)
	menuView := catalog.NewView(catalogService, notify.CatalogPublisher(d.Hub))
	orderService := service.NewOrderService(
		d.Pool,
		func(db database.DBTX) service.OrderStore {
			return database.New(db)
		},
		notify.NewOrderNotifier(d.Hub, d.Dispatcher),
	)
	analyticsService := service.NewAnalyticsService(queries, settingsService)
	codeProvider := checkout.NewCodeProvider(d.Challenges, d.Sender, cfg.OTPTTL)
	checkoutFlow := checkout.NewFlow(d.Sessions, codeProvider, orderService, orderService)

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Offline asset shell
	if d.Worker != nil {
		offlineHandler := handler.NewOfflineHandler(d.Worker)
		offlineHandler.RegisterRoutes(r)
	}

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/tenants/{tenant}/feed", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
	})

	menuHandler := handler.NewMenuHandler(menuView)
	categoryHandler := handler.NewCategoryHandler(catalogService, menuView)
	menuItemHandler := handler.NewMenuItemHandler(catalogService, menuView)
	orderHandler := handler.NewOrderHandler(orderService)
	customerHandler := handler.NewCustomerHandler(orderService)
	checkoutHandler := handler.NewCheckoutHandler(checkoutFlow)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	notificationHandler := handler.NewNotificationHandler(d.Hub, d.Dispatcher)
	userHandler := handler.NewUserHandler(queries)

	r.Route("/tenants/{tenant}", func(r chi.Router) {
		// Customer-facing routes (public)
		menuHandler.RegisterRoutes(r)
		r.Route("/settings", settingsHandler.RegisterPublicRoutes)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireOpenTenant(settingsService.IsOpen))
			r.Route("/orders", orderHandler.RegisterPublicRoutes)
			r.Route("/checkout", checkoutHandler.RegisterRoutes)
		})
		r.Route("/notifications", notificationHandler.RegisterPublicRoutes)

		// Admin routes (require authentication, scoped to the tenant)
		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireTenant)

			r.Route("/categories", categoryHandler.RegisterRoutes)
			r.Route("/menu-items", menuItemHandler.RegisterRoutes)
			r.Route("/orders", orderHandler.RegisterRoutes)
			r.Route("/customers", customerHandler.RegisterRoutes)
			r.Route("/analytics", analyticsHandler.RegisterRoutes)
			r.Route("/notifications", notificationHandler.RegisterRoutes)

			// Owner-only routes
			r.With(mw.RequireRole(enum.UserRoleOwner)).Route("/settings", settingsHandler.RegisterRoutes)
			r.With(mw.RequireRole(enum.UserRoleOwner)).Route("/users", userHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
