package http

import (
	"time"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/http/handlers"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/notifications"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Config   config.Config
	Users    repo.Users
	Tasks    repo.Tasks
	Creds    security.CredentialVerifier
	JWT      *auth.Manager
	Revoker  auth.Revoker
	Notifier notifications.Notifier
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	// Ready lists what /readyz pings, by name.
	Ready map[string]handlers.Pinger
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middlewares.RequestLogger())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.SecurityHeaders())
	if cfg.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	}
	r.Use(middlewares.RequireJSON())

	r.NoRoute(handlers.RespondNoRoute)
	r.NoMethod(handlers.RespondNoMethod)

	// health
	h := handlers.NewHealthHandler(d.Ready)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	authMW := middlewares.NewAuthMiddleware(d.JWT, d.Revoker, d.Users, d.Prom)
	loginLimiter := middlewares.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	passwordLimiter := middlewares.NewRateLimiter(cfg.LoginRateLimit, time.Minute)

	authHandler := handlers.NewAuthHandler(d.Users, d.Creds, d.JWT, d.Revoker)
	tasksHandler := handlers.NewTasksHandler(d.Tasks, d.Users, d.Notifier, d.Prom)
	profileHandler := handlers.NewProfileHandler(d.Users, d.Creds)

	// auth
	a := r.Group("/auth")
	a.POST("/register", authHandler.Register)
	a.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	a.POST("/logout", authMW.RequireAuth(), authHandler.Logout)
	a.GET("/me", authMW.RequireAuth(), authMW.RequireCaller(), authHandler.Me)
	a.GET("/users", authMW.RequireAuth(), authMW.RequireAdmin(), authHandler.ListUsers)
	a.POST("/admin/create-user", authMW.RequireAuth(), authMW.RequireAdmin(), authHandler.CreateUser)

	api := r.Group("/api", authMW.RequireAuth())

	admin := api.Group("/admin", authMW.RequireAdmin())
	admin.GET("/users", tasksHandler.ListPlainUsers)
	admin.GET("/users/:id/tasks", tasksHandler.ListUserTasks)
	admin.GET("/tasks", tasksHandler.ListTasks)
	admin.POST("/tasks", tasksHandler.CreateTask)
	admin.PUT("/tasks/:id", tasksHandler.UpdateTask)
	admin.DELETE("/tasks/:id", tasksHandler.DeleteTask)
	admin.PUT("/tasks/:id/validate", tasksHandler.ValidateTask)

	me := api.Group("/user", authMW.RequireCaller())
	me.GET("/tasks", tasksHandler.MyTasks)
	me.GET("/tasks/:id", tasksHandler.MyTask)
	me.PUT("/tasks/:id/status", tasksHandler.UpdateStatus)
	me.PUT("/tasks/:id/note", tasksHandler.SubmitNote)
	me.GET("/profile", profileHandler.Profile)
	me.PUT("/profile", profileHandler.UpdatePhoto)
	me.PUT("/password", passwordLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), profileHandler.ChangePassword)

	if cfg.DebugRoutes() {
		debugHandler := handlers.NewDebugHandler(d.Users, d.Tasks)
		api.GET("/debug/whoami", debugHandler.WhoAmI)
		admin.GET("/test", debugHandler.AdminTest)
		api.GET("/debug/user/:id", authMW.RequireAdmin(), debugHandler.User)
		api.GET("/debug/task/:id", authMW.RequireCaller(), debugHandler.Task)
	}

	return r
}
