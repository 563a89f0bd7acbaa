package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/thorvik/keyward/internal/app/service"
	inthttp "github.com/thorvik/keyward/internal/http/handler"
	"github.com/thorvik/keyward/internal/http/middleware"
	httpUtil "github.com/thorvik/keyward/internal/http/util"
	"go.uber.org/zap"
)

// Dependencies bundles the collaborators required by the HTTP server.
type Dependencies struct {
	Logger        *zap.Logger
	Redis         *redis.Client
	LinkService   service.LinkService
	Lookup        *service.LookupService
	Tracker       *service.Tracker
	VisitorSecret []byte
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      s.deps.Logger,
		LinkService: s.deps.LinkService,
	})
	apiHandler.Register(s.app)

	// Catch-all redirect routes go last.
	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:  s.deps.Logger,
		Lookup:  s.deps.Lookup,
		Tracker: s.deps.Tracker,
		Visitor: httpUtil.NewVisitorSigner(s.deps.VisitorSecret),
	})
	redirectHandler.Register(s.app)
}
