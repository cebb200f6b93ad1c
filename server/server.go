package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/db"
	"github.com/xiaoyuanzhu-com/flowtrack/fs"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
	"github.com/xiaoyuanzhu-com/flowtrack/mirror"
	"github.com/xiaoyuanzhu-com/flowtrack/notifications"
	"github.com/xiaoyuanzhu-com/flowtrack/search"
	"github.com/xiaoyuanzhu-com/flowtrack/workers/reconcile"
)

// Server owns and coordinates all application components
type Server struct {
	cfg *Config

	// Components (owned by server)
	database     *db.DB
	fsService    *fs.Service
	searchIndex  *search.Index
	mirrorClient mirror.Client
	engine       *reconcile.Engine
	notifService *notifications.Service

	// Cancelled when the server is shutting down; SSE handlers listen to it
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc

	// HTTP
	router *gin.Engine
	http   *http.Server
}

// New creates a new server with all components initialized
func New(cfg *Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:            cfg,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}

	// 1. Open database
	log.Info().Msg("initializing database")
	database, err := db.Open(cfg.ToDBConfig())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s.database = database

	if n, err := database.FailInterruptedRuns(); err == nil && n > 0 {
		log.Warn().Int64("runs", n).Msg("marked interrupted sync runs as failed")
	}

	// 2. Apply the stored log level unless the environment sets one
	if cfg.LogLevel == "" {
		if level, err := database.GetSetting(db.SettingLogLevel); err == nil && level != "" {
			log.SetLevel(level)
			log.Info().Str("level", level).Msg("log level set from settings")
		}
	}

	// 3. Create notifications service
	log.Info().Msg("initializing notifications service")
	s.notifService = notifications.NewService()

	// 4. Create repository service and its search index
	log.Info().Msg("initializing repository service")
	s.fsService = fs.NewService(cfg.ToFSConfig())
	s.searchIndex = search.NewIndex(s.fsService)

	// 5. Create reconciliation engine
	log.Info().Msg("initializing reconciliation engine")
	s.mirrorClient = cfg.Mirror
	if s.mirrorClient == nil {
		s.mirrorClient = mirror.Unavailable{Err: errors.New("no mirror provider configured")}
	}
	s.engine = reconcile.NewEngine(cfg.ToReconcileConfig(), s.fsService, s.mirrorClient)
	s.engine.SetRecorder(s.database)

	// 6. Wire service connections
	s.connectServices()

	// 7. Setup HTTP router
	s.setupRouter()

	log.Info().Msg("server initialized successfully")
	return s, nil
}

// connectServices wires up event handlers between services
func (s *Server) connectServices() {
	// FS → search + UI: any repository change invalidates the index
	s.fsService.SetChangeHandler(func(event fs.ChangeEvent) {
		s.searchIndex.Invalidate()
		s.notifService.NotifyRepositoryChanged(event.Project, event.Version, event.Op)
	})

	// Engine → UI: forward run progress
	s.engine.SetSink(func(ev reconcile.Event) {
		switch ev.Kind {
		case reconcile.EventProgress:
			s.notifService.NotifySyncProgress(ev.RunID, string(ev.Run), ev.Done, ev.Total)
		case reconcile.EventCompleted:
			s.notifService.NotifySyncCompleted(ev.RunID, string(ev.Run), ev.Count)
		case reconcile.EventFailed:
			s.notifService.NotifySyncFailed(ev.RunID, string(ev.Run), string(apperrors.KindOf(ev.Err)), ev.Err.Error())
		}
	})
}

// setupRouter creates and configures the Gin router
func (s *Server) setupRouter() {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(log.GinLogger())

	if s.cfg.IsDevelopment() {
		s.router.Use(s.corsMiddleware())
	}

	// Gzip compression (skip SSE)
	s.router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/api/notifications/stream",
	})))

	s.router.SetTrustedProxies(nil)

	// Note: API routes are registered by the caller to avoid import cycles
}

// corsMiddleware handles CORS for development environments
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			fmt.Sprintf("http://localhost:%d", s.cfg.Port): true,
			"http://localhost:5173":                        true,
		}

		if allowedOrigins[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Start starts all background services and the HTTP server
func (s *Server) Start() error {
	log.Info().Msg("starting server components")

	if err := s.fsService.Start(); err != nil {
		return fmt.Errorf("failed to start repository service: %w", err)
	}

	s.http = &http.Server{
		Addr:     fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:  s.router,
		ErrorLog: log.StdErrorLogger(),
	}

	log.Info().
		Str("addr", s.http.Addr).
		Str("env", s.cfg.Env).
		Str("root", s.cfg.RepoRoot).
		Msg("HTTP server starting")

	// Blocks
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	// 1. Signal long-running handlers (SSE) to stop
	s.shutdownCancel()
	time.Sleep(100 * time.Millisecond)

	// 2. Disconnect SSE clients
	s.notifService.Shutdown()

	// 3. Stop accepting requests and drain the rest
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// 4. Stop background services (reverse order of startup)
	s.engine.Stop()
	if err := s.fsService.Stop(); err != nil {
		log.Error().Err(err).Msg("repository service stop error")
	}

	// 5. Close database last
	if s.database != nil {
		if err := s.database.Close(); err != nil {
			log.Error().Err(err).Msg("database close error")
			return err
		}
	}

	log.Info().Msg("server shutdown complete")
	return nil
}

// Component accessors for API handlers
func (s *Server) Config() *Config                       { return s.cfg }
func (s *Server) DB() *db.DB                            { return s.database }
func (s *Server) FS() *fs.Service                       { return s.fsService }
func (s *Server) Search() *search.Index                 { return s.searchIndex }
func (s *Server) Mirror() mirror.Client                 { return s.mirrorClient }
func (s *Server) Engine() *reconcile.Engine             { return s.engine }
func (s *Server) Notifications() *notifications.Service { return s.notifService }
func (s *Server) Router() *gin.Engine                   { return s.router }
func (s *Server) ShutdownContext() context.Context      { return s.shutdownCtx }
