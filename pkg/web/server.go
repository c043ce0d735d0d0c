// Package web serves the crowd analysis API, the crowd map and the live
// analysis websocket.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-sensory/pkg/analyzer"
	"github.com/teslashibe/go-sensory/pkg/capture"
	"github.com/teslashibe/go-sensory/pkg/crowdmap"
	"github.com/teslashibe/go-sensory/pkg/hub"
	"github.com/teslashibe/go-sensory/pkg/overlay"
	"github.com/teslashibe/go-sensory/pkg/prefs"
	"github.com/teslashibe/go-sensory/pkg/tts"
	"github.com/teslashibe/go-sensory/pkg/vision"
)

// maxBodySize bounds uploaded frames and data URLs.
const maxBodySize = 10 * 1024 * 1024

// Deps are the collaborators behind the routes. A nil dependency makes
// its routes answer 503.
type Deps struct {
	Vision   vision.Enricher
	Analyzer *analyzer.Analyzer
	Overlay  *overlay.Renderer
	Narrator *tts.Narrator
	Prefs    prefs.Store
	Board    *crowdmap.Board
	Hub      *hub.Hub

	// Capture bounds uploaded frames.
	Capture capture.Config

	// StaticDir is served at / when set.
	StaticDir string
}

// Server is the HTTP API server
type Server struct {
	app    *fiber.App
	port   string
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

// NewServer creates the server and registers every route.
func NewServer(port string, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Capture.MaxWidth == 0 {
		deps.Capture = capture.DefaultConfig()
	}
	s := &Server{
		port:   port,
		deps:   deps,
		logger: logger.With("component", "web"),
		now:    time.Now,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-sensory",
		DisableStartupMessage: true,
		BodyLimit:             maxBodySize,
		ReadTimeout:           30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)

	api := app.Group("/api")
	api.Post("/analyze-crowd", s.handleAnalyzeCrowd)
	api.Post("/crowd/frame", s.handleFrame)
	api.Get("/crowd/latest", s.handleLatest)
	api.Get("/crowd/overlay.png", s.handleOverlay)
	api.Post("/text-to-speech", s.handleTextToSpeech)
	api.Get("/preferences", s.handleGetPreferences)
	api.Post("/preferences", s.handleSavePreferences)

	crowdMap := api.Group("/crowd-map")
	crowdMap.Get("/locations", s.handleLocations)
	crowdMap.Get("/categories", s.handleCategories)
	crowdMap.Get("/board", s.handleBoard)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/crowd", websocket.New(s.handleCrowdWS))

	if deps.StaticDir != "" {
		app.Static("/", deps.StaticDir)
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully. The hub,
// when configured, runs for the same lifetime.
func (s *Server) Run(ctx context.Context) error {
	if s.deps.Hub != nil {
		go s.deps.Hub.Run(ctx)
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ":"+s.port)
		errc <- s.app.Listen(":" + s.port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleCrowdWS(conn *websocket.Conn) {
	if s.deps.Hub == nil {
		conn.Close()
		return
	}
	client := hub.NewClient(context.Background(), s.deps.Hub, conn)
	if client == nil {
		conn.Close()
		return
	}
	client.Run()
}

// unavailable answers for routes whose dependency is not configured.
func unavailable(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": what + " not configured",
	})
}
