// Package web serves the operator dashboard used while calibrating.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-goalvision/pkg/calibration"
	"github.com/teslashibe/go-goalvision/pkg/hub"
	"github.com/teslashibe/go-goalvision/pkg/telemetry"
	"github.com/teslashibe/go-goalvision/pkg/vision"
)

// Config holds the dashboard configuration.
type Config struct {
	Addr      string `yaml:"addr" json:"addr"`
	StaticDir string `yaml:"static_dir" json:"static_dir"` // Optional UI assets
	StatusFPS int    `yaml:"status_fps" json:"status_fps"` // Status broadcast rate
}

// DefaultConfig returns the dashboard defaults.
func DefaultConfig() Config {
	return Config{
		Addr:      ":8080",
		StatusFPS: 5,
	}
}

// CameraControl exposes image controls to the dashboard.
type CameraControl interface {
	GetConfigJSON() map[string]interface{}
	UpdateSettings(params map[string]interface{}) error
}

// Server is the dashboard server.
type Server struct {
	cfg    Config
	app    *fiber.App
	logger *slog.Logger

	filter  *vision.Filter
	sampler *calibration.Sampler
	camera  CameraControl

	state   Status
	stateMu sync.RWMutex
	limiter *telemetry.Limiter

	statusHub  *hub.Hub
	previewHub *hub.Hub
	pointerHub *hub.Hub

	// OnQuit is called when the operator asks the process to exit.
	OnQuit func()
}

// NewServer creates a dashboard for filter and sampler. camera may be nil.
func NewServer(cfg Config, filter *vision.Filter, sampler *calibration.Sampler, camera CameraControl, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StatusFPS <= 0 {
		cfg.StatusFPS = DefaultConfig().StatusFPS
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger.With("component", "dashboard"),
		filter:     filter,
		sampler:    sampler,
		camera:     camera,
		limiter:    telemetry.NewLimiter(cfg.StatusFPS),
		statusHub:  hub.New("status", logger),
		previewHub: hub.New("preview", logger),
		pointerHub: hub.New("pointer", logger),
	}
	s.pointerHub.OnMessage = s.handlePointer

	app := fiber.New(fiber.Config{
		AppName:               "Goal Vision",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())
	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/filter", s.handleGetFilter)
	api.Post("/filter", s.handleSetFilter)
	api.Post("/filter/clear", s.handleClearFilter)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleSetCamera)
	api.Post("/quit", s.handleQuit)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/preview", websocket.New(s.handlePreviewWS))
	app.Get("/ws/pointer", websocket.New(s.handlePointerWS))

	s.app = app
	return s
}

// App returns the fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and serves until ctx is cancelled or Listen fails.
func (s *Server) Start(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.previewHub.Run(ctx)
	go s.pointerHub.Run(ctx)

	go func() {
		<-ctx.Done()
		s.app.Shutdown()
	}()

	s.logger.Info("dashboard listening", "addr", s.cfg.Addr)
	if err := s.app.Listen(s.cfg.Addr); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Warn("dashboard stopped", "error", err)
		}
	}()
}

// UpdateState applies update and broadcasts the new status, at most StatusFPS times a second.
func (s *Server) UpdateState(update func(*Status)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state
	s.stateMu.Unlock()

	if s.limiter.Allow() {
		s.statusHub.BroadcastJSON(state)
	}
}

// State returns a copy of the current status.
func (s *Server) State() Status {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// SendPreview forwards a published JPEG preview to the preview clients.
// It matches the telemetry encoder's OnFrame signature.
func (s *Server) SendPreview(name string, jpeg []byte) {
	s.previewHub.Broadcast(hub.NewBinaryMessage(jpeg))
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
