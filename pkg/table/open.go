package table

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Open creates and connects the backend named by cfg.Backend.
// A websocket or mqtt backend that cannot connect yet keeps retrying in the
// background; reads fall back to defaults meanwhile.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(), nil

	case BackendWebSocket:
		c, err := NewClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := c.Connect(ctx); err != nil {
			logger.Warn("table not reachable yet, retrying in background", "url", cfg.URL, "error", err)
			go func() {
				if err := c.ConnectWithRetry(c.ctx); err != nil && c.ctx.Err() == nil {
					logger.Error("table connect gave up", "error", err)
				}
			}()
		}
		return c, nil

	case BackendServer:
		return ListenServer(cfg.Listen, NewMemory(), logger), nil

	case BackendMQTT:
		m := NewMQTTStore(cfg, logger)
		if err := m.Connect(ctx); err != nil {
			m.Close()
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// EmbeddedServer is a Server listening on its own Fiber app.
type EmbeddedServer struct {
	*Server
	app *fiber.App
}

// ListenServer starts a table server on addr in the background.
func ListenServer(addr string, store *Memory, logger *slog.Logger) *EmbeddedServer {
	s := NewServer(store, logger)
	app := NewApp(s)

	go func() {
		if err := app.Listen(addr); err != nil {
			s.logger.Error("table server stopped", "addr", addr, "error", err)
		}
	}()
	s.logger.Info("table server listening", "addr", addr)
	return &EmbeddedServer{Server: s, app: app}
}

// NewApp builds a Fiber app serving s.
func NewApp(s *Server) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "goalvision table",
	})
	s.RegisterRoutes(app)
	s.RegisterAPIRoutes(app.Group("/api"))
	return app
}

// Close stops the listener.
func (e *EmbeddedServer) Close() error {
	return e.app.Shutdown()
}
