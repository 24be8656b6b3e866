package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-goalvision/pkg/calibration"
	"github.com/teslashibe/go-goalvision/pkg/hub"
	"github.com/teslashibe/go-goalvision/pkg/vision"
)

// pointerEvent is the wire form of a dashboard pointer event.
// Coordinates are in the preview's display space.
type pointerEvent struct {
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	st := s.State()
	st.Filter = s.filter.Range()
	if s.sampler != nil {
		st.Sampler = s.sampler.State().String()
	}
	return c.JSON(st)
}

func (s *Server) handleGetFilter(c *fiber.Ctx) error {
	return c.JSON(s.filter.Range())
}

func (s *Server) handleSetFilter(c *fiber.Ctx) error {
	var r vision.FilterRange
	if err := c.BodyParser(&r); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid range"})
	}
	stored := s.filter.Set(r)
	s.logger.Info("filter set from dashboard", "range", stored.String())
	return c.JSON(stored)
}

func (s *Server) handleClearFilter(c *fiber.Ctx) error {
	if s.sampler != nil {
		s.sampler.Handle(calibration.Event{Kind: calibration.SecondaryPress})
	} else {
		s.filter.Clear()
	}
	return c.JSON(s.filter.Range())
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no camera controls"})
	}
	return c.JSON(s.camera.GetConfigJSON())
}

func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no camera controls"})
	}
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid settings"})
	}
	if err := s.camera.UpdateSettings(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.camera.GetConfigJSON())
}

func (s *Server) handleQuit(c *fiber.Ctx) error {
	s.logger.Info("quit requested from dashboard")
	if s.OnQuit != nil {
		s.OnQuit()
	}
	return c.JSON(fiber.Map{"quitting": true})
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	if data, err := json.Marshal(s.State()); err == nil {
		client.Send(hub.NewJSONMessage(data))
	}
	client.Run()
}

func (s *Server) handlePreviewWS(c *websocket.Conn) {
	hub.NewClient(s.previewHub, c).Run()
}

func (s *Server) handlePointerWS(c *websocket.Conn) {
	hub.NewClient(s.pointerHub, c).Run()
}

// handlePointer feeds a client pointer event into the calibration sampler.
func (s *Server) handlePointer(msg hub.Message) {
	if s.sampler == nil || msg.Type != hub.JSONMessage {
		return
	}
	var pe pointerEvent
	if err := json.Unmarshal(msg.Data, &pe); err != nil {
		s.logger.Debug("bad pointer event", "error", err)
		return
	}
	kind, ok := calibration.ParseEventKind(pe.Kind)
	if !ok {
		s.logger.Debug("unknown pointer event", "kind", pe.Kind)
		return
	}
	s.sampler.Handle(calibration.Event{Kind: kind, X: pe.X, Y: pe.Y})
}
