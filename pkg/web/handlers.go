package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-franka/pkg/hub"
)

// handleStatus returns the session summary
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return c.JSON(s.status)
}

// handleState returns the latest robot state
func (s *Server) handleState(c *fiber.Ctx) error {
	state := s.latest.Load()
	if state == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no state received yet",
		})
	}
	return c.JSON(state)
}

// handleGetEvents returns recent events
func (s *Server) handleGetEvents(c *fiber.Ctx) error {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return c.JSON(s.events)
}

// HubStats groups the statistics of the three hubs
type HubStats struct {
	State  hub.Stats `json:"state"`
	Status hub.Stats `json:"status"`
	Events hub.Stats `json:"events"`
}

// handleStats returns hub statistics
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(HubStats{
		State:  s.stateHub.GetStats(),
		Status: s.statusHub.GetStats(),
		Events: s.eventHub.GetStats(),
	})
}
