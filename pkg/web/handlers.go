package web

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-sensory/pkg/crowdmap"
	"github.com/teslashibe/go-sensory/pkg/prefs"
)

// SpeechRequest is the body of /api/text-to-speech.
type SpeechRequest struct {
	Text string `json:"text"`
}

// handleTextToSpeech narrates text as MP3.
func (s *Server) handleTextToSpeech(c *fiber.Ctx) error {
	var req SpeechRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No text provided"})
	}
	if s.deps.Narrator == nil {
		return unavailable(c, "text-to-speech")
	}

	clip, err := s.deps.Narrator.Speak(c.UserContext(), req.Text)
	if err != nil {
		s.logger.Warn("text-to-speech failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate speech"})
	}
	c.Set(fiber.HeaderContentType, clip.MIME())
	return c.Send(clip.Data)
}

// handleGetPreferences returns the user's record, or {} when there is
// none or the lookup fails.
func (s *Server) handleGetPreferences(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" || s.deps.Prefs == nil {
		return c.JSON(fiber.Map{})
	}
	p, err := s.deps.Prefs.Get(c.UserContext(), userID)
	if err != nil {
		if !errors.Is(err, prefs.ErrNotFound) {
			s.logger.Warn("fetch preferences", "user_id", userID, "error", err)
		}
		return c.JSON(fiber.Map{})
	}
	return c.JSON(p)
}

// handleSavePreferences upserts a record.
func (s *Server) handleSavePreferences(c *fiber.Ctx) error {
	var p prefs.Preferences
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(p.UserID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID required"})
	}
	if s.deps.Prefs == nil {
		return unavailable(c, "preferences")
	}

	saved, err := s.deps.Prefs.Upsert(c.UserContext(), &p)
	if err != nil {
		if errors.Is(err, prefs.ErrMissingUserID) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID required"})
		}
		s.logger.Error("save preferences", "user_id", p.UserID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "preferences": saved})
}

// LocationView is a location with its current busy period.
type LocationView struct {
	crowdmap.Location
	Current *crowdmap.BusyPeriod `json:"current,omitempty"`
	Color   string               `json:"color,omitempty"`
}

func (s *Server) handleLocations(c *fiber.Ctx) error {
	locs := crowdmap.Filter(crowdmap.Locations(), c.Query("category", "all"), c.Query("q"))
	now := s.now()
	out := make([]LocationView, 0, len(locs))
	for _, loc := range locs {
		v := LocationView{Location: loc}
		if period, ok := crowdmap.CurrentStatus(loc, now); ok {
			v.Current = &period
			v.Color = crowdmap.StatusColor(period.Status)
		}
		out = append(out, v)
	}
	return c.JSON(out)
}

func (s *Server) handleCategories(c *fiber.Ctx) error {
	return c.JSON(crowdmap.Categories())
}

func (s *Server) handleBoard(c *fiber.Ctx) error {
	if s.deps.Board == nil {
		return c.JSON(crowdmap.BuildSnapshot(crowdmap.Locations(), s.now()))
	}
	return c.JSON(s.deps.Board.Snapshot())
}
