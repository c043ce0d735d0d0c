package web

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-sensory/pkg/analyzer"
	"github.com/teslashibe/go-sensory/pkg/capture"
	"github.com/teslashibe/go-sensory/pkg/crowd"
	"github.com/teslashibe/go-sensory/pkg/vision"
)

// AnalyzeCrowdResponse is the body of /api/analyze-crowd.
type AnalyzeCrowdResponse = vision.AnalyzeResponse

// handleAnalyzeCrowd sends a data URL straight to the vision model and
// returns its report.
func (s *Server) handleAnalyzeCrowd(c *fiber.Ctx) error {
	var req vision.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil || req.Image == "" {
		return c.Status(fiber.StatusBadRequest).JSON(AnalyzeCrowdResponse{Error: "No image provided"})
	}
	if s.deps.Vision == nil {
		return unavailable(c, "vision")
	}

	data, _, err := vision.DecodeDataURL(req.Image)
	if err != nil {
		if errors.Is(err, vision.ErrNoImage) {
			return c.Status(fiber.StatusBadRequest).JSON(AnalyzeCrowdResponse{Error: "No image provided"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(AnalyzeCrowdResponse{Error: err.Error()})
	}

	report, err := s.deps.Vision.Analyze(c.UserContext(), data)
	if err != nil {
		s.logger.Warn("crowd analysis failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(AnalyzeCrowdResponse{Error: err.Error()})
	}
	return c.JSON(AnalyzeCrowdResponse{Success: true, Data: report})
}

// FrameResponse describes one locally analyzed frame.
type FrameResponse struct {
	Seq       uint64          `json:"seq"`
	Committed bool            `json:"committed"`
	Analysis  *crowd.Analysis `json:"analysis"`
	Status    crowd.Status    `json:"status"`
	Advice    string          `json:"advice"`
	Action    string          `json:"action"`
	Mean      float64         `json:"mean"`
	Variance  float64         `json:"variance"`
	At        time.Time       `json:"at"`
}

func newFrameResponse(r *analyzer.Result) FrameResponse {
	st := r.Analysis.Status()
	return FrameResponse{
		Seq:       r.Seq,
		Committed: r.Committed,
		Analysis:  r.Analysis,
		Status:    st.Label,
		Advice:    st.Advice,
		Action:    st.Action,
		Mean:      r.Stats.Mean,
		Variance:  r.Stats.Variance,
		At:        r.At,
	}
}

// handleFrame runs the local pipeline on an uploaded frame. The image may
// be a multipart "image" field or the raw request body.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	if s.deps.Analyzer == nil {
		return unavailable(c, "analyzer")
	}

	data, err := frameBytes(c)
	if err != nil || len(data) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No image provided"})
	}

	frame, err := capture.DecodeFrame(data, s.deps.Capture)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := s.deps.Analyzer.AnalyzeFrame(c.UserContext(), frame)
	if err != nil {
		if errors.Is(err, crowd.ErrFrameNotReady) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "frame not ready"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(newFrameResponse(res))
}

func frameBytes(c *fiber.Ctx) ([]byte, error) {
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return append([]byte(nil), c.Body()...), nil
}

// handleLatest returns the most recent committed analysis.
func (s *Server) handleLatest(c *fiber.Ctx) error {
	if s.deps.Analyzer == nil {
		return unavailable(c, "analyzer")
	}
	res := s.deps.Analyzer.LatestResult()
	if res == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(newFrameResponse(res))
}

// handleOverlay returns the current overlay as a transparent PNG.
func (s *Server) handleOverlay(c *fiber.Ctx) error {
	if s.deps.Overlay == nil {
		return unavailable(c, "overlay")
	}
	data, err := s.deps.Overlay.PNG()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(data)
}
