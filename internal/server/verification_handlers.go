package server

import (
	"io"
	"log/slog"

	"postguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// verificationFaultMessage is the catch-all message returned when the gate
// itself fails. Callers treat this payload as a rejection, never a crash.
const verificationFaultMessage = "Error in content verification"

// ContentGuideline is one human-readable posting rule.
type ContentGuideline struct {
	Description string `json:"description"`
}

// contentGuidelines is the fixed list served to clients.
var contentGuidelines = []ContentGuideline{
	{Description: "No explicit or adult content"},
	{Description: "No hate speech or discriminatory content"},
	{Description: "No violence or graphic content"},
	{Description: "No harassment or bullying"},
	{Description: "No spam or misleading content"},
	{Description: "AI-generated images must be labeled as such"},
	{Description: "Content must be appropriate for all ages"},
	{Description: "No illegal content or promotion of illegal activities"},
}

// VerifyContent handles POST /api/content-verification. It accepts a
// multipart form with optional title, caption and image parts, runs the
// synchronous gate and answers 200 on every outcome, including internal
// faults.
func (s *Server) VerifyContent(c *fiber.Ctx) error {
	ctx := c.UserContext()

	// Every submission opportunistically nudges the background loop.
	s.reconciler.Kick()

	title := c.FormValue("title")
	caption := c.FormValue("caption")

	imageRef := ""
	if fileHeader, err := c.FormFile("image"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return c.JSON(faultResult(err))
		}
		content, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			return c.JSON(faultResult(err))
		}

		staged, err := s.staging.Stage(content, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			// Unreadable uploads are hard rejections on this path.
			return c.JSON(service.PrecheckResult{
				Approved: false,
				Message:  "Image unsafe",
				Details:  []string{err.Error()},
			})
		}
		defer staged.Cleanup()
		imageRef = staged.Ref
	}

	result, err := s.gate.Precheck(ctx, title, caption, imageRef)
	if err != nil {
		slog.ErrorContext(ctx, "content verification failed", "error", err)
		return c.JSON(faultResult(err))
	}

	return c.JSON(result)
}

// GetGuidelines handles GET /api/content-verification/guidelines
func (s *Server) GetGuidelines(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"guidelines": contentGuidelines})
}

func faultResult(err error) service.PrecheckResult {
	return service.PrecheckResult{
		Approved: false,
		Message:  verificationFaultMessage,
		Details:  []string{err.Error()},
	}
}
