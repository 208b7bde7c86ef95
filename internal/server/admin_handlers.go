package server

import (
	"strconv"

	"postguard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListPostsByStatus handles GET /api/admin/verification/posts?status=...
func (s *Server) ListPostsByStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()

	status := models.VerificationStatus(c.Query("status", string(models.VerificationPending)))
	switch status {
	case models.VerificationPending, models.VerificationApproved, models.VerificationRejected:
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid verification status"))
	}

	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	posts, err := s.postRepo.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"posts":  posts,
		"status": status,
		"limit":  limit,
		"offset": offset,
	})
}

// RecheckPost handles POST /api/admin/verification/posts/:id/recheck. It
// resets the post's verification state and kicks the loop so the recheck
// happens promptly.
func (s *Server) RecheckPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")

	if err := s.postRepo.ResetVerification(ctx, id); err != nil {
		if models.HasCode(err, models.ErrCodeNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound, err)
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	s.reconciler.Kick()

	return c.JSON(fiber.Map{
		"post_id": id,
		"status":  models.VerificationPending,
	})
}
