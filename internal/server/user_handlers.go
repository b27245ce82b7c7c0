package server

import (
	"context"
	"strings"

	"marketplace/internal/middleware"
	"marketplace/internal/models"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) parseUID(c *fiber.Ctx) (string, error) {
	uid := strings.TrimSpace(c.Params("uid"))
	if uid == "" || len(uid) > 128 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid user ID"))
		return "", errResponseWritten
	}
	return uid, nil
}

// GetSellerInfo handles GET /api/users/:uid
func (s *Server) GetSellerInfo(c *fiber.Ctx) error {
	uid, err := s.parseUID(c)
	if err != nil {
		return nil
	}

	info, err := s.listingService.GetSellerInfo(c.UserContext(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(info)
}

// GetSellerReviews handles GET /api/users/:uid/reviews
func (s *Server) GetSellerReviews(c *fiber.Ctx) error {
	uid, err := s.parseUID(c)
	if err != nil {
		return nil
	}

	reviews, err := s.listingService.GetSellerReviews(c.UserContext(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}

// GetUserSelling handles GET /api/users/:uid/selling
func (s *Server) GetUserSelling(c *fiber.Ctx) error {
	uid, err := s.parseUID(c)
	if err != nil {
		return nil
	}
	return s.respondSummaries(c, s.listingService.ListSelling, uid)
}

// GetUserBuying handles GET /api/users/:uid/buying
func (s *Server) GetUserBuying(c *fiber.Ctx) error {
	uid, err := s.parseUID(c)
	if err != nil {
		return nil
	}
	return s.respondSummaries(c, s.listingService.ListBuying, uid)
}

// GetMySelling handles GET /api/me/selling
func (s *Server) GetMySelling(c *fiber.Ctx) error {
	return s.respondSummaries(c, s.listingService.ListSelling, middleware.CallerUID(c))
}

// GetMyBuying handles GET /api/me/buying
func (s *Server) GetMyBuying(c *fiber.Ctx) error {
	return s.respondSummaries(c, s.listingService.ListBuying, middleware.CallerUID(c))
}

type summaryLister func(ctx context.Context, uid string) ([]models.ListingSummary, error)

func (s *Server) respondSummaries(c *fiber.Ctx, list summaryLister, uid string) error {
	summaries, err := list(c.UserContext(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summaries)
}
