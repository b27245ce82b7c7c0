package server

import (
	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListListings handles GET /api/listings?q=...
func (s *Server) ListListings(c *fiber.Ctx) error {
	summaries, err := s.listingService.ListAll(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summaries)
}

// GetListing handles GET /api/listings/:id
func (s *Server) GetListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.listingService.GetOne(c.UserContext(), id, middleware.CallerUID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// CreateListing handles POST /api/listings
func (s *Server) CreateListing(c *fiber.Ctx) error {
	var req struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Price   int64    `json:"price"`
		Town    string   `json:"town"`
		Tags    []string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	detail, err := s.listingService.CreateListing(c.UserContext(), service.CreateListingInput{
		SellerUID: middleware.CallerUID(c),
		Title:     req.Title,
		Content:   req.Content,
		Price:     req.Price,
		Town:      req.Town,
		Tags:      req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(detail)
}

// DeleteListing handles DELETE /api/listings/:id
func (s *Server) DeleteListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	err = s.listingService.SoftDelete(c.UserContext(), service.DeleteListingInput{
		ListingID: id,
		CallerUID: middleware.CallerUID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateListingStatus handles PATCH /api/listings/:id/status
func (s *Server) UpdateListingStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Status models.ListingStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	err = s.listingService.UpdateStatus(c.UserContext(), service.UpdateStatusInput{
		ListingID: id,
		CallerUID: middleware.CallerUID(c),
		Status:    req.Status,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "status": req.Status})
}

// CompleteTrade handles POST /api/listings/:id/trade
func (s *Server) CompleteTrade(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		BuyerUID string `json:"buyer_uid"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	trade, err := s.listingService.CompleteTrade(c.UserContext(), service.CompleteTradeInput{
		ListingID: id,
		SellerUID: middleware.CallerUID(c),
		BuyerUID:  req.BuyerUID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(trade)
}

// WriteReview handles POST /api/listings/:id/reviews
func (s *Server) WriteReview(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	review, err := s.listingService.WriteReview(c.UserContext(), service.WriteReviewInput{
		ListingID: id,
		BuyerUID:  middleware.CallerUID(c),
		Content:   req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}
