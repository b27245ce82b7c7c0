package server

import (
	"fmt"
	"io"
	"mime/multipart"

	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadListingPhotos handles POST /api/listings/:id/photos. Files arrive in
// the multipart field "files" and are attached in the order sent.
func (s *Server) UploadListingPhotos(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Expected a multipart form with field 'files'"))
	}

	headers := form.File["files"]
	if len(headers) > s.maxFiles() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf("Too many files (max %d)", s.maxFiles())))
	}

	maxBytes := s.maxUploadBytes()
	files := make([]service.PhotoFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxBytes {
			return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge,
				models.NewValidationError(fmt.Sprintf("File %q exceeds %d MB", fh.Filename, maxBytes>>20)))
		}
		data, err := readFormFile(fh, maxBytes)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(fmt.Sprintf("Could not read file %q", fh.Filename)))
		}
		files = append(files, service.PhotoFile{Name: fh.Filename, Data: data})
	}

	photos, err := s.listingService.AttachPhotos(c.UserContext(), service.AttachPhotosInput{
		ListingID: id,
		CallerUID: middleware.CallerUID(c),
		Files:     files,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(photos)
}

func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file larger than %d bytes", limit)
	}
	return data, nil
}
