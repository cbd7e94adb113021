package platform

import (
	"errors"
	"io"

	"matchday/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UploadAvatar handles POST /api/storage/avatars. The processed avatar is
// stored and the caller's profile avatar_url is patched, which also emits a
// profiles change event.
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	if fileHeader.Size > AvatarMaxUploadBytes {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("File too large (max 2MB)"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, AvatarMaxUploadBytes+1))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if len(content) > AvatarMaxUploadBytes {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("File too large (max 2MB)"))
	}

	key, err := s.avatars.Put(userID, fileHeader.Header.Get("Content-Type"), content)
	if err != nil {
		return respondStoreError(c, err)
	}

	var profile models.Profile
	if err := s.db.WithContext(c.Context()).First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("profile", userID))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	avatarURL := s.config.PublicBaseURL + "/storage/avatars/" + key
	updated, err := s.store.Update(c.Context(), models.CollectionProfiles, profile.ID,
		map[string]any{"avatar_url": avatarURL})
	if err != nil {
		return respondStoreError(c, err)
	}

	return c.JSON(fiber.Map{
		"avatar_url": avatarURL,
		"profile":    updated,
	})
}

// ServeAvatar handles GET /storage/avatars/*. Avatars are public.
func (s *Server) ServeAvatar(c *fiber.Ctx) error {
	key := c.Params("*")
	full, err := s.avatars.Resolve(key)
	if err != nil {
		return respondStoreError(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/webp")
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.SendFile(full)
}
