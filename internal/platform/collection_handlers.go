package platform

import (
	"encoding/json"
	"strings"

	"matchday/internal/cache"
	"matchday/internal/collection"
	"matchday/internal/models"
	"matchday/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// cacheKeyFor returns the cache key covering an unfiltered hot read, or ""
// when the query is not cached.
func cacheKeyFor(name string, f collection.Filter, order collection.Order) string {
	if !f.IsZero() {
		return ""
	}
	switch {
	case name == models.CollectionSchedules && order == collection.Descending:
		return cache.ScheduleFeedKey
	case name == models.CollectionMessages && order == collection.Ascending:
		return cache.MessageHistoryKeyString
	}
	return ""
}

// ListRecords handles GET /api/collections/:name. Supports a single
// equality filter (filter=column.eq.value) and created_at ordering
// (order=created_at.asc|created_at.desc).
func (s *Server) ListRecords(c *fiber.Ctx) error {
	name := c.Params("name")
	if !KnownCollection(name) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("collection", name))
	}

	f, err := collection.ParseFilter(c.Query("filter"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	order := collection.Order(c.Query("order", string(collection.Ascending)))
	if order != collection.Ascending && order != collection.Descending {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("order must be created_at.asc or created_at.desc"))
	}

	key := cacheKeyFor(name, f, order)
	if key != "" && s.redis != nil {
		if raw, err := s.redis.Get(c.Context(), key).Result(); err == nil {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.SendString(raw)
		}
	}

	records, err := s.store.List(c.Context(), name, f, order)
	if err != nil {
		return respondStoreError(c, err)
	}

	if key != "" && s.redis != nil {
		if raw, err := json.Marshal(records); err == nil {
			ttl := cache.ScheduleFeedTTL
			if key == cache.MessageHistoryKeyString {
				ttl = cache.MessageHistoryTTL
			}
			s.redis.Set(c.Context(), key, raw, ttl)
		}
	}

	return c.JSON(records)
}

// InsertRecord handles POST /api/collections/:name. The caller always owns
// the inserted record; any user_id in the body is overwritten.
func (s *Server) InsertRecord(c *fiber.Ctx) error {
	name := c.Params("name")
	if !KnownCollection(name) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("collection", name))
	}
	if name == models.CollectionProfiles {
		// Profiles are created with the account, never inserted directly.
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Profiles cannot be created directly"))
	}

	userID, _ := c.Locals("userID").(string)

	var body map[string]any
	if err := json.Unmarshal(c.Body(), &body); err != nil || body == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid record body"))
	}
	delete(body, "id")
	delete(body, "created_at")
	body["user_id"] = userID

	if err := validateInsert(name, body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid record body"))
	}

	record, err := s.store.Insert(c.Context(), name, payload)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

// UpdateRecord handles PATCH /api/collections/:name/:id. Only the owner or
// an admin may patch a record.
func (s *Server) UpdateRecord(c *fiber.Ctx) error {
	name := c.Params("name")
	id := c.Params("id")
	if !KnownCollection(name) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("collection", name))
	}

	existing, err := s.store.Get(c.Context(), name, id)
	if err != nil {
		return respondStoreError(c, err)
	}
	if err := s.authorizeWrite(c, existing); err != nil {
		return err
	}

	var patch map[string]any
	if err := json.Unmarshal(c.Body(), &patch); err != nil || patch == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid patch body"))
	}

	record, err := s.store.Update(c.Context(), name, id, patch)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(record)
}

// DeleteRecord handles DELETE /api/collections/:name/:id. Only the owner or
// an admin may delete a record.
func (s *Server) DeleteRecord(c *fiber.Ctx) error {
	name := c.Params("name")
	id := c.Params("id")
	if !KnownCollection(name) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("collection", name))
	}

	existing, err := s.store.Get(c.Context(), name, id)
	if err != nil {
		return respondStoreError(c, err)
	}
	if err := s.authorizeWrite(c, existing); err != nil {
		return err
	}

	record, err := s.store.Delete(c.Context(), name, id)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(record)
}

// authorizeWrite enforces owner-or-admin access on an existing record.
func (s *Server) authorizeWrite(c *fiber.Ctx, record any) error {
	userID, _ := c.Locals("userID").(string)
	if owner := OwnerOf(record); owner != "" && owner == userID {
		return nil
	}

	admin, err := s.isAdminByUserID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if !admin {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("You can only modify your own records"))
	}
	return nil
}

func respondStoreError(c *fiber.Ctx, err error) error {
	if appErr, ok := err.(*models.AppError); ok {
		switch appErr.Code {
		case "NOT_FOUND":
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		case "VALIDATION_ERROR":
			return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
		}
	}
	if err == gorm.ErrRecordNotFound {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("record", c.Params("id")))
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError,
		models.NewInternalError(err))
}

func bodyString(body map[string]any, key string) string {
	v, _ := body[key].(string)
	return v
}

// validateInsert applies the per-collection field rules before a record
// reaches the store.
func validateInsert(name string, body map[string]any) error {
	switch name {
	case models.CollectionSchedules:
		return validation.ValidateSchedule(validation.ScheduleInput{
			Title:    bodyString(body, "title"),
			GameName: bodyString(body, "game_name"),
			Time:     bodyString(body, "time"),
			Date:     bodyString(body, "date"),
			Place:    bodyString(body, "place"),
		})
	case models.CollectionComments:
		if strings.TrimSpace(bodyString(body, "content")) == "" {
			return models.NewValidationError("content is required")
		}
		if bodyString(body, "schedule_id") == "" {
			return models.NewValidationError("schedule_id is required")
		}
	case models.CollectionCommentLikes:
		if bodyString(body, "comment_id") == "" {
			return models.NewValidationError("comment_id is required")
		}
	case models.CollectionReactions:
		if bodyString(body, "schedule_id") == "" {
			return models.NewValidationError("schedule_id is required")
		}
		if err := validation.ValidateEmoji(bodyString(body, "emoji")); err != nil {
			return err
		}
	case models.CollectionMessages:
		if strings.TrimSpace(bodyString(body, "content")) == "" {
			return models.NewValidationError("content is required")
		}
		if bodyString(body, "display_name") == "" {
			return models.NewValidationError("display_name is required")
		}
	}
	return nil
}
