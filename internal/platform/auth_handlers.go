package platform

import (
	"errors"
	"fmt"
	"time"

	"matchday/internal/cache"
	"matchday/internal/models"
	"matchday/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// syntheticEmail maps a normalized username onto the email-shaped identifier
// the auth table stores. Accounts have no real email address.
func syntheticEmail(username string) string {
	return fmt.Sprintf("%s@matchday.local", username)
}

// Token handles POST /api/auth/token. Credentials are a username and
// password; the response carries a bearer token and the auth user.
func (s *Server) Token(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	username := validation.NormalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}

	var user models.User
	err := s.db.WithContext(c.Context()).
		First(&user, "email = ?", syntheticEmail(username)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid credentials"))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.generateToken(user.ID, username)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Signout handles POST /api/auth/signout. Token revocation is best effort;
// without Redis the token simply ages out.
func (s *Server) Signout(c *fiber.Ctx) error {
	if s.redis != nil {
		if jti, ok := c.Locals("jti").(string); ok && jti != "" {
			s.redis.Set(c.Context(), "blacklist:"+jti, "1", time.Hour*24*7)
		}
	}
	return c.JSON(fiber.Map{"status": "signed out"})
}

// CreateUser handles POST /api/admin/users. Only admins create accounts;
// there is no self-service signup. The auth user and its profile are created
// together.
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	username := validation.NormalizeUsername(req.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	displayName := req.DisplayName
	if displayName == "" {
		displayName = username
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Role must be user or admin"))
	}

	var existing models.User
	err := s.db.WithContext(c.Context()).
		First(&existing, "email = ?", syntheticEmail(username)).Error
	if err == nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("Username is already taken"))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	user := &models.User{
		Email:    syntheticEmail(username),
		Password: string(hashedPassword),
	}
	profile := &models.Profile{
		Username:    username,
		DisplayName: displayName,
		Role:        role,
	}

	txErr := s.db.WithContext(c.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
	if txErr != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(txErr))
	}

	cache.InvalidateProfile(c.Context(), user.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":    user,
		"profile": profile,
	})
}

// generateToken creates a JWT token for the given user ID and username.
func (s *Server) generateToken(userID, username string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"iss":      "matchday-platform",
		"aud":      "matchday-client",
		"exp":      now.Add(time.Hour * 24 * 7).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}
