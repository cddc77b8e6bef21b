package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elod87/service-book-2/internal/config"
	"github.com/elod87/service-book-2/internal/middleware"
	"github.com/elod87/service-book-2/internal/models"
	"github.com/elod87/service-book-2/internal/services"
	"github.com/elod87/service-book-2/internal/token"
	"github.com/elod87/service-book-2/internal/utils"
)

const refreshCookieName = "refreshToken"

// Identical message for unknown email and wrong password, so the
// response does not reveal which accounts exist.
const invalidCredentialsMsg = "Invalid email or password"

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db     *gorm.DB
	cfg    *config.Config
	maker  *token.Maker
	google *services.GoogleService
	mail   *services.MailService
	log    *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, maker *token.Maker, google *services.GoogleService, mail *services.MailService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, maker: maker, google: google, mail: mail, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a classic email/password account.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusBadRequest, invalidCredentialsMsg)
		}
		return err
	}

	// Google-only accounts have no password hash; treat them like a
	// wrong password.
	if user.Password == "" || !utils.CheckPassword(user.Password, req.Password) {
		return fiber.NewError(fiber.StatusBadRequest, invalidCredentialsMsg)
	}

	if !user.IsApproved {
		return fiber.NewError(fiber.StatusBadRequest, "Your account was not approved yet")
	}

	return h.issueSession(c, &user)
}

// Validate exchanges a short-lived google-bridge token for a session.
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	bridgeToken, err := middleware.BearerToken(c)
	if err != nil {
		return err
	}

	userID, err := h.maker.Verify(bridgeToken, token.GoogleBridge)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid token")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusBadRequest, "user not found")
		}
		return err
	}

	if !user.IsApproved {
		return fiber.NewError(fiber.StatusBadRequest,
			"Your account is waiting for approval. You will receive a notification mail when account is activated.")
	}

	return h.issueSession(c, &user)
}

// Refresh mints a new session token from an outstanding refresh
// token. The refresh token itself is not rotated.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(refreshCookieName)
	if refreshToken == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing refresh token")
	}

	userID, err := h.maker.Verify(refreshToken, token.Refresh)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}

	// The signed token must also still be in the user's outstanding
	// set; logout and password reset remove it.
	var stored models.RefreshToken
	if err := h.db.Where("user_id = ? AND token = ?", userID, refreshToken).
		First(&stored).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		return err
	}

	sessionToken, err := h.maker.Generate(token.Session, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"token": sessionToken})
}

// Logout removes the presented refresh token from the outstanding set
// and clears the cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	refreshToken := c.Cookies(refreshCookieName)
	if refreshToken != "" {
		if err := h.db.Where("token = ?", refreshToken).
			Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})

	return c.JSON(fiber.Map{"success": true})
}

// GoogleLogin redirects the client to the Google consent page.
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	state := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     "oauthState",
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
	})

	return c.Redirect(h.google.AuthURL(state), fiber.StatusTemporaryRedirect)
}

// GoogleRedirect completes the OAuth dance: exchanges the code,
// creates the account on first login, and hands a short-lived bridge
// token back to the client app.
func (h *AuthHandler) GoogleRedirect(c *fiber.Ctx) error {
	if c.Query("state") == "" || c.Query("state") != c.Cookies("oauthState") {
		return fiber.NewError(fiber.StatusBadRequest, "invalid oauth state")
	}

	profile, err := h.google.FetchProfile(c.Context(), c.Query("code"))
	if err != nil {
		h.log.Error("google code exchange failed", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, "google login failed")
	}

	var user models.User
	err = h.db.Where("google_id = ?", profile.ID).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{
			Name:      profile.Name,
			Email:     profile.Email,
			GoogleID:  profile.ID,
			Thumbnail: profile.Picture,
		}
		if err := h.db.Create(&user).Error; err != nil {
			return err
		}

		approvalToken, err := h.maker.Generate(token.AdminApproval, user.ID)
		if err != nil {
			return err
		}
		h.mail.SendForApproval(user, approvalToken)
	} else if err != nil {
		return err
	}

	bridgeToken, err := h.maker.Generate(token.GoogleBridge, user.ID)
	if err != nil {
		return err
	}

	return c.Redirect(h.cfg.ClientURL+"/validate/"+bridgeToken, fiber.StatusTemporaryRedirect)
}

// issueSession generates the session and refresh token pair, records
// the refresh token in the outstanding set and sets the cookie.
func (h *AuthHandler) issueSession(c *fiber.Ctx, user *models.User) error {
	sessionToken, err := h.maker.Generate(token.Session, user.ID)
	if err != nil {
		return err
	}

	refreshToken, err := h.maker.Generate(token.Refresh, user.ID)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(token.Refresh.TTL())
	record := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: expiresAt,
	}
	if err := h.db.Create(&record).Error; err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Expires:  expiresAt,
		HTTPOnly: true,
	})

	return c.JSON(fiber.Map{
		"token": sessionToken,
		"user":  user.Info(),
	})
}
