package handlers

import (
	"time"

	"github.com/go-playground/validator/v10"
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

// UserHandler manages registration and the account lifecycle.
type UserHandler struct {
	db       *gorm.DB
	cfg      *config.Config
	maker    *token.Maker
	mail     *services.MailService
	validate *validator.Validate
	log      *zap.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, cfg *config.Config, maker *token.Maker, mail *services.MailService, validate *validator.Validate, log *zap.Logger) *UserHandler {
	return &UserHandler{db: db, cfg: cfg, maker: maker, mail: mail, validate: validate, log: log}
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	return c.JSON(user)
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"omitempty,email,max=100"`
	Password string `json:"password" validate:"max=1024"`
}

// Register creates a new classic account. The account stays locked
// until an administrator approves it; registration fires the
// mail-validation and approval-request notifications.
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusBadRequest, "User already registered")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: passwordHash,
	}
	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	activationToken, err := h.maker.Generate(token.MailActivation, user.ID)
	if err != nil {
		return err
	}
	approvalToken, err := h.maker.Generate(token.AdminApproval, user.ID)
	if err != nil {
		return err
	}

	h.mail.SendMailValidation(user, activationToken)
	h.mail.SendForApproval(user, approvalToken)

	return c.JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

type updateUserRequest struct {
	Name string `json:"name" validate:"required,min=3,max=50"`
}

// Update changes a user's display name.
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	user.Name = req.Name
	if err := h.db.Save(&user).Error; err != nil {
		return err
	}

	return c.JSON(user)
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword issues a single-use reset token and mails the reset
// link. The response is the same whether or not the address is
// registered.
func (h *UserHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var user models.User
	err := h.db.Where("email = ?", req.Email).First(&user).Error
	if err == nil {
		resetToken, err := h.maker.Generate(token.PasswordReset, user.ID)
		if err != nil {
			return err
		}

		record := models.PasswordResetToken{
			UserID:    user.ID,
			Token:     resetToken,
			ExpiresAt: time.Now().Add(token.PasswordReset.TTL()),
		}
		if err := h.db.Create(&record).Error; err != nil {
			return err
		}

		h.mail.SendPasswordReset(user, resetToken)
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	return c.JSON(fiber.Map{"message": "If the address is registered, a reset mail was sent"})
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,max=1024"`
}

// ResetPassword completes the forgot-password flow. The bearer token
// must be an outstanding reset token; it is consumed here, so a second
// use fails. All refresh tokens are revoked along the way.
func (h *UserHandler) ResetPassword(c *fiber.Ctx) error {
	resetToken, err := middleware.BearerToken(c)
	if err != nil {
		return err
	}

	userID, err := h.maker.Verify(resetToken, token.PasswordReset)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid token")
	}

	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var record models.PasswordResetToken
	if err := h.db.Where("user_id = ? AND token = ?", userID, resetToken).
		First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusBadRequest, "invalid token")
		}
		return err
	}
	if record.ExpiresAt.Before(time.Now()) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid token")
	}

	// Consume the token before touching the password, exactly once.
	if err := h.db.Delete(&record).Error; err != nil {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).
		Update("password", passwordHash).Error; err != nil {
		return err
	}

	// A reset invalidates every open session's refresh token.
	if err := h.db.Where("user_id = ?", userID).
		Delete(&models.RefreshToken{}).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password was successfully reset"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"password" validate:"required,max=1024"`
}

// ChangePassword lets an authenticated user replace their password.
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusBadRequest, "User not found")
		}
		return err
	}

	if !utils.CheckPassword(user.Password, req.CurrentPassword) {
		return fiber.NewError(fiber.StatusUnauthorized, "Password incorrect")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user.Password = passwordHash
	if err := h.db.Save(&user).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password was successfully reset"})
}

// ValidateMail marks the user's address as confirmed. The link is
// delivered by the registration mail.
func (h *UserHandler) ValidateMail(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	subject, err := h.maker.Verify(c.Params("token"), token.MailActivation)
	if err != nil || subject != userID {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid user or token.")
	}

	result := h.db.Model(&models.User{}).Where("id = ?", userID).
		Update("is_valid_mail", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid user or token.")
	}

	return c.SendString("validated")
}

// Approve grants or revokes account access. The link is delivered by
// the admin approval-request mail.
func (h *UserHandler) Approve(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	approved := c.Params("approved") == "1"

	subject, err := h.maker.Verify(c.Params("token"), token.AdminApproval)
	if err != nil || subject != userID {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid user or token.")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid user or token.")
		}
		return err
	}

	user.IsApproved = approved
	if err := h.db.Save(&user).Error; err != nil {
		return err
	}

	h.mail.SendApprovalResult(user, approved)

	if approved {
		return c.SendString("user access granted")
	}
	return c.SendString("user access revoked")
}
