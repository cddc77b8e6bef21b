package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elod87/service-book-2/internal/models"
	"github.com/elod87/service-book-2/internal/services"
	"github.com/elod87/service-book-2/internal/utils"
)

// ActionHandler manages billable action CRUD endpoints.
type ActionHandler struct {
	db       *gorm.DB
	sync     *services.SyncService
	validate *validator.Validate
	log      *zap.Logger
}

// NewActionHandler constructs an ActionHandler.
func NewActionHandler(db *gorm.DB, sync *services.SyncService, validate *validator.Validate, log *zap.Logger) *ActionHandler {
	return &ActionHandler{db: db, sync: sync, validate: validate, log: log}
}

var actionOrderColumns = map[string]string{
	"name":  "name",
	"price": "price",
}

// List returns paginated actions matching the search string.
func (h *ActionHandler) List(c *fiber.Ctx) error {
	params := utils.ParseListParams(c)

	query := h.db.Model(&models.Action{})
	if params.Search != "" {
		query = query.Where("lower(name) LIKE lower(?)", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	if order := params.OrderClause(actionOrderColumns); order != "" {
		query = query.Order(order)
	}

	var actions []models.Action
	if err := query.Limit(params.Limit).Offset(params.Offset).
		Find(&actions).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data":       actions,
		"page":       params.Page,
		"totalCount": total,
	})
}

type actionRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=100"`
	Price float64 `json:"price" validate:"min=0"`
}

// Create persists a new action.
func (h *ActionHandler) Create(c *fiber.Ctx) error {
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	action := models.Action{Name: req.Name, Price: req.Price}
	if err := h.db.Create(&action).Error; err != nil {
		return err
	}

	return c.JSON(action)
}

// Update modifies an action and propagates the name to services that
// cache it.
func (h *ActionHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var action models.Action
	if err := h.db.First(&action, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Action not found")
		}
		return err
	}

	action.Name = req.Name
	action.Price = req.Price
	if err := h.db.Save(&action).Error; err != nil {
		return err
	}

	if err := h.sync.ActionRenamed(action.ID, action.Name); err != nil {
		h.log.Error("action name sync failed",
			zap.String("actionId", action.ID.String()), zap.Error(err))
	}

	return c.JSON(action)
}

// Delete removes an action unless a service still references it.
func (h *ActionHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.sync.EnsureActionUnused(id); err != nil {
		if errors.Is(err, services.ErrEntityInUse) {
			return fiber.NewError(fiber.StatusForbidden, "Delete not allowed: action is in use")
		}
		return err
	}

	var action models.Action
	if err := h.db.First(&action, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Action not found")
		}
		return err
	}

	if err := h.db.Delete(&action).Error; err != nil {
		return err
	}

	return c.JSON(action)
}

// Get returns a single action by ID.
func (h *ActionHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var action models.Action
	if err := h.db.First(&action, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Action not found")
		}
		return err
	}

	return c.JSON(action)
}
