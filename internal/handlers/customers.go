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

// CustomerHandler manages customer CRUD endpoints.
type CustomerHandler struct {
	db       *gorm.DB
	sync     *services.SyncService
	validate *validator.Validate
	log      *zap.Logger
}

// NewCustomerHandler constructs a CustomerHandler.
func NewCustomerHandler(db *gorm.DB, sync *services.SyncService, validate *validator.Validate, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{db: db, sync: sync, validate: validate, log: log}
}

var customerOrderColumns = map[string]string{
	"name":    "name",
	"email":   "email",
	"phone":   "phone",
	"address": "address",
}

// List returns paginated customers matching the search string.
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	params := utils.ParseListParams(c)

	query := h.db.Model(&models.Customer{})
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where(
			"lower(name) LIKE lower(?) OR lower(email) LIKE lower(?) OR lower(phone) LIKE lower(?) OR lower(address) LIKE lower(?)",
			pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	if order := params.OrderClause(customerOrderColumns); order != "" {
		query = query.Order(order)
	}

	var customers []models.Customer
	if err := query.Limit(params.Limit).Offset(params.Offset).
		Find(&customers).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data":       customers,
		"page":       params.Page,
		"totalCount": total,
	})
}

type customerRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Email   string `json:"email" validate:"max=100"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"max=200"`
}

// Create persists a new customer.
func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	var req customerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	customer := models.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := h.db.Create(&customer).Error; err != nil {
		return err
	}

	return c.JSON(customer)
}

// Update modifies a customer and propagates the (possibly new) name
// to services that cache it.
func (h *CustomerHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req customerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Customer not found")
		}
		return err
	}

	customer.Name = req.Name
	customer.Email = req.Email
	customer.Phone = req.Phone
	customer.Address = req.Address
	if err := h.db.Save(&customer).Error; err != nil {
		return err
	}

	// The customer row is committed; a failed fan-out leaves stale
	// cached names, which is repaired by the next rename.
	if err := h.sync.CustomerRenamed(customer.ID, customer.Name); err != nil {
		h.log.Error("customer name sync failed",
			zap.String("customerId", customer.ID.String()), zap.Error(err))
	}

	return c.JSON(customer)
}

// Delete removes a customer unless a service still references it.
func (h *CustomerHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.sync.EnsureCustomerUnused(id); err != nil {
		if errors.Is(err, services.ErrEntityInUse) {
			return fiber.NewError(fiber.StatusForbidden, "Delete not allowed: customer is in use")
		}
		return err
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Customer not found")
		}
		return err
	}

	if err := h.db.Delete(&customer).Error; err != nil {
		return err
	}

	return c.JSON(customer)
}

// Get returns a single customer by ID.
func (h *CustomerHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Customer not found")
		}
		return err
	}

	return c.JSON(customer)
}
