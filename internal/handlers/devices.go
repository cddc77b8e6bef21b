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

// DeviceHandler manages device CRUD endpoints.
type DeviceHandler struct {
	db       *gorm.DB
	sync     *services.SyncService
	validate *validator.Validate
	log      *zap.Logger
}

// NewDeviceHandler constructs a DeviceHandler.
func NewDeviceHandler(db *gorm.DB, sync *services.SyncService, validate *validator.Validate, log *zap.Logger) *DeviceHandler {
	return &DeviceHandler{db: db, sync: sync, validate: validate, log: log}
}

var deviceOrderColumns = map[string]string{
	"name":         "name",
	"manufacturer": "manufacturer",
	"model":        "model",
	"serial":       "serial",
}

// List returns paginated devices matching the search string.
func (h *DeviceHandler) List(c *fiber.Ctx) error {
	params := utils.ParseListParams(c)

	query := h.db.Model(&models.Device{})
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where(
			"lower(name) LIKE lower(?) OR lower(serial) LIKE lower(?)",
			pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	if order := params.OrderClause(deviceOrderColumns); order != "" {
		query = query.Order(order)
	}

	var devices []models.Device
	if err := query.Limit(params.Limit).Offset(params.Offset).
		Find(&devices).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data":       devices,
		"page":       params.Page,
		"totalCount": total,
	})
}

type deviceRequest struct {
	Manufacturer string `json:"manufacturer" validate:"max=100"`
	Model        string `json:"model" validate:"max=300"`
	Serial       string `json:"serial" validate:"max=200"`
}

// Create persists a new device. The display name is derived from
// manufacturer and model.
func (h *DeviceHandler) Create(c *fiber.Ctx) error {
	var req deviceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	device := models.Device{
		Name:         models.DeviceName(req.Manufacturer, req.Model),
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		Serial:       req.Serial,
	}
	if err := h.db.Create(&device).Error; err != nil {
		return err
	}

	return c.JSON(device)
}

// Update modifies a device, re-derives its name and propagates it to
// services using the device in repair or as a sold part.
func (h *DeviceHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req deviceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var device models.Device
	if err := h.db.First(&device, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Device not found")
		}
		return err
	}

	device.Name = models.DeviceName(req.Manufacturer, req.Model)
	device.Manufacturer = req.Manufacturer
	device.Model = req.Model
	device.Serial = req.Serial
	if err := h.db.Save(&device).Error; err != nil {
		return err
	}

	if err := h.sync.DeviceRenamed(device.ID, device.Name); err != nil {
		h.log.Error("device name sync failed",
			zap.String("deviceId", device.ID.String()), zap.Error(err))
	}

	return c.JSON(device)
}

// Delete removes a device unless a service still references it.
func (h *DeviceHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.sync.EnsureDeviceUnused(id); err != nil {
		if errors.Is(err, services.ErrEntityInUse) {
			return fiber.NewError(fiber.StatusForbidden, "Delete not allowed: device is in use")
		}
		return err
	}

	var device models.Device
	if err := h.db.First(&device, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Device not found")
		}
		return err
	}

	if err := h.db.Delete(&device).Error; err != nil {
		return err
	}

	return c.JSON(device)
}

// Get returns a single device by ID.
func (h *DeviceHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var device models.Device
	if err := h.db.First(&device, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Device not found")
		}
		return err
	}

	return c.JSON(device)
}
