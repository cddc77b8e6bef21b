package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elod87/service-book-2/internal/models"
	"github.com/elod87/service-book-2/internal/utils"
)

// ServiceHandler manages repair order endpoints.
type ServiceHandler struct {
	db       *gorm.DB
	validate *validator.Validate
	log      *zap.Logger
}

// NewServiceHandler constructs a ServiceHandler.
func NewServiceHandler(db *gorm.DB, validate *validator.Validate, log *zap.Logger) *ServiceHandler {
	return &ServiceHandler{db: db, validate: validate, log: log}
}

var serviceOrderColumns = map[string]string{
	"number":      "number",
	"date":        "date",
	"status":      "status",
	"customer":    "customer_name",
	"description": "description",
}

// searchCondition matches the search string against the service's own
// fields and the cached names of its references.
const searchCondition = `lower(description) LIKE lower(@p) OR lower(remark) LIKE lower(@p)
OR lower(number) LIKE lower(@p) OR lower(customer_name) LIKE lower(@p)
OR EXISTS (SELECT 1 FROM service_devices sd WHERE sd.service_id = services.id AND lower(sd.device_name) LIKE lower(@p))
OR EXISTS (SELECT 1 FROM service_actions sa WHERE sa.service_id = services.id AND lower(sa.action_name) LIKE lower(@p))
OR EXISTS (SELECT 1 FROM service_new_devices sn WHERE sn.service_id = services.id AND lower(sn.device_name) LIKE lower(@p))`

// List returns paginated services with an optional status filter and
// search across descriptions and cached names.
func (h *ServiceHandler) List(c *fiber.Ctx) error {
	params := utils.ParseListParams(c)

	query := h.db.Model(&models.Service{})
	if statusFilter := c.Query("status"); statusFilter != "" {
		query = query.Where("status IN ?", strings.Split(statusFilter, ","))
	}
	if params.Search != "" {
		query = query.Where(searchCondition, map[string]interface{}{"p": "%" + params.Search + "%"})
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	if order := params.OrderClause(serviceOrderColumns); order != "" {
		query = query.Order(order)
	}

	var list []models.Service
	if err := query.Limit(params.Limit).Offset(params.Offset).
		Preload("Devices").Preload("Actions").Preload("NewDevices").
		Find(&list).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"services": list,
		"hasMore":  int64((params.Page+1)*params.Limit) < total,
	})
}

type serviceActionInput struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	Price    float64   `json:"price"`
	Quantity int       `json:"quantity"`
}

type serviceNewDeviceInput struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	Price    float64   `json:"price"`
	Quantity int       `json:"quantity"`
}

type serviceRequest struct {
	Number      string                  `json:"number"`
	Customer    uuid.UUID               `json:"customer" validate:"required"`
	Date        *time.Time              `json:"date"`
	Description string                  `json:"description" validate:"required,max=200"`
	Remark      string                  `json:"remark" validate:"max=200"`
	Status      string                  `json:"status"`
	Devices     []uuid.UUID             `json:"devices" validate:"required,min=1"`
	Actions     []serviceActionInput    `json:"actions" validate:"dive"`
	NewDevices  []serviceNewDeviceInput `json:"newDevices" validate:"dive"`
}

// Create opens a new repair order, snapshotting the current names of
// the referenced customer, devices and actions.
func (h *ServiceHandler) Create(c *fiber.Ctx) error {
	var req serviceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	now := time.Now()
	service := models.Service{
		Number:       req.Number,
		Date:         now,
		Description:  req.Description,
		Remark:       req.Remark,
		Status:       "received",
		LastModified: now,
	}
	if service.Number == "" {
		service.Number = fmt.Sprintf("%d", now.UnixMilli())
	}
	if req.Date != nil {
		service.Date = *req.Date
	}
	if req.Status != "" {
		service.Status = req.Status
	}

	h.resolveReferences(&service, req)

	if err := h.db.Create(&service).Error; err != nil {
		return err
	}

	return c.JSON(service)
}

// Update replaces a repair order's fields and reference lists,
// re-snapshotting names from the current entities.
func (h *ServiceHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req serviceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var service models.Service
	if err := h.db.First(&service, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Service not found")
		}
		return err
	}

	service.Description = req.Description
	service.Remark = req.Remark
	if req.Status != "" {
		service.Status = req.Status
	}
	if req.Date != nil {
		service.Date = *req.Date
	}
	service.LastModified = time.Now()

	if err := h.deleteChildren(service.ID); err != nil {
		return err
	}
	service.CustomerID = nil
	service.CustomerName = ""
	service.Devices = nil
	service.Actions = nil
	service.NewDevices = nil
	h.resolveReferences(&service, req)

	if err := h.db.Save(&service).Error; err != nil {
		return err
	}

	return c.JSON(service)
}

// Delete removes a repair order and its reference rows.
func (h *ServiceHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var service models.Service
	if err := h.db.Preload("Devices").Preload("Actions").Preload("NewDevices").
		First(&service, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Service not found")
		}
		return err
	}

	if err := h.deleteChildren(service.ID); err != nil {
		return err
	}
	if err := h.db.Delete(&models.Service{}, "id = ?", service.ID).Error; err != nil {
		return err
	}

	return c.JSON(service)
}

// Get returns a single repair order by ID.
func (h *ServiceHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var service models.Service
	if err := h.db.Preload("Devices").Preload("Actions").Preload("NewDevices").
		First(&service, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Service not found")
		}
		return err
	}

	return c.JSON(service)
}

// resolveReferences looks up the referenced entities and snapshots
// their current names (and prices/quantities as submitted). Unknown
// references are skipped.
func (h *ServiceHandler) resolveReferences(service *models.Service, req serviceRequest) {
	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", req.Customer).Error; err == nil {
		customerID := customer.ID
		service.CustomerID = &customerID
		service.CustomerName = customer.Name
	}

	for _, deviceID := range req.Devices {
		var device models.Device
		if err := h.db.First(&device, "id = ?", deviceID).Error; err != nil {
			continue
		}
		service.Devices = append(service.Devices, models.ServiceDevice{
			DeviceID:   device.ID,
			DeviceName: device.Name,
		})
	}

	for _, input := range req.Actions {
		var action models.Action
		if err := h.db.First(&action, "id = ?", input.ID).Error; err != nil {
			continue
		}
		service.Actions = append(service.Actions, models.ServiceAction{
			ActionID:   action.ID,
			ActionName: action.Name,
			Price:      input.Price,
			Quantity:   input.Quantity,
		})
	}

	for _, input := range req.NewDevices {
		var device models.Device
		if err := h.db.First(&device, "id = ?", input.ID).Error; err != nil {
			continue
		}
		service.NewDevices = append(service.NewDevices, models.ServiceNewDevice{
			DeviceID:   device.ID,
			DeviceName: device.Name,
			Price:      input.Price,
			Quantity:   input.Quantity,
		})
	}
}

func (h *ServiceHandler) deleteChildren(serviceID uuid.UUID) error {
	if err := h.db.Where("service_id = ?", serviceID).
		Delete(&models.ServiceDevice{}).Error; err != nil {
		return err
	}
	if err := h.db.Where("service_id = ?", serviceID).
		Delete(&models.ServiceAction{}).Error; err != nil {
		return err
	}
	return h.db.Where("service_id = ?", serviceID).
		Delete(&models.ServiceNewDevice{}).Error
}
