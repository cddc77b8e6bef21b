package handlers

import (
	"encoding/json"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elod87/service-book-2/internal/config"
	"github.com/elod87/service-book-2/internal/models"
)

// ImportHandler loads a JSON dump exported from the legacy
// application, replacing all entity and service data.
type ImportHandler struct {
	db  *gorm.DB
	cfg *config.Config
	log *zap.Logger
}

// NewImportHandler constructs an ImportHandler.
func NewImportHandler(db *gorm.DB, cfg *config.Config, log *zap.Logger) *ImportHandler {
	return &ImportHandler{db: db, cfg: cfg, log: log}
}

type importDump struct {
	Customers map[string]importCustomer `json:"customers"`
	Actions   map[string]importAction   `json:"actions"`
	Devices   map[string]importDevice   `json:"devices"`
	Services  map[string]importService  `json:"services"`
}

type importCustomer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type importAction struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type importDevice struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
}

type importService struct {
	Date        interface{} `json:"date"`
	Description string      `json:"description"`
	Remark      string      `json:"remark"`
	Status      string      `json:"status"`
	Customers   []string    `json:"customers"`
	Devices     []string    `json:"devices"`
	Actions     []struct {
		ActionID string  `json:"actionId"`
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	} `json:"actions"`
	NewDevices []struct {
		DeviceID string  `json:"deviceId"`
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	} `json:"newDevices"`
}

// Run wipes the current data set and imports the dump, remapping the
// legacy keys to fresh IDs. Invalid records are logged and skipped.
func (h *ImportHandler) Run(c *fiber.Ctx) error {
	raw, err := os.ReadFile(h.cfg.ImportFile)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "import file not readable")
	}

	var dump importDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "import file is not valid JSON")
	}

	if err := h.wipe(); err != nil {
		return err
	}

	customerIDs := make(map[string]uuid.UUID)
	for key, record := range dump.Customers {
		if record.Name == "" || record.Phone == "" {
			h.log.Warn("skipping customer import", zap.String("key", key))
			continue
		}
		customer := models.Customer{
			Name:    record.Name,
			Email:   record.Email,
			Phone:   record.Phone,
			Address: record.Address,
		}
		if err := h.db.Create(&customer).Error; err != nil {
			return err
		}
		customerIDs[key] = customer.ID
	}

	actionIDs := make(map[string]uuid.UUID)
	for key, record := range dump.Actions {
		if record.Name == "" {
			h.log.Warn("skipping action import", zap.String("key", key))
			continue
		}
		action := models.Action{Name: record.Name, Price: record.Price}
		if err := h.db.Create(&action).Error; err != nil {
			return err
		}
		actionIDs[key] = action.ID
	}

	deviceIDs := make(map[string]uuid.UUID)
	for key, record := range dump.Devices {
		name := record.Name
		if name == "" {
			name = models.DeviceName(record.Manufacturer, record.Model)
		}
		if name == "" {
			h.log.Warn("skipping device import", zap.String("key", key))
			continue
		}
		device := models.Device{
			Name:         name,
			Manufacturer: record.Manufacturer,
			Model:        record.Model,
			Serial:       record.Serial,
		}
		if err := h.db.Create(&device).Error; err != nil {
			return err
		}
		deviceIDs[key] = device.ID
	}

	for key, record := range dump.Services {
		if record.Description == "" || len(record.Customers) == 0 {
			h.log.Warn("skipping service import", zap.String("key", key))
			continue
		}

		service := models.Service{
			Number:       key,
			Date:         parseImportDate(record.Date),
			Description:  record.Description,
			Remark:       record.Remark,
			Status:       record.Status,
			LastModified: time.Now(),
		}
		if service.Status == "" {
			service.Status = "received"
		}

		if customerID, ok := customerIDs[record.Customers[0]]; ok {
			var customer models.Customer
			if err := h.db.First(&customer, "id = ?", customerID).Error; err == nil {
				id := customer.ID
				service.CustomerID = &id
				service.CustomerName = customer.Name
			}
		}

		for _, legacyID := range record.Devices {
			deviceID, ok := deviceIDs[legacyID]
			if !ok {
				continue
			}
			var device models.Device
			if err := h.db.First(&device, "id = ?", deviceID).Error; err != nil {
				continue
			}
			service.Devices = append(service.Devices, models.ServiceDevice{
				DeviceID:   device.ID,
				DeviceName: device.Name,
			})
		}

		for _, legacyAction := range record.Actions {
			actionID, ok := actionIDs[legacyAction.ActionID]
			if !ok {
				continue
			}
			var action models.Action
			if err := h.db.First(&action, "id = ?", actionID).Error; err != nil {
				continue
			}
			service.Actions = append(service.Actions, models.ServiceAction{
				ActionID:   action.ID,
				ActionName: action.Name,
				Price:      legacyAction.Price,
				Quantity:   legacyAction.Quantity,
			})
		}

		for _, legacyPart := range record.NewDevices {
			deviceID, ok := deviceIDs[legacyPart.DeviceID]
			if !ok {
				continue
			}
			var device models.Device
			if err := h.db.First(&device, "id = ?", deviceID).Error; err != nil {
				continue
			}
			service.NewDevices = append(service.NewDevices, models.ServiceNewDevice{
				DeviceID:   device.ID,
				DeviceName: device.Name,
				Price:      legacyPart.Price,
				Quantity:   legacyPart.Quantity,
			})
		}

		if err := h.db.Create(&service).Error; err != nil {
			h.log.Error("service import failed", zap.String("key", key), zap.Error(err))
		}
	}

	return c.SendString("Imported")
}

func (h *ImportHandler) wipe() error {
	session := h.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{
		&models.ServiceDevice{},
		&models.ServiceAction{},
		&models.ServiceNewDevice{},
		&models.Service{},
		&models.Customer{},
		&models.Device{},
		&models.Action{},
	} {
		if err := session.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// parseImportDate accepts both epoch milliseconds and RFC3339 strings,
// the two formats seen in legacy exports.
func parseImportDate(value interface{}) time.Time {
	switch v := value.(type) {
	case float64:
		return time.UnixMilli(int64(v))
	case string:
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed
		}
	}
	return time.Now()
}
