package services_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/elod87/service-book-2/internal/database"
	"github.com/elod87/service-book-2/internal/models"
	"github.com/elod87/service-book-2/internal/services"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

func createService(t *testing.T, db *gorm.DB, customer *models.Customer, device *models.Device, action *models.Action) *models.Service {
	t.Helper()

	service := &models.Service{
		Number:      uuid.NewString(),
		Description: "screen replacement",
		Status:      "received",
	}
	if customer != nil {
		id := customer.ID
		service.CustomerID = &id
		service.CustomerName = customer.Name
	}
	if device != nil {
		service.Devices = []models.ServiceDevice{
			{DeviceID: device.ID, DeviceName: device.Name},
		}
	}
	if action != nil {
		service.Actions = []models.ServiceAction{
			{ActionID: action.ID, ActionName: action.Name, Price: action.Price, Quantity: 1},
		}
	}

	require.NoError(t, db.Create(service).Error)
	return service
}

func TestCustomerRenamedUpdatesOnlyReferencingServices(t *testing.T) {
	db := openTestDB(t)
	sync := services.NewSyncService(db)

	jane := &models.Customer{Name: "Jane Doe", Phone: "555-1"}
	bob := &models.Customer{Name: "Bob", Phone: "555-2"}
	require.NoError(t, db.Create(jane).Error)
	require.NoError(t, db.Create(bob).Error)

	referencing := []*models.Service{
		createService(t, db, jane, nil, nil),
		createService(t, db, jane, nil, nil),
	}
	other := createService(t, db, bob, nil, nil)

	require.NoError(t, sync.CustomerRenamed(jane.ID, "Jane R. Doe"))

	for _, svc := range referencing {
		var got models.Service
		require.NoError(t, db.First(&got, "id = ?", svc.ID).Error)
		assert.Equal(t, "Jane R. Doe", got.CustomerName)
	}

	var untouched models.Service
	require.NoError(t, db.First(&untouched, "id = ?", other.ID).Error)
	assert.Equal(t, "Bob", untouched.CustomerName)
}

func TestDeviceRenamedUpdatesRepairAndSoldScopes(t *testing.T) {
	db := openTestDB(t)
	sync := services.NewSyncService(db)

	device := &models.Device{Name: "Acme X1", Manufacturer: "Acme", Model: "X1"}
	require.NoError(t, db.Create(device).Error)

	service := createService(t, db, nil, device, nil)
	service.NewDevices = []models.ServiceNewDevice{
		{ServiceID: service.ID, DeviceID: device.ID, DeviceName: device.Name, Price: 10, Quantity: 1},
	}
	require.NoError(t, db.Create(&service.NewDevices[0]).Error)

	require.NoError(t, sync.DeviceRenamed(device.ID, "Acme X2"))

	var repairRow models.ServiceDevice
	require.NoError(t, db.First(&repairRow, "service_id = ?", service.ID).Error)
	assert.Equal(t, "Acme X2", repairRow.DeviceName)

	var soldRow models.ServiceNewDevice
	require.NoError(t, db.First(&soldRow, "service_id = ?", service.ID).Error)
	assert.Equal(t, "Acme X2", soldRow.DeviceName)
}

func TestActionRenamed(t *testing.T) {
	db := openTestDB(t)
	sync := services.NewSyncService(db)

	action := &models.Action{Name: "Cleaning", Price: 20}
	require.NoError(t, db.Create(action).Error)
	service := createService(t, db, nil, nil, action)

	require.NoError(t, sync.ActionRenamed(action.ID, "Deep cleaning"))

	var row models.ServiceAction
	require.NoError(t, db.First(&row, "service_id = ?", service.ID).Error)
	assert.Equal(t, "Deep cleaning", row.ActionName)
	// snapshotted price is untouched by the rename
	assert.Equal(t, float64(20), row.Price)
}

func TestEnsureUnusedBlocksReferencedEntities(t *testing.T) {
	db := openTestDB(t)
	sync := services.NewSyncService(db)

	customer := &models.Customer{Name: "Jane", Phone: "555-1"}
	device := &models.Device{Name: "Acme X1"}
	action := &models.Action{Name: "Cleaning"}
	require.NoError(t, db.Create(customer).Error)
	require.NoError(t, db.Create(device).Error)
	require.NoError(t, db.Create(action).Error)

	createService(t, db, customer, device, action)

	assert.ErrorIs(t, sync.EnsureCustomerUnused(customer.ID), services.ErrEntityInUse)
	assert.ErrorIs(t, sync.EnsureDeviceUnused(device.ID), services.ErrEntityInUse)
	assert.ErrorIs(t, sync.EnsureActionUnused(action.ID), services.ErrEntityInUse)

	assert.NoError(t, sync.EnsureCustomerUnused(uuid.New()))
	assert.NoError(t, sync.EnsureDeviceUnused(uuid.New()))
	assert.NoError(t, sync.EnsureActionUnused(uuid.New()))
}

func TestEnsureDeviceUnusedCountsSoldParts(t *testing.T) {
	db := openTestDB(t)
	sync := services.NewSyncService(db)

	device := &models.Device{Name: "Acme X1"}
	require.NoError(t, db.Create(device).Error)

	service := createService(t, db, nil, nil, nil)
	sold := models.ServiceNewDevice{
		ServiceID: service.ID, DeviceID: device.ID, DeviceName: device.Name,
		Price: 99, Quantity: 1,
	}
	require.NoError(t, db.Create(&sold).Error)

	assert.ErrorIs(t, sync.EnsureDeviceUnused(device.ID), services.ErrEntityInUse)
}
