package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/elod87/service-book-2/internal/models"
)

// ErrEntityInUse is returned when a customer, device or action is
// still referenced by at least one service and may not be deleted.
var ErrEntityInUse = errors.New("entity is in use")

// SyncService keeps the cached display names embedded in services in
// step with the entities they reference. Renames fan out to every
// referencing row; deletes are blocked while references exist. The
// multi-row updates are not transactional with the entity change, so
// a failure here leaves names stale rather than rolling back (callers
// log and move on).
type SyncService struct {
	db *gorm.DB
}

// NewSyncService constructs a SyncService.
func NewSyncService(db *gorm.DB) *SyncService {
	return &SyncService{db: db}
}

// CustomerRenamed propagates a customer's new name to all services
// referencing it.
func (s *SyncService) CustomerRenamed(id uuid.UUID, name string) error {
	return s.db.Model(&models.Service{}).
		Where("customer_id = ?", id).
		Update("customer_name", name).Error
}

// DeviceRenamed propagates a device's new name to services using it,
// both as a device in for repair and as a sold part.
func (s *SyncService) DeviceRenamed(id uuid.UUID, name string) error {
	if err := s.db.Model(&models.ServiceDevice{}).
		Where("device_id = ?", id).
		Update("device_name", name).Error; err != nil {
		return err
	}
	return s.db.Model(&models.ServiceNewDevice{}).
		Where("device_id = ?", id).
		Update("device_name", name).Error
}

// ActionRenamed propagates an action's new name to all services
// referencing it.
func (s *SyncService) ActionRenamed(id uuid.UUID, name string) error {
	return s.db.Model(&models.ServiceAction{}).
		Where("action_id = ?", id).
		Update("action_name", name).Error
}

// EnsureCustomerUnused fails with ErrEntityInUse when any service
// references the customer.
func (s *SyncService) EnsureCustomerUnused(id uuid.UUID) error {
	var count int64
	if err := s.db.Model(&models.Service{}).
		Where("customer_id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEntityInUse
	}
	return nil
}

// EnsureDeviceUnused fails with ErrEntityInUse when any service uses
// the device, in repair or as a sold part.
func (s *SyncService) EnsureDeviceUnused(id uuid.UUID) error {
	var count int64
	if err := s.db.Model(&models.ServiceDevice{}).
		Where("device_id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		if err := s.db.Model(&models.ServiceNewDevice{}).
			Where("device_id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
	}
	if count > 0 {
		return ErrEntityInUse
	}
	return nil
}

// EnsureActionUnused fails with ErrEntityInUse when any service
// references the action.
func (s *SyncService) EnsureActionUnused(id uuid.UUID) error {
	var count int64
	if err := s.db.Model(&models.ServiceAction{}).
		Where("action_id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEntityInUse
	}
	return nil
}
