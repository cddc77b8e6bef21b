package models

import (
	"time"

	"github.com/google/uuid"
)

// Service is a repair order: one customer, the devices brought in,
// the billable actions performed and the parts sold. Referenced names
// are cached on the row for display and kept in sync on rename.
type Service struct {
	BaseModel
	Number       string    `gorm:"uniqueIndex" json:"number"`
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
	Remark       string    `json:"remark"`
	Status       string    `json:"status"`
	LastModified time.Time `json:"lastModified"`

	CustomerID   *uuid.UUID `gorm:"type:uuid;index" json:"customerId"`
	CustomerName string     `json:"customerName"`

	Devices    []ServiceDevice    `json:"devices,omitempty"`
	Actions    []ServiceAction    `json:"actions,omitempty"`
	NewDevices []ServiceNewDevice `json:"newDevices,omitempty"`
}

// ServiceDevice links a device in for repair to a service.
type ServiceDevice struct {
	BaseModel
	ServiceID  uuid.UUID `gorm:"type:uuid;index" json:"-"`
	DeviceID   uuid.UUID `gorm:"type:uuid;index" json:"deviceId"`
	DeviceName string    `json:"deviceName"`
}

// ServiceAction links a billable action to a service with the price
// and quantity agreed at the time.
type ServiceAction struct {
	BaseModel
	ServiceID  uuid.UUID `gorm:"type:uuid;index" json:"-"`
	ActionID   uuid.UUID `gorm:"type:uuid;index" json:"actionId"`
	ActionName string    `json:"actionName"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
}

// ServiceNewDevice records a part sold as part of a service.
type ServiceNewDevice struct {
	BaseModel
	ServiceID  uuid.UUID `gorm:"type:uuid;index" json:"-"`
	DeviceID   uuid.UUID `gorm:"type:uuid;index" json:"deviceId"`
	DeviceName string    `json:"deviceName"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
}
