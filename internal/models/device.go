package models

import "strings"

// Device is a repairable (or sellable) piece of hardware. Name is
// derived from manufacturer and model on create/update.
type Device struct {
	BaseModel
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
}

// DeviceName builds the derived display name "manufacturer model".
func DeviceName(manufacturer, model string) string {
	return strings.TrimSpace(manufacturer + " " + model)
}
