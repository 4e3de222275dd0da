package domain

import "time"

// DeviceModel enumerates supported hardware types.
type DeviceModel string

const (
	ModelESP32   DeviceModel = "ESP32"
	ModelESP8266 DeviceModel = "ESP8266"
	ModelRP2040  DeviceModel = "RP2040"
	ModelSTM32   DeviceModel = "STM32"
)

// ValidDeviceModel reports whether m is a known hardware type.
func ValidDeviceModel(m DeviceModel) bool {
	switch m {
	case ModelESP32, ModelESP8266, ModelRP2040, ModelSTM32:
		return true
	}
	return false
}

// Device is a registered fleet member.
type Device struct {
	ID           string
	UserID       string
	Name         string
	Model        DeviceModel
	RepositoryID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GroupDevice is the membership record linking a device to a group.
type GroupDevice struct {
	GroupID  string
	DeviceID string
}
