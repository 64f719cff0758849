package models

import "encoding/json"

// PairingRegisterRequest reserves a human code for a temporary device id.
type PairingRegisterRequest struct {
	// TempDeviceID is the device's throwaway identifier for this attempt.
	TempDeviceID string `json:"temp_device_id"`

	// Code is the short numeric code shown on the screen.
	Code string `json:"code"`

	// TTLMinutes bounds how long the reservation stays valid.
	TTLMinutes int `json:"ttl_minutes"`

	// DeviceInfo carries optional device metadata, in key-value pairs.
	DeviceInfo json.RawMessage `json:"device_info,omitempty"`
}

// PairingStatusResponse reports whether an operator confirmed the code.
// Assigned is delivered at most once per assignment.
type PairingStatusResponse struct {
	Assigned bool   `json:"assigned"`
	ScreenID string `json:"screen_id,omitempty"`
}

// PairingConfirmRequest is sent by the operator path to bind a code to a
// newly created screen record.
type PairingConfirmRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// PairingConfirmResponse carries the permanent screen id.
type PairingConfirmResponse struct {
	ScreenID string `json:"screen_id"`
}
