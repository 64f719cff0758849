package models

import "time"

// DeviceStatus is the periodic status event published by the agent.
type DeviceStatus struct {
	ScreenID      string    `json:"screen_id,omitempty"`
	State         string    `json:"state"`
	StatusText    string    `json:"status_text,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	CPUPercent    float64   `json:"cpu_percent,omitempty"`
	MemoryPercent float64   `json:"memory_percent,omitempty"`
	DiskPercent   float64   `json:"disk_percent,omitempty"`
}
