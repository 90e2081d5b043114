package models

import "time"

// 触摸手势类型（设备端上报）
const (
	TouchNone      = ""
	TouchSingle    = "SINGLE"
	TouchDouble    = "DOUBLE"
	TouchLongPress = "LONG_PRESS"
)

// SensorSample 一次设备遥测采样（瞬态，不直接落库）
// DistanceCM 为负表示本次无超声波读数
type SensorSample struct {
	DeviceID   string    `json:"device_id"`
	DistanceCM float64   `json:"distance"`
	Touch      bool      `json:"touch"`
	TouchType  string    `json:"touch_type"`
	MicLevel   int       `json:"mic"`
	IPAddress  string    `json:"ip_address,omitempty"`
	StreamURL  string    `json:"stream_url,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// Thresholds 用户/设备级传感器阈值（sensor_thresholds 表，无记录时取默认值）
type Thresholds struct {
	UltrasonicMinDistance float64 `json:"ultrasonic_min_distance"`
	MicLoudThreshold      int     `json:"mic_loud_threshold"`
	NightModeEnabled      bool    `json:"night_mode_enabled"`
}
