package models

import "time"

// 行程状态
const (
	TripPlanned   = "PLANNED"
	TripActive    = "ACTIVE"
	TripCompleted = "COMPLETED"
	TripDelayed   = "DELAYED"
)

// Trip 监护人创建的行程（trips 表）
// ExpectedEndTime 已过而状态仍为 ACTIVE 时判定为延误
type Trip struct {
	TripID          string     `json:"trip_id" db:"trip_id"`
	UserID          string     `json:"user_id" db:"user_id"`
	GuardianID      string     `json:"guardian_id" db:"guardian_id"`
	DestinationName string     `json:"destination_name" db:"destination_name"`
	ExpectedEndTime *time.Time `json:"expected_end_time,omitempty" db:"expected_end_time"`
	Status          string     `json:"status" db:"status"`
}

// Location 位置记录（locations 表）
type Location struct {
	UserID       string    `json:"user_id" db:"user_id"`
	DeviceID     *string   `json:"device_id,omitempty" db:"device_id"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	Accuracy     float64   `json:"accuracy" db:"accuracy"`
	Speed        float64   `json:"speed" db:"speed"`
	BatteryLevel *int      `json:"battery_level,omitempty" db:"battery_level"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
