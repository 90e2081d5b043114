package models

import "time"

// 家长-子女关联状态（parent_child_links 表）
const (
	LinkPending = "PENDING"
	LinkActive  = "ACTIVE"
	LinkBlocked = "BLOCKED"
)

// User 用户（users 表，CRUD 由外部系统维护，本服务只读）
type User struct {
	UserID string `json:"user_id" db:"user_id"`
	Name   string `json:"name" db:"name"`
	Phone  string `json:"phone" db:"phone"`
	Role   string `json:"role" db:"role"`
}

// Device 佩戴设备（devices 表）
// HardwareID 是设备侧烧录的标识（ESP32 上报用），DeviceID 是数据库主键
type Device struct {
	DeviceID   string     `json:"device_id" db:"device_id"`
	HardwareID string     `json:"hardware_id" db:"hardware_id"`
	UserID     string     `json:"user_id" db:"user_id"`
	Status     string     `json:"status" db:"status"`
	LastSeen   *time.Time `json:"last_seen,omitempty" db:"last_seen"`
	IPAddress  *string    `json:"ip_address,omitempty" db:"ip_address"`
	StreamURL  *string    `json:"stream_url,omitempty" db:"stream_url"`
}
