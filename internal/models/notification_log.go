package models

import "time"

// 通知投递状态
const (
	NotificationSent   = "SENT"
	NotificationFailed = "FAILED"
)

// 通知渠道
const (
	ChannelWhatsApp = "WHATSAPP"
)

// NotificationLog 通知审计记录（notification_logs 表）
// 每次投递尝试恰好写入一行，只追加、不修改、不删除
type NotificationLog struct {
	LogID        string    `json:"log_id" db:"log_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	EventID      *string   `json:"event_id,omitempty" db:"event_id"`
	TargetPhone  string    `json:"target_phone" db:"target_phone"`
	Channel      string    `json:"channel" db:"channel"`
	Message      string    `json:"message" db:"message"`
	Status       string    `json:"status" db:"status"`
	ResponseData string    `json:"response_data" db:"response_data"`
	SentAt       time.Time `json:"sent_at" db:"sent_at"`
}
