package models

import "time"

// 事件严重级别（LOW < MEDIUM < HIGH < CRITICAL）
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// 事件类型
const (
	EventObstacleAlert      = "OBSTACLE_ALERT"
	EventLoudSoundAlert     = "LOUD_SOUND_ALERT"
	EventLongPressEmergency = "LONG_PRESS_EMERGENCY"
	EventDoubleTapMusic     = "DOUBLE_TAP_MUSIC"
	EventSingleTapVoice     = "SINGLE_TAP_VOICE"
	EventSOSTouch           = "SOS_TOUCH"
	EventSOSManual          = "SOS_MANUAL"
	EventGeofenceBreach     = "GEOFENCE_BREACH"
	EventTripDelay          = "TRIP_DELAY"
	EventImageCapture       = "IMAGE_CAPTURE"
	EventAudioRecording     = "AUDIO_RECORDING"
)

// SeverityRank 严重级别排序值，用于通知门槛判断
func SeverityRank(severity string) int {
	switch severity {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// RequiresNotification 严重级别达到 HIGH 时触发监护人通知
func RequiresNotification(severity string) bool {
	return SeverityRank(severity) >= SeverityRank(SeverityHigh)
}

// Event 传感器事件（对应 sensor_events 表）
// 媒体路径由上传回调延迟绑定，每个字段最多写入一次
type Event struct {
	EventID   string    `json:"event_id" db:"event_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	DeviceID  *string   `json:"device_id,omitempty" db:"device_id"`
	EventType string    `json:"event_type" db:"event_type"`
	Severity  string    `json:"severity" db:"severity"`
	Payload   string    `json:"payload" db:"payload"` // JSONB
	ImagePath *string   `json:"image_path,omitempty" db:"image_path"`
	AudioPath *string   `json:"audio_path,omitempty" db:"audio_path"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SensorPayload 传感器事件载荷快照（JSONB 结构）
// TriggerAudioRecording / TriggerPhotoCapture 指示设备端带外采集媒体
type SensorPayload struct {
	Distance              *float64 `json:"distance,omitempty"`
	Touch                 *bool    `json:"touch,omitempty"`
	TouchType             *string  `json:"touch_type,omitempty"`
	MicRaw                *int     `json:"mic_raw,omitempty"`
	TriggerAudioRecording bool     `json:"trigger_audio_recording,omitempty"`
	TriggerPhotoCapture   bool     `json:"trigger_photo_capture,omitempty"`
	TriggeredBy           string   `json:"triggered_by,omitempty"`
	Timestamp             string   `json:"timestamp"`
}

// GeofencePayload 地理围栏事件载荷（JSONB 结构）
type GeofencePayload struct {
	ZoneID     string  `json:"zone_id"`
	ZoneName   string  `json:"zone_name"`
	BreachType string  `json:"breach_type"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// 媒体字段类型（sensor_events.image_path / audio_path）
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)
