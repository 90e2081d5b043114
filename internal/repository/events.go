package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"saarthi-alert/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventsRepository 传感器事件仓库（sensor_events 表）
// 事件只追加，媒体路径字段由上传回调延迟绑定
type EventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEventsRepository 创建传感器事件仓库
func NewEventsRepository(db *sql.DB, logger *zap.Logger) *EventsRepository {
	return &EventsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateEvent 写入事件并返回事件ID
// EventID 为空时由仓库分配，CreatedAt 为零值时取当前时间
func (r *EventsRepository) CreateEvent(ctx context.Context, event *models.Event) (string, error) {
	if event == nil {
		return "", fmt.Errorf("event is required")
	}
	if event.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	if event.EventType == "" {
		return "", fmt.Errorf("event_type is required")
	}

	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.Payload == "" {
		event.Payload = "{}"
	}

	query := `
		INSERT INTO sensor_events (event_id, user_id, device_id, event_type, severity, payload, image_path, audio_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.EventID,
		event.UserID,
		event.DeviceID,
		event.EventType,
		event.Severity,
		event.Payload,
		event.ImagePath,
		event.AudioPath,
		event.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create sensor event: %w", err)
	}

	return event.EventID, nil
}

// HasRecentEvent 检查窗口内是否已有同类型事件（去抖/冷却检查）
// deviceID 为空时不限定设备（地理围栏冷却是每用户全局的）
func (r *EventsRepository) HasRecentEvent(ctx context.Context, userID, deviceID, eventType string, within time.Duration) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("user_id is required")
	}
	if eventType == "" {
		return false, fmt.Errorf("event_type is required")
	}

	thresholdTime := time.Now().Add(-within)

	var exists bool
	var err error
	if deviceID != "" {
		query := `
			SELECT EXISTS (
				SELECT 1 FROM sensor_events
				WHERE user_id = $1
				  AND device_id = $2
				  AND event_type = $3
				  AND created_at > $4
			)
		`
		err = r.db.QueryRowContext(ctx, query, userID, deviceID, eventType, thresholdTime).Scan(&exists)
	} else {
		query := `
			SELECT EXISTS (
				SELECT 1 FROM sensor_events
				WHERE user_id = $1
				  AND event_type = $2
				  AND created_at > $3
			)
		`
		err = r.db.QueryRowContext(ctx, query, userID, eventType, thresholdTime).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check recent event: %w", err)
	}

	return exists, nil
}

// AttachMedia 将媒体路径绑定到指定事件（按 user_id 限定归属）
// 返回是否有行被更新；0 行说明事件不存在或不属于该用户
func (r *EventsRepository) AttachMedia(ctx context.Context, eventID, userID string, kind models.MediaKind, path string) (bool, error) {
	if eventID == "" {
		return false, fmt.Errorf("event_id is required")
	}
	if userID == "" {
		return false, fmt.Errorf("user_id is required")
	}
	if path == "" {
		return false, fmt.Errorf("path is required")
	}

	column, err := mediaColumn(kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		UPDATE sensor_events
		SET %s = $1
		WHERE event_id = $2
		  AND user_id = $3
	`, column)

	result, err := r.db.ExecContext(ctx, query, path, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to attach media: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows > 0, nil
}

// FindLatestMissingMedia 查找该用户/设备最近一条缺失指定媒体的事件
// 找不到时返回空字符串（调用方据此创建独立事件）
// 同一秒内有多条候选时取存储返回的第一条，结果依赖排序稳定性
func (r *EventsRepository) FindLatestMissingMedia(ctx context.Context, userID, deviceID string, kind models.MediaKind) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	if deviceID == "" {
		return "", fmt.Errorf("device_id is required")
	}

	column, err := mediaColumn(kind)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`
		SELECT event_id FROM sensor_events
		WHERE user_id = $1
		  AND device_id = $2
		  AND (%s IS NULL OR %s = '')
		ORDER BY created_at DESC
		LIMIT 1
	`, column, column)

	var eventID string
	err = r.db.QueryRowContext(ctx, query, userID, deviceID).Scan(&eventID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find event missing media: %w", err)
	}

	return eventID, nil
}

// GetEvent 根据 event_id 获取单个事件
func (r *EventsRepository) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event_id is required")
	}

	query := `
		SELECT event_id, user_id, device_id, event_type, severity, payload, image_path, audio_path, created_at
		FROM sensor_events
		WHERE event_id = $1
	`

	var event models.Event
	var deviceID, imagePath, audioPath sql.NullString
	var payload []byte

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&event.EventID,
		&event.UserID,
		&deviceID,
		&event.EventType,
		&event.Severity,
		&payload,
		&imagePath,
		&audioPath,
		&event.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sensor event not found: %s", eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sensor event: %w", err)
	}

	event.Payload = string(payload)
	if deviceID.Valid {
		event.DeviceID = &deviceID.String
	}
	if imagePath.Valid {
		event.ImagePath = &imagePath.String
	}
	if audioPath.Valid {
		event.AudioPath = &audioPath.String
	}

	return &event, nil
}

func mediaColumn(kind models.MediaKind) (string, error) {
	switch kind {
	case models.MediaImage:
		return "image_path", nil
	case models.MediaAudio:
		return "audio_path", nil
	default:
		return "", fmt.Errorf("unknown media kind: %s", kind)
	}
}
