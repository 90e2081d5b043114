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

// NotificationLogsRepository 通知审计仓库（notification_logs 表，只追加）
type NotificationLogsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationLogsRepository 创建通知审计仓库
func NewNotificationLogsRepository(db *sql.DB, logger *zap.Logger) *NotificationLogsRepository {
	return &NotificationLogsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateLog 写入一条投递审计记录
// 网关成功与否都要写，这里失败只能影响审计、不影响报警链路
func (r *NotificationLogsRepository) CreateLog(ctx context.Context, log *models.NotificationLog) error {
	if log == nil {
		return fmt.Errorf("log is required")
	}
	if log.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if log.TargetPhone == "" {
		return fmt.Errorf("target_phone is required")
	}
	if log.Status != models.NotificationSent && log.Status != models.NotificationFailed {
		return fmt.Errorf("invalid status: %s", log.Status)
	}

	if log.LogID == "" {
		log.LogID = uuid.New().String()
	}
	if log.SentAt.IsZero() {
		log.SentAt = time.Now()
	}
	if log.Channel == "" {
		log.Channel = models.ChannelWhatsApp
	}

	query := `
		INSERT INTO notification_logs (log_id, user_id, event_id, target_phone, channel, message, status, response_data, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.LogID,
		log.UserID,
		log.EventID,
		log.TargetPhone,
		log.Channel,
		log.Message,
		log.Status,
		log.ResponseData,
		log.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification log: %w", err)
	}

	return nil
}
