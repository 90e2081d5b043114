package notifier

import (
	"context"

	"saarthi-alert/internal/models"
	"saarthi-alert/internal/repository"

	"go.uber.org/zap"
)

// Dispatcher 通知分发器
// 负责单个接收人的投递尝试：归一化号码 → 网关调用 → 审计落库
// 审计行无论成败恰好写一条；返回值仅表示网关是否确认
type Dispatcher struct {
	client *WhatsAppClient
	logs   *repository.NotificationLogsRepository
	logger *zap.Logger
}

// NewDispatcher 创建通知分发器
func NewDispatcher(client *WhatsAppClient, logs *repository.NotificationLogsRepository, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		logs:   logs,
		logger: logger,
	}
}

// SendMessage 向单个号码投递消息并写入审计记录
// 网关失败不反馈给报警链路（调用方拿到 false 仅用于日志）
func (d *Dispatcher) SendMessage(ctx context.Context, phone, message, userID string, eventID *string) bool {
	normalized := NormalizePhone(phone)

	ok, responseData := d.client.Send(ctx, normalized, message)

	status := models.NotificationFailed
	if ok {
		status = models.NotificationSent
	}

	log := &models.NotificationLog{
		UserID:       userID,
		EventID:      eventID,
		TargetPhone:  "+" + normalized,
		Channel:      models.ChannelWhatsApp,
		Message:      message,
		Status:       status,
		ResponseData: responseData,
	}

	if err := d.logs.CreateLog(ctx, log); err != nil {
		// 审计写入失败只记日志，不影响其余接收人
		d.logger.Error("Failed to write notification log",
			zap.String("user_id", userID),
			zap.String("phone", normalized),
			zap.Error(err),
		)
	}

	if !ok {
		d.logger.Warn("Notification delivery failed",
			zap.String("user_id", userID),
			zap.String("phone", normalized),
		)
	}

	return ok
}

// SendToAll 向所有接收人逐个投递，互不影响，返回成功数量
func (d *Dispatcher) SendToAll(ctx context.Context, phones []string, message, userID string, eventID *string) int {
	sent := 0
	for _, phone := range phones {
		if d.SendMessage(ctx, phone, message, userID, eventID) {
			sent++
		}
	}
	return sent
}
