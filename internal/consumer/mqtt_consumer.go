package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"saarthi-alert/internal/config"
	"saarthi-alert/internal/models"
	"saarthi-alert/internal/mqtt"
	"saarthi-alert/internal/service"

	"go.uber.org/zap"
)

// MQTTConsumer 设备遥测的 MQTT 接入通道（可选，默认关闭）
// 主题格式 saarthi/<hardware_id>/sensor，载荷为与 HTTP 通道相同的 JSON 遥测
type MQTTConsumer struct {
	config       *config.Config
	mqttClient   *mqtt.Client
	alertService service.AlertService
	logger       *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqtt.Client,
	alertService service.AlertService,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:       cfg,
		mqttClient:   mqttClient,
		alertService: alertService,
		logger:       logger,
	}
}

// Start 启动消费者，阻塞到 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	topic := c.config.MQTT.Topic
	if topic == "" {
		return fmt.Errorf("mqtt topic not configured")
	}

	if err := c.mqttClient.Subscribe(topic, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to sensor topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", topic),
	)

	<-ctx.Done()
	return nil
}

// Stop 停止消费者
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	topic := c.config.MQTT.Topic
	if topic != "" {
		if err := c.mqttClient.Unsubscribe(topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage 处理一条遥测消息
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	var sample models.SensorSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		c.logger.Error("Failed to unmarshal sensor sample",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal sample: %w", err)
	}

	// 载荷里没带 device_id 时从主题里取
	hardwareID := sample.DeviceID
	if hardwareID == "" {
		hardwareID = hardwareIDFromTopic(topic)
	}
	if hardwareID == "" {
		c.logger.Warn("Sensor sample without device identity",
			zap.String("topic", topic),
		)
		return fmt.Errorf("missing device identity")
	}

	result, err := c.alertService.IngestSensorSample(context.Background(), hardwareID, sample)
	if err != nil {
		c.logger.Error("Failed to ingest sensor sample",
			zap.String("hardware_id", hardwareID),
			zap.Error(err),
		)
		return err
	}

	if result.EventID != "" {
		c.logger.Info("Sensor event ingested via MQTT",
			zap.String("hardware_id", hardwareID),
			zap.String("event_id", result.EventID),
			zap.String("event_type", result.EventType),
		)
	}

	return nil
}

// hardwareIDFromTopic 从 saarthi/<hardware_id>/sensor 主题里取设备标识
func hardwareIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "saarthi" || parts[2] != "sensor" {
		return ""
	}
	return parts[1]
}
