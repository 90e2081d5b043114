package repository

import (
	"context"
	"database/sql"
	"fmt"

	"saarthi-alert/internal/models"

	"go.uber.org/zap"
)

// DevicesRepository 设备仓库（devices 表）
type DevicesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDevicesRepository 创建设备仓库
func NewDevicesRepository(db *sql.DB, logger *zap.Logger) *DevicesRepository {
	return &DevicesRepository{
		db:     db,
		logger: logger,
	}
}

// GetByHardwareID 根据设备硬件标识查找设备（ESP32 上报用）
func (r *DevicesRepository) GetByHardwareID(ctx context.Context, hardwareID string) (*models.Device, error) {
	if hardwareID == "" {
		return nil, fmt.Errorf("hardware_id is required")
	}

	query := `
		SELECT device_id, hardware_id, user_id, status, last_seen, ip_address, stream_url
		FROM devices
		WHERE hardware_id = $1
	`

	var device models.Device
	var lastSeen sql.NullTime
	var ipAddress, streamURL sql.NullString

	err := r.db.QueryRowContext(ctx, query, hardwareID).Scan(
		&device.DeviceID,
		&device.HardwareID,
		&device.UserID,
		&device.Status,
		&lastSeen,
		&ipAddress,
		&streamURL,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("device not found: %s", hardwareID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	if lastSeen.Valid {
		device.LastSeen = &lastSeen.Time
	}
	if ipAddress.Valid {
		device.IPAddress = &ipAddress.String
	}
	if streamURL.Valid {
		device.StreamURL = &streamURL.String
	}

	return &device, nil
}

// GetLatestForUser 获取用户最近活跃的设备（位置上报缺省 device_id 时回落用）
// 用户没有设备时返回 nil, nil
func (r *DevicesRepository) GetLatestForUser(ctx context.Context, userID string) (*models.Device, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT device_id, hardware_id, user_id, status
		FROM devices
		WHERE user_id = $1
		ORDER BY last_seen DESC NULLS LAST
		LIMIT 1
	`

	var device models.Device
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&device.DeviceID,
		&device.HardwareID,
		&device.UserID,
		&device.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest device: %w", err)
	}

	return &device, nil
}

// TouchLastSeen 更新设备在线状态与最近心跳
// ipAddress/streamURL 非空时一并更新（仅给 IP 时按约定拼流地址）
func (r *DevicesRepository) TouchLastSeen(ctx context.Context, deviceID, ipAddress, streamURL string) error {
	if deviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	if ipAddress != "" && streamURL == "" {
		streamURL = fmt.Sprintf("http://%s:81/stream", ipAddress)
	}

	var err error
	switch {
	case ipAddress != "" && streamURL != "":
		query := `
			UPDATE devices
			SET last_seen = now(), status = 'ONLINE', ip_address = $1, stream_url = $2
			WHERE device_id = $3
		`
		_, err = r.db.ExecContext(ctx, query, ipAddress, streamURL, deviceID)
	case streamURL != "":
		query := `
			UPDATE devices
			SET last_seen = now(), status = 'ONLINE', stream_url = $1
			WHERE device_id = $2
		`
		_, err = r.db.ExecContext(ctx, query, streamURL, deviceID)
	default:
		query := `
			UPDATE devices
			SET last_seen = now(), status = 'ONLINE'
			WHERE device_id = $1
		`
		_, err = r.db.ExecContext(ctx, query, deviceID)
	}
	if err != nil {
		return fmt.Errorf("failed to touch device last_seen: %w", err)
	}

	return nil
}
