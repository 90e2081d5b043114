package repository

import (
	"context"
	"database/sql"
	"fmt"

	"saarthi-alert/internal/config"
	"saarthi-alert/internal/models"

	"go.uber.org/zap"
)

// ThresholdsRepository 传感器阈值仓库（sensor_thresholds 表）
type ThresholdsRepository struct {
	db       *sql.DB
	defaults config.AlertConfig
	logger   *zap.Logger
}

// NewThresholdsRepository 创建阈值仓库
func NewThresholdsRepository(db *sql.DB, defaults config.AlertConfig, logger *zap.Logger) *ThresholdsRepository {
	return &ThresholdsRepository{
		db:       db,
		defaults: defaults,
		logger:   logger,
	}
}

// GetThresholds 获取用户+设备的传感器阈值
// 设备级记录优先于用户级记录，无记录时回落到配置默认值
func (r *ThresholdsRepository) GetThresholds(ctx context.Context, userID, deviceID string) (models.Thresholds, error) {
	fallback := models.Thresholds{
		UltrasonicMinDistance: r.defaults.DefaultMinDistance,
		MicLoudThreshold:      r.defaults.DefaultMicLoud,
	}

	if userID == "" {
		return fallback, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT ultrasonic_min_distance, mic_loud_threshold, night_mode_enabled
		FROM sensor_thresholds
		WHERE user_id = $1 AND (device_id = $2 OR device_id IS NULL)
		ORDER BY device_id DESC NULLS LAST
		LIMIT 1
	`

	var th models.Thresholds
	err := r.db.QueryRowContext(ctx, query, userID, deviceID).Scan(
		&th.UltrasonicMinDistance,
		&th.MicLoudThreshold,
		&th.NightModeEnabled,
	)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("failed to get sensor thresholds: %w", err)
	}

	return th, nil
}
