package repository

import (
	"context"
	"database/sql"
	"fmt"

	"saarthi-alert/internal/models"

	"go.uber.org/zap"
)

// LocationsRepository 位置历史仓库（locations 表）
type LocationsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLocationsRepository 创建位置仓库
func NewLocationsRepository(db *sql.DB, logger *zap.Logger) *LocationsRepository {
	return &LocationsRepository{
		db:     db,
		logger: logger,
	}
}

// InsertLocation 写入一条位置记录
func (r *LocationsRepository) InsertLocation(ctx context.Context, loc *models.Location) error {
	if loc == nil {
		return fmt.Errorf("location is required")
	}
	if loc.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	query := `
		INSERT INTO locations (user_id, device_id, latitude, longitude, accuracy, speed, battery_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		loc.UserID,
		loc.DeviceID,
		loc.Latitude,
		loc.Longitude,
		loc.Accuracy,
		loc.Speed,
		loc.BatteryLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}

	return nil
}

// LatestLocation 获取用户最近一次位置，没有记录时返回 nil, nil
func (r *LocationsRepository) LatestLocation(ctx context.Context, userID string) (*models.Location, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT user_id, latitude, longitude, accuracy, speed, created_at
		FROM locations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var loc models.Location
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&loc.UserID,
		&loc.Latitude,
		&loc.Longitude,
		&loc.Accuracy,
		&loc.Speed,
		&loc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest location: %w", err)
	}

	return &loc, nil
}
