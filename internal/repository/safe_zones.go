package repository

import (
	"context"
	"database/sql"
	"fmt"

	"saarthi-alert/internal/models"

	"go.uber.org/zap"
)

// SafeZonesRepository 安全区仓库（safe_zones 表，本服务只读）
type SafeZonesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSafeZonesRepository 创建安全区仓库
func NewSafeZonesRepository(db *sql.DB, logger *zap.Logger) *SafeZonesRepository {
	return &SafeZonesRepository{
		db:     db,
		logger: logger,
	}
}

// ListActiveZones 列出用户所有启用的围栏
// 时段字段取 "HH:MM:SS" 文本，空串表示未设置（全天生效）
func (r *SafeZonesRepository) ListActiveZones(ctx context.Context, userID string) ([]models.SafeZone, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT zone_id, user_id, zone_name, center_lat, center_lon, radius_meters,
		       is_restricted,
		       COALESCE(active_start_time::text, ''),
		       COALESCE(active_end_time::text, ''),
		       is_active
		FROM safe_zones
		WHERE user_id = $1
		  AND is_active = TRUE
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query safe zones: %w", err)
	}
	defer rows.Close()

	var zones []models.SafeZone
	for rows.Next() {
		var zone models.SafeZone
		if err := rows.Scan(
			&zone.ZoneID,
			&zone.UserID,
			&zone.ZoneName,
			&zone.CenterLat,
			&zone.CenterLon,
			&zone.RadiusMeters,
			&zone.IsRestricted,
			&zone.ActiveStartTime,
			&zone.ActiveEndTime,
			&zone.IsActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan safe zone: %w", err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate safe zones: %w", err)
	}

	return zones, nil
}
