package repository

import (
	"context"
	"database/sql"
	"fmt"

	"saarthi-alert/internal/models"

	"go.uber.org/zap"
)

// TripsRepository 行程仓库（trips 表）
type TripsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTripsRepository 创建行程仓库
func NewTripsRepository(db *sql.DB, logger *zap.Logger) *TripsRepository {
	return &TripsRepository{
		db:     db,
		logger: logger,
	}
}

// GetActiveTrip 获取用户当前 ACTIVE 且设置了预计结束时间的行程
// 没有时返回 nil, nil
func (r *TripsRepository) GetActiveTrip(ctx context.Context, userID string) (*models.Trip, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT trip_id, user_id, guardian_id, destination_name, expected_end_time, status
		FROM trips
		WHERE user_id = $1
		  AND status = 'ACTIVE'
		  AND expected_end_time IS NOT NULL
		LIMIT 1
	`

	var trip models.Trip
	var expectedEnd sql.NullTime

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&trip.TripID,
		&trip.UserID,
		&trip.GuardianID,
		&trip.DestinationName,
		&expectedEnd,
		&trip.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active trip: %w", err)
	}

	if expectedEnd.Valid {
		trip.ExpectedEndTime = &expectedEnd.Time
	}

	return &trip, nil
}

// MarkDelayed 将行程状态置为 DELAYED
func (r *TripsRepository) MarkDelayed(ctx context.Context, tripID string) error {
	if tripID == "" {
		return fmt.Errorf("trip_id is required")
	}

	query := `UPDATE trips SET status = 'DELAYED' WHERE trip_id = $1`

	_, err := r.db.ExecContext(ctx, query, tripID)
	if err != nil {
		return fmt.Errorf("failed to mark trip delayed: %w", err)
	}

	return nil
}
