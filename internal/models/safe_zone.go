package models

import "fmt"

// 围栏越界类型
const (
	BreachEnteredRestricted = "ENTERED_RESTRICTED"
	BreachExitedSafeZone    = "EXITED_SAFE_ZONE"
)

// SafeZone 安全区/禁区（safe_zones 表）
// IsRestricted=false 为安全区（离开时报警），true 为禁区（进入时报警）
// ActiveStartTime/ActiveEndTime 为 "HH:MM:SS" 时段，空表示全天生效
type SafeZone struct {
	ZoneID          string  `json:"zone_id" db:"zone_id"`
	UserID          string  `json:"user_id" db:"user_id"`
	ZoneName        string  `json:"zone_name" db:"zone_name"`
	CenterLat       float64 `json:"center_lat" db:"center_lat"`
	CenterLon       float64 `json:"center_lon" db:"center_lon"`
	RadiusMeters    float64 `json:"radius_meters" db:"radius_meters"`
	IsRestricted    bool    `json:"is_restricted" db:"is_restricted"`
	ActiveStartTime string  `json:"active_start_time,omitempty" db:"active_start_time"`
	ActiveEndTime   string  `json:"active_end_time,omitempty" db:"active_end_time"`
	IsActive        bool    `json:"is_active" db:"is_active"`
}

// Validate 校验围栏不变量（半径 10~10000 米，坐标范围）
func (z *SafeZone) Validate() error {
	if z.RadiusMeters < 10 || z.RadiusMeters > 10000 {
		return fmt.Errorf("radius must be between 10 and 10000 meters, got %.1f", z.RadiusMeters)
	}
	if z.CenterLat < -90 || z.CenterLat > 90 {
		return fmt.Errorf("latitude out of range: %f", z.CenterLat)
	}
	if z.CenterLon < -180 || z.CenterLon > 180 {
		return fmt.Errorf("longitude out of range: %f", z.CenterLon)
	}
	return nil
}
