package geofence

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"saarthi-alert/internal/models"
	"saarthi-alert/internal/notifier"

	"go.uber.org/zap"
)

// 地球平均半径（米），与 Haversine 公式配套
const earthRadiusMeters = 6371000.0

// ZoneSource 围栏来源
type ZoneSource interface {
	ListActiveZones(ctx context.Context, userID string) ([]models.SafeZone, error)
}

// EventSink 越界事件落库
type EventSink interface {
	CreateEvent(ctx context.Context, event *models.Event) (string, error)
	HasRecentEvent(ctx context.Context, userID, deviceID, eventType string, within time.Duration) (bool, error)
}

// GuardianSource 监护人号码来源（围栏越界只通知监护人，不通知紧急联系人）
type GuardianSource interface {
	GuardianPhones(ctx context.Context, userID string) ([]string, error)
}

// UserSource 用户信息来源（消息文案里需要姓名）
type UserSource interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Notifier 通知投递
type Notifier interface {
	SendToAll(ctx context.Context, phones []string, message, userID string, eventID *string) int
}

// Evaluator 地理围栏评估器
// 每次位置上报调用一次，遍历用户的活动围栏判定越界，
// 同一用户 cooldown 窗口内最多产生一条越界事件（不分围栏）
type Evaluator struct {
	zones     ZoneSource
	events    EventSink
	guardians GuardianSource
	users     UserSource
	notifier  Notifier
	cooldown  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewEvaluator 创建地理围栏评估器
func NewEvaluator(
	zones ZoneSource,
	events EventSink,
	guardians GuardianSource,
	users UserSource,
	n Notifier,
	cooldown time.Duration,
	logger *zap.Logger,
) *Evaluator {
	return &Evaluator{
		zones:     zones,
		events:    events,
		guardians: guardians,
		users:     users,
		notifier:  n,
		cooldown:  cooldown,
		logger:    logger,
		now:       time.Now,
	}
}

// HaversineDistance 计算两个坐标之间的大圆距离（米）
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// CheckGeofence 对一次位置上报做围栏判定
// lat/lon 任一为空则跳过（该次上报没有坐标）；
// 越界时写入 GEOFENCE_BREACH 事件并通知监护人
func (e *Evaluator) CheckGeofence(ctx context.Context, userID string, lat, lon *float64) error {
	if lat == nil || lon == nil {
		return nil
	}

	zones, err := e.zones.ListActiveZones(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list active zones: %w", err)
	}

	for _, zone := range zones {
		if err := zone.Validate(); err != nil {
			// 坏数据不阻断其余围栏
			e.logger.Warn("Skipping invalid safe zone",
				zap.String("zone_id", zone.ZoneID),
				zap.Error(err),
			)
			continue
		}

		if !e.zoneActiveAt(zone, e.now()) {
			continue
		}

		distance := HaversineDistance(*lat, *lon, zone.CenterLat, zone.CenterLon)
		inside := distance <= zone.RadiusMeters

		var breachType string
		switch {
		case zone.IsRestricted && inside:
			breachType = models.BreachEnteredRestricted
		case !zone.IsRestricted && !inside:
			breachType = models.BreachExitedSafeZone
		default:
			continue
		}

		// 全局冷却：窗口内该用户已有越界事件就不再重复报警
		// 每个围栏单独查一次，保证同一轮里第一条越界落库后其余被压制
		recent, err := e.events.HasRecentEvent(ctx, userID, "", models.EventGeofenceBreach, e.cooldown)
		if err != nil {
			e.logger.Error("Geofence cooldown check failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		if recent {
			e.logger.Debug("Geofence breach suppressed by cooldown",
				zap.String("user_id", userID),
				zap.String("zone_id", zone.ZoneID),
			)
			continue
		}

		e.recordBreach(ctx, userID, zone, breachType, *lat, *lon)
	}

	return nil
}

// recordBreach 落库一条越界事件并通知监护人
func (e *Evaluator) recordBreach(ctx context.Context, userID string, zone models.SafeZone, breachType string, lat, lon float64) {
	payload := models.GeofencePayload{
		ZoneID:     zone.ZoneID,
		ZoneName:   zone.ZoneName,
		BreachType: breachType,
		Latitude:   lat,
		Longitude:  lon,
	}
	payloadJSON, _ := json.Marshal(payload)

	event := &models.Event{
		UserID:    userID,
		EventType: models.EventGeofenceBreach,
		Severity:  models.SeverityHigh,
		Payload:   string(payloadJSON),
	}

	eventID, err := e.events.CreateEvent(ctx, event)
	if err != nil {
		e.logger.Error("Failed to create geofence breach event",
			zap.String("user_id", userID),
			zap.String("zone_id", zone.ZoneID),
			zap.Error(err),
		)
		return
	}

	e.logger.Info("Geofence breach recorded",
		zap.String("user_id", userID),
		zap.String("zone_id", zone.ZoneID),
		zap.String("breach_type", breachType),
	)

	userName := userID
	if user, err := e.users.GetUser(ctx, userID); err == nil && user != nil {
		userName = user.Name
	}

	phones, err := e.guardians.GuardianPhones(ctx, userID)
	if err != nil {
		e.logger.Error("Failed to load guardian phones",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	if len(phones) == 0 {
		return
	}

	message := notifier.BuildGeofenceAlertMessage(userName, zone.ZoneName, breachType, lat, lon)
	e.notifier.SendToAll(ctx, phones, message, userID, &eventID)
}

// zoneActiveAt 判断围栏在给定时刻是否处于生效时段
// 起止都为空表示全天生效；起始时间晚于结束时间表示跨午夜时段
func (e *Evaluator) zoneActiveAt(zone models.SafeZone, at time.Time) bool {
	if zone.ActiveStartTime == "" || zone.ActiveEndTime == "" {
		return true
	}

	start, err := time.Parse("15:04:05", zone.ActiveStartTime)
	if err != nil {
		return true
	}
	end, err := time.Parse("15:04:05", zone.ActiveEndTime)
	if err != nil {
		return true
	}

	current := at.Hour()*3600 + at.Minute()*60 + at.Second()
	startSec := start.Hour()*3600 + start.Minute()*60 + start.Second()
	endSec := end.Hour()*3600 + end.Minute()*60 + end.Second()

	if startSec <= endSec {
		return current >= startSec && current <= endSec
	}
	return current >= startSec || current <= endSec
}
