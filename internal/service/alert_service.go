package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"saarthi-alert/internal/classifier"
	"saarthi-alert/internal/config"
	"saarthi-alert/internal/geofence"
	"saarthi-alert/internal/models"
	"saarthi-alert/internal/notifier"
	"saarthi-alert/internal/repository"
	"saarthi-alert/internal/store"

	"go.uber.org/zap"
)

// AlertService 报警管线服务接口
type AlertService interface {
	// 设备遥测接入
	IngestSensorSample(ctx context.Context, hardwareID string, sample models.SensorSample) (*IngestResult, error)

	// 位置上报（围栏判定与行程延误检查在这条链路上触发）
	IngestLocation(ctx context.Context, loc *models.Location) error

	// App 侧手动紧急报警
	TriggerManualAlert(ctx context.Context, req ManualAlertRequest) (*models.Event, error)

	// 设备带外上传的媒体绑定到事件
	AttachEventMedia(ctx context.Context, req MediaAttachRequest) (string, error)

	// App 端事件详情（按用户归属限定）
	GetEvent(ctx context.Context, userID, eventID string) (*models.Event, error)

	// 监护人端设备在线状态
	OnlineDevices(ctx context.Context) ([]store.DevicePresence, error)
}

// IngestResult 单次遥测处理结果，回传给设备端
// 触发标志指示设备端是否需要带外采集照片/录音
type IngestResult struct {
	EventID               string
	EventType             string
	Severity              string
	TriggerAudioRecording bool
	TriggerPhotoCapture   bool
	Notified              int
}

// ManualAlertRequest 手动紧急报警请求
type ManualAlertRequest struct {
	UserID    string
	DeviceID  string // 可选，上报设备（devices 表主键）
	EventType string // 可选，默认 SOS_MANUAL
	Message   string // 可选，附加到通知文案
}

// MediaAttachRequest 媒体绑定请求
// EventID 可选：缺省时回落到该用户/设备最近一条缺失媒体的事件，
// 再找不到就创建独立的媒体事件
type MediaAttachRequest struct {
	EventID    string
	HardwareID string
	Kind       models.MediaKind
	Path       string
}

// alertService 实现
type alertService struct {
	cfg        config.AlertConfig
	devices    *repository.DevicesRepository
	users      *repository.UsersRepository
	events     *repository.EventsRepository
	thresholds *repository.ThresholdsRepository
	locations  *repository.LocationsRepository
	trips      *repository.TripsRepository
	guardians  *repository.GuardiansRepository
	presence   *store.PresenceStore
	geofence   *geofence.Evaluator
	dispatcher *notifier.Dispatcher
	logger     *zap.Logger
}

// NewAlertService 创建 AlertService 实例
func NewAlertService(
	cfg config.AlertConfig,
	devices *repository.DevicesRepository,
	users *repository.UsersRepository,
	events *repository.EventsRepository,
	thresholds *repository.ThresholdsRepository,
	locations *repository.LocationsRepository,
	trips *repository.TripsRepository,
	guardians *repository.GuardiansRepository,
	presence *store.PresenceStore,
	evaluator *geofence.Evaluator,
	dispatcher *notifier.Dispatcher,
	logger *zap.Logger,
) AlertService {
	return &alertService{
		cfg:        cfg,
		devices:    devices,
		users:      users,
		events:     events,
		thresholds: thresholds,
		locations:  locations,
		trips:      trips,
		guardians:  guardians,
		presence:   presence,
		geofence:   evaluator,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// IngestSensorSample 处理一次设备遥测上报
// 流程：设备识别 → 心跳刷新 → 阈值加载 → 去抖检查 → 分类 → 落库 → 通知
func (s *alertService) IngestSensorSample(ctx context.Context, hardwareID string, sample models.SensorSample) (*IngestResult, error) {
	if hardwareID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	device, err := s.devices.GetByHardwareID(ctx, hardwareID)
	if err != nil {
		return nil, err
	}

	// 心跳与在线状态刷新失败不阻断报警链路
	if err := s.devices.TouchLastSeen(ctx, device.DeviceID, sample.IPAddress, sample.StreamURL); err != nil {
		s.logger.Error("Failed to touch device last_seen",
			zap.String("device_id", device.DeviceID),
			zap.Error(err),
		)
	}
	if s.presence != nil {
		if err := s.presence.MarkOnline(ctx, store.DevicePresence{
			DeviceID:  device.DeviceID,
			UserID:    device.UserID,
			IPAddress: sample.IPAddress,
			StreamURL: sample.StreamURL,
		}); err != nil {
			s.logger.Warn("Failed to refresh device presence",
				zap.String("device_id", device.DeviceID),
				zap.Error(err),
			)
		}
	}

	thresholds, err := s.thresholds.GetThresholds(ctx, device.UserID, device.DeviceID)
	if err != nil {
		// 阈值读不到时用默认值继续，不能因为配置表故障丢报警
		s.logger.Warn("Failed to load thresholds, using defaults",
			zap.String("user_id", device.UserID),
			zap.Error(err),
		)
		thresholds = models.Thresholds{
			UltrasonicMinDistance: s.cfg.DefaultMinDistance,
			MicLoudThreshold:      s.cfg.DefaultMicLoud,
		}
	}

	recentObstacle, err := s.events.HasRecentEvent(ctx, device.UserID, device.DeviceID, models.EventObstacleAlert, s.cfg.ObstacleDebounce)
	if err != nil {
		s.logger.Error("Obstacle debounce check failed",
			zap.String("user_id", device.UserID),
			zap.Error(err),
		)
		recentObstacle = false
	}

	result := classifier.Classify(sample, thresholds, recentObstacle)
	if result == nil {
		return &IngestResult{}, nil
	}

	payloadJSON, err := json.Marshal(result.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := &models.Event{
		UserID:    device.UserID,
		DeviceID:  &device.DeviceID,
		EventType: result.EventType,
		Severity:  result.Severity,
		Payload:   string(payloadJSON),
	}
	eventID, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Sensor event recorded",
		zap.String("event_id", eventID),
		zap.String("user_id", device.UserID),
		zap.String("event_type", result.EventType),
		zap.String("severity", result.Severity),
	)

	notified := 0
	if models.RequiresNotification(result.Severity) {
		notified = s.notifySensorEvent(ctx, device.UserID, eventID, result.EventType, result.Severity)
	}

	return &IngestResult{
		EventID:               eventID,
		EventType:             result.EventType,
		Severity:              result.Severity,
		TriggerAudioRecording: result.Payload.TriggerAudioRecording,
		TriggerPhotoCapture:   result.Payload.TriggerPhotoCapture,
		Notified:              notified,
	}, nil
}

// notifySensorEvent 向监护人和紧急联系人投递传感器事件通知
// 通知链路上的任何失败只记日志：事件已经落库，不能因为通知失败报错给设备
func (s *alertService) notifySensorEvent(ctx context.Context, userID, eventID, eventType, severity string) int {
	userName := userID
	if user, err := s.users.GetUser(ctx, userID); err == nil && user != nil {
		userName = user.Name
	}

	// 最近位置用于消息里的地图链接，没有就不带
	loc, err := s.locations.LatestLocation(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load latest location",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		loc = nil
	}

	phones, err := s.guardians.AlertRecipients(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load alert recipients",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return 0
	}
	if len(phones) == 0 {
		s.logger.Warn("No alert recipients configured",
			zap.String("user_id", userID),
		)
		return 0
	}

	message := notifier.BuildSensorAlertMessage(userName, eventType, severity, loc)
	return s.dispatcher.SendToAll(ctx, phones, message, userID, &eventID)
}

// IngestLocation 处理一次位置上报
// 落库后做围栏判定；行程延误检查挂在这条链路上（每次上报都检查）
func (s *alertService) IngestLocation(ctx context.Context, loc *models.Location) error {
	if loc == nil {
		return fmt.Errorf("location is required")
	}
	if loc.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %f", loc.Latitude)
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %f", loc.Longitude)
	}

	// device_id 缺省时回落到该用户最近活跃的设备
	if loc.DeviceID == nil {
		if device, err := s.devices.GetLatestForUser(ctx, loc.UserID); err == nil && device != nil {
			loc.DeviceID = &device.DeviceID
		}
	}

	if err := s.locations.InsertLocation(ctx, loc); err != nil {
		return err
	}

	if err := s.geofence.CheckGeofence(ctx, loc.UserID, &loc.Latitude, &loc.Longitude); err != nil {
		s.logger.Error("Geofence check failed",
			zap.String("user_id", loc.UserID),
			zap.Error(err),
		)
	}

	s.checkTripDelay(ctx, loc.UserID, loc.Latitude, loc.Longitude)

	return nil
}

// checkTripDelay 检查用户的活动行程是否超过预计结束时间
// 超时：标记 DELAYED、落 TRIP_DELAY 事件、通知监护人（只通知一次，靠状态翻转保证）
func (s *alertService) checkTripDelay(ctx context.Context, userID string, lat, lon float64) {
	trip, err := s.trips.GetActiveTrip(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load active trip",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	if trip == nil || trip.ExpectedEndTime == nil {
		return
	}
	if !time.Now().After(*trip.ExpectedEndTime) {
		return
	}

	if err := s.trips.MarkDelayed(ctx, trip.TripID); err != nil {
		s.logger.Error("Failed to mark trip delayed",
			zap.String("trip_id", trip.TripID),
			zap.Error(err),
		)
		return
	}

	payloadJSON, _ := json.Marshal(map[string]interface{}{
		"trip_id":           trip.TripID,
		"destination_name":  trip.DestinationName,
		"expected_end_time": trip.ExpectedEndTime.Format("2006-01-02 15:04:05"),
		"latitude":          lat,
		"longitude":         lon,
	})

	event := &models.Event{
		UserID:    userID,
		EventType: models.EventTripDelay,
		Severity:  models.SeverityHigh,
		Payload:   string(payloadJSON),
	}
	eventID, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		s.logger.Error("Failed to create trip delay event",
			zap.String("trip_id", trip.TripID),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Trip delay detected",
		zap.String("trip_id", trip.TripID),
		zap.String("user_id", userID),
		zap.String("event_id", eventID),
	)

	userName := userID
	if user, err := s.users.GetUser(ctx, userID); err == nil && user != nil {
		userName = user.Name
	}

	// 行程延误只通知监护人
	phones, err := s.guardians.GuardianPhones(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load guardian phones",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	if len(phones) == 0 {
		return
	}

	message := notifier.BuildTripDelayMessage(userName, lat, lon)
	s.dispatcher.SendToAll(ctx, phones, message, userID, &eventID)
}

// TriggerManualAlert 处理 App 侧的手动紧急报警
// 总是 CRITICAL，通知监护人和紧急联系人；
// 用最近一次位置做一轮围栏判定（设备可能停在禁区边报警边静止）
func (s *alertService) TriggerManualAlert(ctx context.Context, req ManualAlertRequest) (*models.Event, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	eventType := req.EventType
	if eventType == "" {
		eventType = models.EventSOSManual
	}

	payloadJSON, _ := json.Marshal(map[string]interface{}{
		"triggered_by": "APP",
		"message":      req.Message,
		"timestamp":    time.Now().Format("2006-01-02 15:04:05"),
	})

	event := &models.Event{
		UserID:    req.UserID,
		EventType: eventType,
		Severity:  models.SeverityCritical,
		Payload:   string(payloadJSON),
	}
	if req.DeviceID != "" {
		event.DeviceID = &req.DeviceID
	}
	eventID, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Manual emergency alert recorded",
		zap.String("event_id", eventID),
		zap.String("user_id", req.UserID),
		zap.String("event_type", eventType),
	)

	userName := req.UserID
	if user, err := s.users.GetUser(ctx, req.UserID); err == nil && user != nil {
		userName = user.Name
	}

	loc, err := s.locations.LatestLocation(ctx, req.UserID)
	if err != nil {
		s.logger.Warn("Failed to load latest location",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		loc = nil
	}

	if loc != nil {
		if err := s.geofence.CheckGeofence(ctx, req.UserID, &loc.Latitude, &loc.Longitude); err != nil {
			s.logger.Error("Geofence check failed",
				zap.String("user_id", req.UserID),
				zap.Error(err),
			)
		}
	}

	phones, err := s.guardians.AlertRecipients(ctx, req.UserID)
	if err != nil {
		s.logger.Error("Failed to load alert recipients",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return event, nil
	}
	if len(phones) > 0 {
		message := notifier.BuildEmergencyAlertMessage(userName, eventType, loc)
		s.dispatcher.SendToAll(ctx, phones, message, req.UserID, &eventID)
	}

	return event, nil
}

// AttachEventMedia 将上传的媒体路径绑定到事件
// 绑定顺序：指定事件 → 该用户/设备最近缺失媒体的事件 → 创建独立媒体事件
func (s *alertService) AttachEventMedia(ctx context.Context, req MediaAttachRequest) (string, error) {
	if req.HardwareID == "" {
		return "", fmt.Errorf("device_id is required")
	}
	if req.Path == "" {
		return "", fmt.Errorf("path is required")
	}

	device, err := s.devices.GetByHardwareID(ctx, req.HardwareID)
	if err != nil {
		return "", err
	}

	if req.EventID != "" {
		attached, err := s.events.AttachMedia(ctx, req.EventID, device.UserID, req.Kind, req.Path)
		if err != nil {
			return "", err
		}
		if attached {
			return req.EventID, nil
		}
		// 指定事件不存在或不属于该用户，走回落链路
		s.logger.Warn("Media attach target not found, falling back",
			zap.String("event_id", req.EventID),
			zap.String("user_id", device.UserID),
		)
	}

	eventID, err := s.events.FindLatestMissingMedia(ctx, device.UserID, device.DeviceID, req.Kind)
	if err != nil {
		return "", err
	}
	if eventID != "" {
		attached, err := s.events.AttachMedia(ctx, eventID, device.UserID, req.Kind, req.Path)
		if err != nil {
			return "", err
		}
		if attached {
			return eventID, nil
		}
	}

	// 没有可绑定的事件，创建独立媒体事件
	eventType := models.EventImageCapture
	if req.Kind == models.MediaAudio {
		eventType = models.EventAudioRecording
	}

	event := &models.Event{
		UserID:    device.UserID,
		DeviceID:  &device.DeviceID,
		EventType: eventType,
		Severity:  models.SeverityLow,
	}
	switch req.Kind {
	case models.MediaImage:
		event.ImagePath = &req.Path
	case models.MediaAudio:
		event.AudioPath = &req.Path
	default:
		return "", fmt.Errorf("unknown media kind: %s", req.Kind)
	}

	return s.events.CreateEvent(ctx, event)
}

// GetEvent 查询单个事件，归属校验：不属于该用户的事件按不存在处理
func (s *alertService) GetEvent(ctx context.Context, userID, eventID string) (*models.Event, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.UserID != userID {
		return nil, fmt.Errorf("sensor event not found: %s", eventID)
	}

	return event, nil
}

// OnlineDevices 列出当前在线设备的状态快照
func (s *alertService) OnlineDevices(ctx context.Context) ([]store.DevicePresence, error) {
	if s.presence == nil {
		return nil, nil
	}

	ids, err := s.presence.ListOnlineDeviceIDs(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]store.DevicePresence, 0, len(ids))
	for _, id := range ids {
		presence, err := s.presence.GetPresence(ctx, id)
		if err != nil {
			s.logger.Warn("Failed to read device presence",
				zap.String("device_id", id),
				zap.Error(err),
			)
			continue
		}
		// 扫描和读取之间键可能刚好过期
		if presence == nil {
			continue
		}
		devices = append(devices, *presence)
	}

	return devices, nil
}
