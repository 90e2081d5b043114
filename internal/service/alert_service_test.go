package service

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"saarthi-alert/internal/config"
	"saarthi-alert/internal/geofence"
	"saarthi-alert/internal/models"
	"saarthi-alert/internal/notifier"
	"saarthi-alert/internal/repository"
	"saarthi-alert/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testHarness 搭起完整的报警管线：sqlmock 数据库 + miniredis + httptest 网关
type testHarness struct {
	svc      AlertService
	mock     sqlmock.Sqlmock
	gateway  *gatewayRecorder
	presence *store.PresenceStore
}

type gatewayRecorder struct {
	calls []string // 每次投递的 phone 参数
	body  string
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	recorder := &gatewayRecorder{body: "Message queued"}
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder.calls = append(recorder.calls, r.URL.Query().Get("phone"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(recorder.body))
	}))
	t.Cleanup(gateway.Close)

	logger := zap.NewNop()
	cfg := config.AlertConfig{
		ObstacleDebounce:   10 * time.Second,
		GeofenceCooldown:   5 * time.Minute,
		DefaultMinDistance: 30.0,
		DefaultMicLoud:     2000,
		DeviceLastSeenTTL:  2 * time.Minute,
	}

	devices := repository.NewDevicesRepository(db, logger)
	users := repository.NewUsersRepository(db, logger)
	events := repository.NewEventsRepository(db, logger)
	thresholds := repository.NewThresholdsRepository(db, cfg, logger)
	locations := repository.NewLocationsRepository(db, logger)
	trips := repository.NewTripsRepository(db, logger)
	// 测试里固定 emergency_contacts 表不存在，接收人只有监护人
	guardians := repository.NewGuardiansRepository(db, repository.ContactsCapability{}, logger)
	zones := repository.NewSafeZonesRepository(db, logger)
	logs := repository.NewNotificationLogsRepository(db, logger)

	presence := store.NewPresenceStore(store.NewRedisKV(redisClient), cfg.DeviceLastSeenTTL, logger)
	client := notifier.NewWhatsAppClient(config.WhatsAppConfig{
		GatewayURL: gateway.URL,
		APIKey:     "test-key",
		Timeout:    2 * time.Second,
	}, logger)
	dispatcher := notifier.NewDispatcher(client, logs, logger)
	evaluator := geofence.NewEvaluator(zones, events, guardians, users, dispatcher, cfg.GeofenceCooldown, logger)

	svc := NewAlertService(cfg, devices, users, events, thresholds, locations, trips, guardians, presence, evaluator, dispatcher, logger)

	return &testHarness{svc: svc, mock: mock, gateway: recorder, presence: presence}
}

func deviceRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"device_id", "hardware_id", "user_id", "status", "last_seen", "ip_address", "stream_url"}).
		AddRow("device-1", "ESP32-001", "user-1", "ONLINE", nil, nil, nil)
}

func (h *testHarness) expectDeviceLookup() {
	h.mock.ExpectQuery(`SELECT device_id, hardware_id, user_id, status, last_seen, ip_address, stream_url\s+FROM devices`).
		WithArgs("ESP32-001").
		WillReturnRows(deviceRow())
	h.mock.ExpectExec(`UPDATE devices\s+SET last_seen = now\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func (h *testHarness) expectThresholds() {
	h.mock.ExpectQuery(`SELECT ultrasonic_min_distance, mic_loud_threshold, night_mode_enabled`).
		WithArgs("user-1", "device-1").
		WillReturnRows(sqlmock.NewRows([]string{"ultrasonic_min_distance", "mic_loud_threshold", "night_mode_enabled"}).
			AddRow(30.0, 2000, false))
}

func (h *testHarness) expectNotificationFanout() {
	h.mock.ExpectQuery(`SELECT user_id, name, phone, role\s+FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "phone", "role"}).
			AddRow("user-1", "Ravi", "9876543210", "CHILD"))
	h.mock.ExpectQuery(`SELECT user_id, latitude, longitude, accuracy, speed, created_at\s+FROM locations`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "latitude", "longitude", "accuracy", "speed", "created_at"}).
			AddRow("user-1", 28.6315, 77.2167, 10.0, 0.0, time.Now()))
	h.mock.ExpectQuery(`SELECT u.phone FROM users u`).
		WithArgs("user-1", models.LinkActive).
		WillReturnRows(sqlmock.NewRows([]string{"phone"}).AddRow("9876543210"))
	h.mock.ExpectExec(`INSERT INTO notification_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

// 长按手势端到端：一条 CRITICAL 事件落库、一条通知审计落库、网关被调用一次
func TestIngestSensorSample_LongPressEmergency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.expectDeviceLookup()
	h.expectThresholds()
	h.mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	h.mock.ExpectExec(`INSERT INTO sensor_events`).
		WithArgs(sqlmock.AnyArg(), "user-1", "device-1", "LONG_PRESS_EMERGENCY", "CRITICAL",
			sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.expectNotificationFanout()

	result, err := h.svc.IngestSensorSample(ctx, "ESP32-001", models.SensorSample{
		DistanceCM: 150,
		Touch:      true,
		TouchType:  models.TouchLongPress,
	})
	require.NoError(t, err)
	assert.Equal(t, "LONG_PRESS_EMERGENCY", result.EventType)
	assert.Equal(t, models.SeverityCritical, result.Severity)
	assert.Equal(t, 1, result.Notified)
	assert.NotEmpty(t, result.EventID)

	require.Len(t, h.gateway.calls, 1)
	assert.Equal(t, "+919876543210", h.gateway.calls[0])

	assert.NoError(t, h.mock.ExpectationsWereMet())
}

// 低级别事件落库但不触发通知
func TestIngestSensorSample_LowSeverityNoNotification(t *testing.T) {
	h := newHarness(t)

	h.expectDeviceLookup()
	h.expectThresholds()
	h.mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	h.mock.ExpectExec(`INSERT INTO sensor_events`).
		WithArgs(sqlmock.AnyArg(), "user-1", "device-1", "DOUBLE_TAP_MUSIC", "LOW",
			sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := h.svc.IngestSensorSample(context.Background(), "ESP32-001", models.SensorSample{
		DistanceCM: 150,
		Touch:      true,
		TouchType:  models.TouchDouble,
	})
	require.NoError(t, err)
	assert.Equal(t, "DOUBLE_TAP_MUSIC", result.EventType)
	assert.Equal(t, 0, result.Notified)
	assert.Empty(t, h.gateway.calls)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

// 无触发条件的采样只刷新心跳，不产生事件
func TestIngestSensorSample_NoTrigger(t *testing.T) {
	h := newHarness(t)

	h.expectDeviceLookup()
	h.expectThresholds()
	h.mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	result, err := h.svc.IngestSensorSample(context.Background(), "ESP32-001", models.SensorSample{
		DistanceCM: 150,
		MicLevel:   100,
	})
	require.NoError(t, err)
	assert.Empty(t, result.EventID)
	assert.Empty(t, result.EventType)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

// 去抖窗口内的障碍物采样被压制
func TestIngestSensorSample_ObstacleDebounced(t *testing.T) {
	h := newHarness(t)

	h.expectDeviceLookup()
	h.expectThresholds()
	h.mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	result, err := h.svc.IngestSensorSample(context.Background(), "ESP32-001", models.SensorSample{
		DistanceCM: 75,
	})
	require.NoError(t, err)
	assert.Empty(t, result.EventID)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

// 10cm 以内的障碍物不受去抖约束
func TestIngestSensorSample_CriticalObstacleBypassesDebounce(t *testing.T) {
	h := newHarness(t)

	h.expectDeviceLookup()
	h.expectThresholds()
	h.mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	h.mock.ExpectExec(`INSERT INTO sensor_events`).
		WithArgs(sqlmock.AnyArg(), "user-1", "device-1", "OBSTACLE_ALERT", "CRITICAL",
			sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.expectNotificationFanout()

	result, err := h.svc.IngestSensorSample(context.Background(), "ESP32-001", models.SensorSample{
		DistanceCM: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "OBSTACLE_ALERT", result.EventType)
	assert.Equal(t, models.SeverityCritical, result.Severity)
	assert.True(t, result.TriggerAudioRecording)
	assert.True(t, result.TriggerPhotoCapture)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestIngestSensorSample_UnknownDevice(t *testing.T) {
	h := newHarness(t)

	h.mock.ExpectQuery(`SELECT device_id, hardware_id, user_id, status, last_seen, ip_address, stream_url\s+FROM devices`).
		WithArgs("ESP32-GHOST").
		WillReturnError(sql.ErrNoRows)

	_, err := h.svc.IngestSensorSample(context.Background(), "ESP32-GHOST", models.SensorSample{DistanceCM: 5})
	assert.Error(t, err)
}

// 位置上报端到端：落库、无围栏、活动行程超时 → DELAYED + TRIP_DELAY 事件 + 监护人通知
func TestIngestLocation_TripDelayDetected(t *testing.T) {
	h := newHarness(t)
	past := time.Now().Add(-30 * time.Minute)
	deviceID := "device-1"

	h.mock.ExpectExec(`INSERT INTO locations`).
		WithArgs("user-1", &deviceID, 28.6315, 77.2167, 10.0, 0.0, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 围栏判定：无活动围栏
	h.mock.ExpectQuery(`FROM safe_zones`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"zone_id", "user_id", "zone_name", "center_lat", "center_lon",
			"radius_meters", "is_restricted", "active_start_time", "active_end_time", "is_active",
		}))
	// 行程延误检查
	h.mock.ExpectQuery(`FROM trips`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"trip_id", "user_id", "guardian_id", "destination_name", "expected_end_time", "status",
		}).AddRow("trip-1", "user-1", "guardian-1", "School", past, models.TripActive))
	h.mock.ExpectExec(`UPDATE trips SET status = 'DELAYED'`).
		WithArgs("trip-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectExec(`INSERT INTO sensor_events`).
		WithArgs(sqlmock.AnyArg(), "user-1", nil, "TRIP_DELAY", "HIGH",
			sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectQuery(`SELECT user_id, name, phone, role\s+FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "phone", "role"}).
			AddRow("user-1", "Ravi", "9876543210", "CHILD"))
	h.mock.ExpectQuery(`SELECT u.phone FROM users u`).
		WithArgs("user-1", models.LinkActive).
		WillReturnRows(sqlmock.NewRows([]string{"phone"}).AddRow("9876543210"))
	h.mock.ExpectExec(`INSERT INTO notification_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := h.svc.IngestLocation(context.Background(), &models.Location{
		UserID:    "user-1",
		DeviceID:  &deviceID,
		Latitude:  28.6315,
		Longitude: 77.2167,
		Accuracy:  10.0,
	})
	require.NoError(t, err)
	require.Len(t, h.gateway.calls, 1)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

// 无活动行程时位置上报只落库
func TestIngestLocation_NoActiveTrip(t *testing.T) {
	h := newHarness(t)
	deviceID := "device-1"

	h.mock.ExpectExec(`INSERT INTO locations`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectQuery(`FROM safe_zones`).
		WillReturnRows(sqlmock.NewRows([]string{
			"zone_id", "user_id", "zone_name", "center_lat", "center_lon",
			"radius_meters", "is_restricted", "active_start_time", "active_end_time", "is_active",
		}))
	h.mock.ExpectQuery(`FROM trips`).
		WillReturnRows(sqlmock.NewRows([]string{
			"trip_id", "user_id", "guardian_id", "destination_name", "expected_end_time", "status",
		}))

	err := h.svc.IngestLocation(context.Background(), &models.Location{
		UserID:    "user-1",
		DeviceID:  &deviceID,
		Latitude:  28.6315,
		Longitude: 77.2167,
	})
	require.NoError(t, err)
	assert.Empty(t, h.gateway.calls)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestIngestLocation_InvalidCoordinates(t *testing.T) {
	h := newHarness(t)

	err := h.svc.IngestLocation(context.Background(), &models.Location{
		UserID:   "user-1",
		Latitude: 91.0,
	})
	assert.Error(t, err)

	err = h.svc.IngestLocation(context.Background(), &models.Location{
		UserID:    "user-1",
		Longitude: -181.0,
	})
	assert.Error(t, err)

	err = h.svc.IngestLocation(context.Background(), &models.Location{Latitude: 10, Longitude: 10})
	assert.Error(t, err)
}

// 手动紧急报警：CRITICAL 事件 + 通知
func TestTriggerManualAlert(t *testing.T) {
	h := newHarness(t)

	h.mock.ExpectExec(`INSERT INTO sensor_events`).
		WithArgs(sqlmock.AnyArg(), "user-1", nil, "SOS_MANUAL", "CRITICAL",
			sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectQuery(`SELECT user_id, name, phone, role\s+FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "phone", "role"}).
			AddRow("user-1", "Ravi", "9876543210", "CHILD"))
	h.mock.ExpectQuery(`SELECT user_id, latitude, longitude, accuracy, speed, created_at\s+FROM locations`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "latitude", "longitude", "accuracy", "speed", "created_at"}))
	h.mock.ExpectQuery(`SELECT u.phone FROM users u`).
		WillReturnRows(sqlmock.NewRows([]string{"phone"}).AddRow("9876543210"))
	h.mock.ExpectExec(`INSERT INTO notification_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := h.svc.TriggerManualAlert(context.Background(), ManualAlertRequest{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EventSOSManual, event.EventType)
	assert.Equal(t, models.SeverityCritical, event.Severity)
	require.Len(t, h.gateway.calls, 1)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

// 手动报警要用最近位置做一轮围栏判定：静止在禁区里按下 SOS 时
// 除紧急事件外还要产生越界事件，两条通知都要发出
func TestTriggerManualAlert_GeofenceCheckedFromLatestFix(t *testing.T) {
	h := newHarness(t)

	h.mock.ExpectExec(`INSERT INTO sensor_events`).
		WithArgs(sqlmock.AnyArg(), "user-1", "device-1", "SOS_MANUAL", "CRITICAL",
			sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectQuery(`SELECT user_id, name, phone, role\s+FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "phone", "role"}).
			AddRow("user-1", "Ravi", "9876543210", "CHILD"))
	h.mock.ExpectQuery(`SELECT user_id, latitude, longitude, accuracy, speed, created_at\s+FROM locations`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "latitude", "longitude", "accuracy", "speed", "created_at"}).
			AddRow("user-1", 28.6129, 77.2295, 10.0, 0.0, time.Now()))
	// 围栏判定：最近位置落在禁区内 → 越界事件 + 监护人通知
	h.mock.ExpectQuery(`FROM safe_zones`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"zone_id", "user_id", "zone_name", "center_lat", "center_lon",
			"radius_meters", "is_restricted", "active_start_time", "active_end_time", "is_active",
		}).AddRow("zone-1", "user-1", "Construction Site", 28.6129, 77.2295, 500.0, true, "", "", true))
	h.mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	h.mock.ExpectExec(`INSERT INTO sensor_events`).
		WithArgs(sqlmock.AnyArg(), "user-1", nil, "GEOFENCE_BREACH", "HIGH",
			sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectQuery(`SELECT user_id, name, phone, role\s+FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "phone", "role"}).
			AddRow("user-1", "Ravi", "9876543210", "CHILD"))
	h.mock.ExpectQuery(`SELECT u.phone FROM users u`).
		WithArgs("user-1", models.LinkActive).
		WillReturnRows(sqlmock.NewRows([]string{"phone"}).AddRow("9876543210"))
	h.mock.ExpectExec(`INSERT INTO notification_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 紧急事件本身的通知
	h.mock.ExpectQuery(`SELECT u.phone FROM users u`).
		WithArgs("user-1", models.LinkActive).
		WillReturnRows(sqlmock.NewRows([]string{"phone"}).AddRow("9876543210"))
	h.mock.ExpectExec(`INSERT INTO notification_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := h.svc.TriggerManualAlert(context.Background(), ManualAlertRequest{
		UserID:   "user-1",
		DeviceID: "device-1",
	})
	require.NoError(t, err)
	require.NotNil(t, event.DeviceID)
	assert.Equal(t, "device-1", *event.DeviceID)
	assert.Len(t, h.gateway.calls, 2)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

// 媒体绑定回落链路：指定事件缺失 → 最近缺媒体事件
func TestAttachEventMedia_FallbackToLatestMissing(t *testing.T) {
	h := newHarness(t)

	h.mock.ExpectQuery(`SELECT device_id, hardware_id, user_id, status, last_seen, ip_address, stream_url\s+FROM devices`).
		WithArgs("ESP32-001").
		WillReturnRows(deviceRow())
	h.mock.ExpectQuery(`SELECT event_id FROM sensor_events`).
		WithArgs("user-1", "device-1").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("event-7"))
	h.mock.ExpectExec(`UPDATE sensor_events\s+SET image_path = \$1`).
		WithArgs("/uploads/snap.jpg", "event-7", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	eventID, err := h.svc.AttachEventMedia(context.Background(), MediaAttachRequest{
		HardwareID: "ESP32-001",
		Kind:       models.MediaImage,
		Path:       "/uploads/snap.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "event-7", eventID)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

// 没有可绑定事件时创建独立媒体事件
func TestAttachEventMedia_StandaloneEvent(t *testing.T) {
	h := newHarness(t)

	h.mock.ExpectQuery(`SELECT device_id, hardware_id, user_id, status, last_seen, ip_address, stream_url\s+FROM devices`).
		WithArgs("ESP32-001").
		WillReturnRows(deviceRow())
	h.mock.ExpectQuery(`SELECT event_id FROM sensor_events`).
		WithArgs("user-1", "device-1").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))
	h.mock.ExpectExec(`INSERT INTO sensor_events`).
		WithArgs(sqlmock.AnyArg(), "user-1", "device-1", "AUDIO_RECORDING", "LOW",
			sqlmock.AnyArg(), nil, "/uploads/audio.wav", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	eventID, err := h.svc.AttachEventMedia(context.Background(), MediaAttachRequest{
		HardwareID: "ESP32-001",
		Kind:       models.MediaAudio,
		Path:       "/uploads/audio.wav",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, eventID)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

// 指定事件绑定成功时直接返回
func TestAttachEventMedia_DirectAttach(t *testing.T) {
	h := newHarness(t)

	h.mock.ExpectQuery(`SELECT device_id, hardware_id, user_id, status, last_seen, ip_address, stream_url\s+FROM devices`).
		WithArgs("ESP32-001").
		WillReturnRows(deviceRow())
	h.mock.ExpectExec(`UPDATE sensor_events\s+SET image_path = \$1`).
		WithArgs("/uploads/snap.jpg", "event-3", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	eventID, err := h.svc.AttachEventMedia(context.Background(), MediaAttachRequest{
		EventID:    "event-3",
		HardwareID: "ESP32-001",
		Kind:       models.MediaImage,
		Path:       "/uploads/snap.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "event-3", eventID)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestGetEvent_OwnedEvent(t *testing.T) {
	h := newHarness(t)

	h.mock.ExpectQuery(`SELECT event_id, user_id, device_id, event_type, severity, payload, image_path, audio_path, created_at\s+FROM sensor_events`).
		WithArgs("event-7").
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "user_id", "device_id", "event_type", "severity", "payload", "image_path", "audio_path", "created_at"}).
			AddRow("event-7", "user-1", "device-1", models.EventObstacleAlert, models.SeverityHigh, []byte(`{"distance":5.5}`), nil, nil, time.Now()))

	event, err := h.svc.GetEvent(context.Background(), "user-1", "event-7")
	require.NoError(t, err)
	assert.Equal(t, "event-7", event.EventID)
	assert.Equal(t, models.EventObstacleAlert, event.EventType)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

// 不属于该用户的事件按不存在处理，避免跨用户泄露
func TestGetEvent_OtherUsersEventHidden(t *testing.T) {
	h := newHarness(t)

	h.mock.ExpectQuery(`SELECT event_id, user_id, device_id, event_type, severity, payload, image_path, audio_path, created_at\s+FROM sensor_events`).
		WithArgs("event-7").
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "user_id", "device_id", "event_type", "severity", "payload", "image_path", "audio_path", "created_at"}).
			AddRow("event-7", "user-2", nil, models.EventObstacleAlert, models.SeverityHigh, []byte(`{}`), nil, nil, time.Now()))

	event, err := h.svc.GetEvent(context.Background(), "user-1", "event-7")
	require.Error(t, err)
	assert.Nil(t, event)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestOnlineDevices_ReturnsPresenceSnapshots(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.presence.MarkOnline(ctx, store.DevicePresence{
		DeviceID:  "device-1",
		UserID:    "user-1",
		IPAddress: "192.168.1.50",
	}))
	require.NoError(t, h.presence.MarkOnline(ctx, store.DevicePresence{
		DeviceID: "device-2",
		UserID:   "user-2",
	}))

	devices, err := h.svc.OnlineDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	ids := make([]string, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, d.DeviceID)
	}
	assert.ElementsMatch(t, []string{"device-1", "device-2"}, ids)
}

func TestOnlineDevices_EmptyWhenNoneMarked(t *testing.T) {
	h := newHarness(t)

	devices, err := h.svc.OnlineDevices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices)
}
