package classifier

import (
	"time"

	"saarthi-alert/internal/models"
)

// Result 分类结果：事件类型、严重级别和载荷快照
type Result struct {
	EventType string
	Severity  string
	Payload   models.SensorPayload
}

// Classify 对单次传感器采样做分类，无事件时返回 nil
// 纯函数：去抖状态由调用方通过 recentObstacleAlert 传入（最近 10 秒内
// 同一用户+设备是否已有 OBSTACLE_ALERT），持久化由编排层负责。
//
// 判定按 障碍物 → 响声 → 触摸 的顺序独立评估，后评估者覆盖先评估者的
// 事件类型与严重级别（触摸手势优先级最高）。载荷仅在障碍物报警命中时
// 附加媒体采集标志，这一覆盖顺序保持与设备端约定一致。
func Classify(sample models.SensorSample, thresholds models.Thresholds, recentObstacleAlert bool) *Result {
	eventType := ""
	severity := models.SeverityLow

	observedAt := sample.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	distance := sample.DistanceCM
	touch := sample.Touch
	touchType := sample.TouchType
	micRaw := sample.MicLevel

	payload := models.SensorPayload{
		Distance:  &distance,
		Touch:     &touch,
		TouchType: &touchType,
		MicRaw:    &micRaw,
		Timestamp: observedAt.Format("2006-01-02 15:04:05"),
	}

	// 障碍物距离分档（distance<=0 表示无读数）
	// 50~100cm 与 20~30cm 报警但受去抖约束；10~20cm 视为误报不报警；
	// 30~50cm 与 >100cm 不报警；<10cm 视为紧急、不受去抖约束。
	if distance > 0 {
		shouldAlert := false
		switch {
		case distance >= 50 && distance <= 100:
			shouldAlert = !recentObstacleAlert
		case distance >= 20 && distance <= 30:
			shouldAlert = !recentObstacleAlert
		case distance >= 10 && distance < 20:
			shouldAlert = false
		case distance > 100:
			shouldAlert = false
		case distance < 10:
			shouldAlert = true
		}

		if shouldAlert {
			eventType = models.EventObstacleAlert
			switch {
			case distance < 10:
				severity = models.SeverityCritical
			case distance >= 20 && distance <= 30:
				severity = models.SeverityHigh
			case distance >= 50 && distance <= 100:
				severity = models.SeverityMedium
			default:
				severity = models.SeverityLow
			}

			// 障碍物报警时指示设备端带外采集音频和照片
			payload.TriggerAudioRecording = true
			payload.TriggerPhotoCapture = true
		}
	}

	// 响声检测（无去抖）
	if micRaw > thresholds.MicLoudThreshold {
		eventType = models.EventLoudSoundAlert
		if micRaw > 3500 {
			severity = models.SeverityHigh
		} else {
			severity = models.SeverityMedium
		}
	}

	// 触摸手势检测，未知手势回落为 SOS
	if touch {
		switch touchType {
		case models.TouchLongPress:
			eventType = models.EventLongPressEmergency
			severity = models.SeverityCritical
		case models.TouchDouble:
			eventType = models.EventDoubleTapMusic
			severity = models.SeverityLow
		case models.TouchSingle:
			eventType = models.EventSingleTapVoice
			severity = models.SeverityLow
		default:
			eventType = models.EventSOSTouch
			severity = models.SeverityCritical
		}
	}

	if eventType == "" {
		return nil
	}

	return &Result{
		EventType: eventType,
		Severity:  severity,
		Payload:   payload,
	}
}
