package classifier

import (
	"testing"
	"time"

	"saarthi-alert/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultThresholds() models.Thresholds {
	return models.Thresholds{
		UltrasonicMinDistance: 30.0,
		MicLoudThreshold:      2000,
	}
}

func sampleWithDistance(distance float64) models.SensorSample {
	return models.SensorSample{
		DeviceID:   "esp32-001",
		DistanceCM: distance,
		ObservedAt: time.Now(),
	}
}

// ============================================
// 障碍物距离分档测试
// ============================================

func TestClassify_ObstacleBands(t *testing.T) {
	tests := []struct {
		name         string
		distance     float64
		wantEvent    bool
		wantSeverity string
	}{
		{"below 10cm is critical", 5, true, models.SeverityCritical},
		{"9.9cm is critical", 9.9, true, models.SeverityCritical},
		{"10cm suppressed as false positive", 10, false, ""},
		{"15cm suppressed as false positive", 15, false, ""},
		{"19.9cm suppressed as false positive", 19.9, false, ""},
		{"20cm is high", 20, true, models.SeverityHigh},
		{"25cm is high", 25, true, models.SeverityHigh},
		{"30cm is high", 30, true, models.SeverityHigh},
		{"35cm no alert", 35, false, ""},
		{"49.9cm no alert", 49.9, false, ""},
		{"50cm is medium", 50, true, models.SeverityMedium},
		{"75cm is medium", 75, true, models.SeverityMedium},
		{"100cm is medium", 100, true, models.SeverityMedium},
		{"101cm no alert", 101, false, ""},
		{"250cm no alert", 250, false, ""},
		{"negative means no reading", -1, false, ""},
		{"zero means no reading", 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(sampleWithDistance(tt.distance), defaultThresholds(), false)
			if !tt.wantEvent {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, models.EventObstacleAlert, result.EventType)
			assert.Equal(t, tt.wantSeverity, result.Severity)
		})
	}
}

func TestClassify_ObstacleDebounce(t *testing.T) {
	// 50~100cm 和 20~30cm 受去抖约束
	result := Classify(sampleWithDistance(75), defaultThresholds(), true)
	assert.Nil(t, result)

	result = Classify(sampleWithDistance(25), defaultThresholds(), true)
	assert.Nil(t, result)
}

func TestClassify_CriticalBypassesDebounce(t *testing.T) {
	// <10cm 紧急报警不受去抖约束：9 秒前刚有 MEDIUM 报警也照样触发
	result := Classify(sampleWithDistance(5), defaultThresholds(), true)

	require.NotNil(t, result)
	assert.Equal(t, models.EventObstacleAlert, result.EventType)
	assert.Equal(t, models.SeverityCritical, result.Severity)
}

func TestClassify_ObstaclePayloadFlags(t *testing.T) {
	result := Classify(sampleWithDistance(60), defaultThresholds(), false)

	require.NotNil(t, result)
	assert.True(t, result.Payload.TriggerAudioRecording)
	assert.True(t, result.Payload.TriggerPhotoCapture)
	require.NotNil(t, result.Payload.Distance)
	assert.Equal(t, 60.0, *result.Payload.Distance)
}

// ============================================
// 响声检测测试
// ============================================

func TestClassify_LoudSound(t *testing.T) {
	sample := models.SensorSample{DeviceID: "esp32-001", DistanceCM: -1, MicLevel: 2500}

	result := Classify(sample, defaultThresholds(), false)

	require.NotNil(t, result)
	assert.Equal(t, models.EventLoudSoundAlert, result.EventType)
	assert.Equal(t, models.SeverityMedium, result.Severity)
}

func TestClassify_LoudSound_High(t *testing.T) {
	sample := models.SensorSample{DeviceID: "esp32-001", DistanceCM: -1, MicLevel: 3600}

	result := Classify(sample, defaultThresholds(), false)

	require.NotNil(t, result)
	assert.Equal(t, models.EventLoudSoundAlert, result.EventType)
	assert.Equal(t, models.SeverityHigh, result.Severity)
}

func TestClassify_LoudSound_BelowThreshold(t *testing.T) {
	sample := models.SensorSample{DeviceID: "esp32-001", DistanceCM: -1, MicLevel: 1999}

	result := Classify(sample, defaultThresholds(), false)

	assert.Nil(t, result)
}

// ============================================
// 触摸手势测试
// ============================================

func TestClassify_TouchGestures(t *testing.T) {
	tests := []struct {
		touchType    string
		wantType     string
		wantSeverity string
	}{
		{models.TouchLongPress, models.EventLongPressEmergency, models.SeverityCritical},
		{models.TouchDouble, models.EventDoubleTapMusic, models.SeverityLow},
		{models.TouchSingle, models.EventSingleTapVoice, models.SeverityLow},
		{"", models.EventSOSTouch, models.SeverityCritical},
		{"UNKNOWN", models.EventSOSTouch, models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			sample := models.SensorSample{DeviceID: "esp32-001", DistanceCM: -1, Touch: true, TouchType: tt.touchType}

			result := Classify(sample, defaultThresholds(), false)

			require.NotNil(t, result)
			assert.Equal(t, tt.wantType, result.EventType)
			assert.Equal(t, tt.wantSeverity, result.Severity)
		})
	}
}

// 触摸手势优先级最高：同一采样同时命中障碍物和触摸时，事件类型取触摸结果，
// 但障碍物命中产生的媒体采集标志保留在载荷里
func TestClassify_TouchOverridesObstacle(t *testing.T) {
	sample := models.SensorSample{
		DeviceID:   "esp32-001",
		DistanceCM: 60,
		Touch:      true,
		TouchType:  models.TouchLongPress,
		MicLevel:   4000,
	}

	result := Classify(sample, defaultThresholds(), false)

	require.NotNil(t, result)
	assert.Equal(t, models.EventLongPressEmergency, result.EventType)
	assert.Equal(t, models.SeverityCritical, result.Severity)
	assert.True(t, result.Payload.TriggerPhotoCapture)
}

func TestClassify_NoTrigger(t *testing.T) {
	sample := models.SensorSample{DeviceID: "esp32-001", DistanceCM: -1, MicLevel: 100}

	result := Classify(sample, defaultThresholds(), false)

	assert.Nil(t, result)
}
