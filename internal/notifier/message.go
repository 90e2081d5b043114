package notifier

import (
	"fmt"
	"time"

	"saarthi-alert/internal/models"
)

// 消息文案与原生 app 对齐，时间一律用设备所在时区的本地时间

func mapsLink(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%f,%f", lat, lon)
}

// BuildSensorAlertMessage 传感器事件报警文案
func BuildSensorAlertMessage(userName, eventType, severity string, loc *models.Location) string {
	msg := "🚨 SAARTHI Alert\n\n"
	msg += "User: " + userName + "\n"
	msg += "Event: " + eventType + "\n"
	msg += "Severity: " + severity + "\n"
	msg += "Time: " + time.Now().Format("2006-01-02 15:04:05") + "\n"

	if loc != nil {
		msg += "Location: " + mapsLink(loc.Latitude, loc.Longitude) + "\n"
	}

	return msg
}

// BuildEmergencyAlertMessage 手动紧急报警文案
func BuildEmergencyAlertMessage(userName, eventType string, loc *models.Location) string {
	msg := "🚨 SAARTHI Emergency Alert\n\n"
	msg += "User: " + userName + "\n"
	msg += "Event: " + eventType + "\n"
	msg += "Time: " + time.Now().Format("02 Jan 2006, 03:04 PM") + "\n"

	if loc != nil {
		msg += "📍 Location: " + mapsLink(loc.Latitude, loc.Longitude) + "\n"
	}

	msg += "\nPlease check the SAARTHI app for details."

	return msg
}

// BuildGeofenceAlertMessage 地理围栏越界文案
func BuildGeofenceAlertMessage(userName, zoneName, breachType string, lat, lon float64) string {
	status := "Exited Safe Zone"
	if breachType == models.BreachEnteredRestricted {
		status = "Entered Restricted Area"
	}

	msg := "⚠️ Geofence Alert\n\n"
	msg += "User: " + userName + "\n"
	msg += "Zone: " + zoneName + "\n"
	msg += "Status: " + status + "\n"
	msg += "Time: " + time.Now().Format("02 Jan 2006, 03:04 PM") + "\n"
	msg += "Location: " + mapsLink(lat, lon)

	return msg
}

// BuildTripDelayMessage 行程延误文案
func BuildTripDelayMessage(userName string, lat, lon float64) string {
	msg := "⏰ Trip Delay Alert\n\n"
	msg += "User: " + userName + "\n"
	msg += "Expected arrival time has passed.\n"
	msg += "Current location: " + mapsLink(lat, lon)

	return msg
}
