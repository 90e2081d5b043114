package httpapi

import (
	"net/http"

	"saarthi-alert/internal/service"

	"go.uber.org/zap"
)

// AlertHandler App 侧手动紧急报警 Handler
type AlertHandler struct {
	alertService service.AlertService
	logger       *zap.Logger
}

// NewAlertHandler 创建紧急报警 Handler
func NewAlertHandler(alertService service.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		logger:       logger,
	}
}

type emergencyAlertRequest struct {
	DeviceID  string `json:"device_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

type emergencyAlertResponse struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Severity  string `json:"severity"`
}

// EmergencyAlert 触发一次手动紧急报警
func (h *AlertHandler) EmergencyAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}

	var req emergencyAlertRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	event, err := h.alertService.TriggerManualAlert(ctx, service.ManualAlertRequest{
		UserID:    userID,
		DeviceID:  req.DeviceID,
		EventType: req.EventType,
		Message:   req.Message,
	})
	if err != nil {
		h.logger.Error("EmergencyAlert failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(emergencyAlertResponse{
		EventID:   event.EventID,
		EventType: event.EventType,
		Severity:  event.Severity,
	}))
}

// EventDetail 查询当前用户的单个事件详情
func (h *AlertHandler) EventDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}

	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("event_id is required"))
		return
	}

	event, err := h.alertService.GetEvent(ctx, userID, eventID)
	if err != nil {
		h.logger.Warn("EventDetail failed",
			zap.String("user_id", userID),
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(event))
}
