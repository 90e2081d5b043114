package httpapi

import (
	"net/http"
	"strings"

	"saarthi-alert/internal/models"
	"saarthi-alert/internal/service"

	"go.uber.org/zap"
)

// LocationHandler App 侧位置上报 Handler
// 身份从 X-User-ID 头取（认证由上游网关完成）
type LocationHandler struct {
	alertService service.AlertService
	logger       *zap.Logger
}

// NewLocationHandler 创建位置上报 Handler
func NewLocationHandler(alertService service.AlertService, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{
		alertService: alertService,
		logger:       logger,
	}
}

type locationUpdateRequest struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Accuracy     float64 `json:"accuracy"`
	Speed        float64 `json:"speed"`
	BatteryLevel *int    `json:"battery_level,omitempty"`
	DeviceID     string  `json:"device_id,omitempty"`
}

// UpdateLocation 接收一次位置上报
func (h *LocationHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}

	var req locationUpdateRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	loc := &models.Location{
		UserID:       userID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Accuracy:     req.Accuracy,
		Speed:        req.Speed,
		BatteryLevel: req.BatteryLevel,
	}
	if req.DeviceID != "" {
		loc.DeviceID = &req.DeviceID
	}

	if err := h.alertService.IngestLocation(ctx, loc); err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		h.logger.Error("UpdateLocation failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "recorded"}))
}

// userIDFromReq 从请求头取用户身份，缺失时写 401 并返回 false
func userIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing X-User-ID header"))
		return "", false
	}
	return userID, true
}

// isValidationError 区分参数错误（400）与内部错误
func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "is required") || strings.Contains(msg, "out of range")
}
