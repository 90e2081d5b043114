package httpapi

import (
	"net/http"
	"time"

	"saarthi-alert/internal/models"
	"saarthi-alert/internal/service"

	"go.uber.org/zap"
)

// DeviceHandler 设备侧接口 Handler（ESP32 上报）
type DeviceHandler struct {
	alertService service.AlertService
	logger       *zap.Logger
}

// NewDeviceHandler 创建设备侧 Handler
func NewDeviceHandler(alertService service.AlertService, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		alertService: alertService,
		logger:       logger,
	}
}

// sensorDataRequest POST JSON 请求体（GET 时从查询串解析同名参数）
type sensorDataRequest struct {
	DeviceID  string  `json:"device_id"`
	Distance  float64 `json:"distance"`
	Touch     bool    `json:"touch"`
	TouchType string  `json:"touch_type"`
	Mic       int     `json:"mic"`
	IPAddress string  `json:"ip_address"`
	StreamURL string  `json:"stream_url"`
}

// sensorDataResponse 回传给设备端的处理结果
type sensorDataResponse struct {
	EventTriggered        bool   `json:"event_triggered"`
	EventID               string `json:"event_id,omitempty"`
	EventType             string `json:"event_type,omitempty"`
	Severity              string `json:"severity,omitempty"`
	TriggerAudioRecording bool   `json:"trigger_audio_recording"`
	TriggerPhotoCapture   bool   `json:"trigger_photo_capture"`
}

// PostSensorData 接收一次设备遥测
func (h *DeviceHandler) PostSensorData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sensorDataRequest
	if r.Method == http.MethodPost {
		if err := readBodyJSON(r, 1<<20, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
			return
		}
	} else {
		q := r.URL.Query()
		req.DeviceID = q.Get("device_id")
		req.Distance = parseFloat(q.Get("distance"), -1)
		req.Touch = parseBool(q.Get("touch"))
		req.TouchType = q.Get("touch_type")
		req.Mic = parseInt(q.Get("mic"), 0)
		req.IPAddress = q.Get("ip_address")
		req.StreamURL = q.Get("stream_url")
	}

	if req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("device_id is required"))
		return
	}

	// 设备只报告有读数的字段，遥测里未给距离时保持负值（无读数）
	if r.Method == http.MethodPost && req.Distance == 0 {
		req.Distance = -1
	}
	if req.IPAddress == "" {
		// 设备没报 IP 时用连接来源地址兜底（流地址拼接用）
		req.IPAddress = remoteIP(r)
	}

	result, err := h.alertService.IngestSensorSample(ctx, req.DeviceID, models.SensorSample{
		DeviceID:   req.DeviceID,
		DistanceCM: req.Distance,
		Touch:      req.Touch,
		TouchType:  req.TouchType,
		MicLevel:   req.Mic,
		IPAddress:  req.IPAddress,
		StreamURL:  req.StreamURL,
	})
	if err != nil {
		h.logger.Error("PostSensorData failed",
			zap.String("device_id", req.DeviceID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(sensorDataResponse{
		EventTriggered:        result.EventID != "",
		EventID:               result.EventID,
		EventType:             result.EventType,
		Severity:              result.Severity,
		TriggerAudioRecording: result.TriggerAudioRecording,
		TriggerPhotoCapture:   result.TriggerPhotoCapture,
	}))
}

// mediaUploadRequest 媒体上传回调请求体
// 实际文件由对象存储/网关落盘，这里只接收最终路径
type mediaUploadRequest struct {
	DeviceID string `json:"device_id"`
	EventID  string `json:"event_id"`
	Path     string `json:"path"`
}

// UploadSnapshot 绑定设备上传的照片路径
func (h *DeviceHandler) UploadSnapshot(w http.ResponseWriter, r *http.Request) {
	h.attachMedia(w, r, models.MediaImage)
}

// UploadAudio 绑定设备上传的录音路径
func (h *DeviceHandler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	h.attachMedia(w, r, models.MediaAudio)
}

func (h *DeviceHandler) attachMedia(w http.ResponseWriter, r *http.Request, kind models.MediaKind) {
	ctx := r.Context()

	var req mediaUploadRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("device_id is required"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, Fail("path is required"))
		return
	}

	eventID, err := h.alertService.AttachEventMedia(ctx, service.MediaAttachRequest{
		EventID:    req.EventID,
		HardwareID: req.DeviceID,
		Kind:       kind,
		Path:       req.Path,
	})
	if err != nil {
		h.logger.Error("Media attach failed",
			zap.String("device_id", req.DeviceID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]string{"event_id": eventID}))
}

type deviceStatusItem struct {
	DeviceID  string `json:"device_id"`
	UserID    string `json:"user_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	StreamURL string `json:"stream_url,omitempty"`
	LastSeen  string `json:"last_seen"`
}

// DeviceStatus 监护人端查询当前在线设备列表
func (h *DeviceHandler) DeviceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	devices, err := h.alertService.OnlineDevices(ctx)
	if err != nil {
		h.logger.Error("DeviceStatus failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	items := make([]deviceStatusItem, 0, len(devices))
	for _, d := range devices {
		items = append(items, deviceStatusItem{
			DeviceID:  d.DeviceID,
			UserID:    d.UserID,
			IPAddress: d.IPAddress,
			StreamURL: d.StreamURL,
			LastSeen:  d.LastSeen.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, Ok(items))
}

func remoteIP(r *http.Request) string {
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
