package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterDeviceRoutes 注册设备侧路由（ESP32 上报用）
func (r *Router) RegisterDeviceRoutes(d *DeviceHandler) {
	// ESP32 带宽受限，遥测同时支持 GET 查询串和 POST JSON
	r.Handle("/api/device/postSensorData", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		d.PostSensorData(w, req)
	})

	r.Handle("/api/device/uploadSnapshot", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		d.UploadSnapshot(w, req)
	})

	r.Handle("/api/device/uploadAudio", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		d.UploadAudio(w, req)
	})

	r.Handle("/api/device/status", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		d.DeviceStatus(w, req)
	})
}

// RegisterAppRoutes 注册 App 侧路由
func (r *Router) RegisterAppRoutes(l *LocationHandler, a *AlertHandler) {
	r.Handle("/api/location/update", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		l.UpdateLocation(w, req)
	})

	r.Handle("/api/device/emergencyAlert", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.EmergencyAlert(w, req)
	})

	r.Handle("/api/event/detail", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.EventDetail(w, req)
	})
}
