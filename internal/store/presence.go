package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const devicePresencePrefix = "saarthi:device:presence:"

// DevicePresence 设备在线状态快照
// 写入 Redis 带 TTL，TTL 过期即视为离线；数据库里的 last_seen 仍是权威记录
type DevicePresence struct {
	DeviceID  string    `json:"device_id"`
	UserID    string    `json:"user_id"`
	IPAddress string    `json:"ip_address,omitempty"`
	StreamURL string    `json:"stream_url,omitempty"`
	LastSeen  time.Time `json:"last_seen"`
}

// PresenceStore 设备在线状态缓存
type PresenceStore struct {
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

// NewPresenceStore 创建设备在线状态缓存
func NewPresenceStore(kv KV, ttl time.Duration, logger *zap.Logger) *PresenceStore {
	return &PresenceStore{
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
}

// MarkOnline 刷新设备在线状态（每次遥测上报调用）
func (s *PresenceStore) MarkOnline(ctx context.Context, presence DevicePresence) error {
	if presence.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	if presence.LastSeen.IsZero() {
		presence.LastSeen = time.Now()
	}

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	if err := s.kv.Set(ctx, devicePresencePrefix+presence.DeviceID, string(data), s.ttl); err != nil {
		return fmt.Errorf("failed to store presence: %w", err)
	}
	return nil
}

// GetPresence 读取设备在线状态，离线（键过期）返回 nil
func (s *PresenceStore) GetPresence(ctx context.Context, deviceID string) (*DevicePresence, error) {
	val, err := s.kv.Get(ctx, devicePresencePrefix+deviceID)
	if err != nil {
		if err == ErrMiss {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read presence: %w", err)
	}

	var presence DevicePresence
	if err := json.Unmarshal([]byte(val), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}
	return &presence, nil
}

// ListOnlineDeviceIDs 列出当前在线的设备 ID
func (s *PresenceStore) ListOnlineDeviceIDs(ctx context.Context) ([]string, error) {
	keys, err := s.kv.ScanKeys(ctx, devicePresencePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan presence keys: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, devicePresencePrefix))
	}
	return ids, nil
}
