package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config saarthi-alert 服务配置
type Config struct {
	HTTP struct {
		Addr string
	}
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	WhatsApp WhatsAppConfig
	Alert    AlertConfig
	Log      struct {
		Level  string
		Format string
	}
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT 配置（设备遥测的可选接入通道，默认禁用）
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// WhatsAppConfig WhatsApp 网关配置（CallMeBot 兼容）
type WhatsAppConfig struct {
	GatewayURL string
	APIKey     string
	Timeout    time.Duration
}

// AlertConfig 报警管线配置
// 阈值默认值在 sensor_thresholds 表无记录时生效
type AlertConfig struct {
	ObstacleDebounce   time.Duration // 障碍物报警去抖窗口
	GeofenceCooldown   time.Duration // 地理围栏报警冷却窗口（每用户全局）
	DefaultMinDistance float64       // 超声波默认最小距离（cm）
	DefaultMicLoud     int           // 麦克风默认响度阈值
	DeviceLastSeenTTL  time.Duration // Redis 设备在线状态 TTL
}

// Load 从环境变量加载配置
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "saarthi")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	// MQTT 接入默认禁用，HTTP 仍然是主通道
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "saarthi-alert")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "saarthi/+/sensor")
	cfg.MQTT.QoS = 1

	cfg.WhatsApp.GatewayURL = getEnv("WHATSAPP_GATEWAY_URL", "https://api.callmebot.com/whatsapp.php")
	cfg.WhatsApp.APIKey = getEnv("WHATSAPP_API_KEY", "")
	cfg.WhatsApp.Timeout = time.Duration(parseInt(getEnv("WHATSAPP_TIMEOUT_SEC", "10"), 10)) * time.Second

	cfg.Alert.ObstacleDebounce = 10 * time.Second
	cfg.Alert.GeofenceCooldown = 5 * time.Minute
	cfg.Alert.DefaultMinDistance = 30.0
	cfg.Alert.DefaultMicLoud = 2000
	cfg.Alert.DeviceLastSeenTTL = 2 * time.Minute

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
