package notifier

import (
	"context"
	"strings"

	"saarthi-alert/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WhatsAppClient WhatsApp 网关客户端（CallMeBot 兼容接口）
// 超时受配置约束，网关失败不重试（投递结果只进审计日志）
type WhatsAppClient struct {
	httpClient *resty.Client
	apiKey     string
	logger     *zap.Logger
}

// NewWhatsAppClient 创建 WhatsApp 网关客户端
func NewWhatsAppClient(cfg config.WhatsAppConfig, logger *zap.Logger) *WhatsAppClient {
	client := resty.New().
		SetBaseURL(cfg.GatewayURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "text/plain")

	return &WhatsAppClient{
		httpClient: client,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// Send 向网关投递一条消息，返回是否成功与网关原始响应
// phone 必须是归一化后的纯数字国际号码；任何失败都转换为 false，不抛错
func (c *WhatsAppClient) Send(ctx context.Context, phone, message string) (bool, string) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"phone":  "+" + phone,
			"text":   message,
			"apikey": c.apiKey,
		}).
		Get("")

	if err != nil {
		c.logger.Warn("WhatsApp gateway call failed",
			zap.String("phone", phone),
			zap.Error(err),
		)
		return false, err.Error()
	}

	body := resp.String()

	// 网关在 HTTP 200 下也可能返回 Forbidden 文本
	if resp.StatusCode() != 200 || strings.Contains(body, "Forbidden") || strings.Contains(body, "403") {
		c.logger.Warn("WhatsApp gateway rejected message",
			zap.String("phone", phone),
			zap.Int("status_code", resp.StatusCode()),
		)
		return false, body
	}

	return true, body
}

// NormalizePhone 归一化电话号码（印度规则，尽力而为）
// 去掉所有非数字字符；11 位且以 0 开头去掉前导 0；恰好 10 位补国家码 91；
// 其余长度原样保留（可能已带其他国家码）
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	normalized := digits.String()

	if len(normalized) == 11 && strings.HasPrefix(normalized, "0") {
		normalized = normalized[1:]
	}
	if len(normalized) == 10 {
		normalized = "91" + normalized
	}

	return normalized
}
