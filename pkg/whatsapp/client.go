// Package whatsapp 对接市政 WhatsApp 网关微服务。
//
// 网关接口：POST {transport_url}，JSON 体 {"message": "...", "phoneNumber": "..."}，
// 2xx 视为投递成功。
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/RyouhaWH/turnos-app-sub002/pkg/metrics"
)

// Sender 消息投递接口，NotificationService 依赖此接口以便测试替换
type Sender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// StatusError 网关返回非 2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("whatsapp gateway returned status %d: %s", e.StatusCode, e.Body)
}

// ErrEmptyRecipient 收件人为空
var ErrEmptyRecipient = errors.New("whatsapp: empty phone number")

type sendRequest struct {
	Message     string `json:"message"`
	PhoneNumber string `json:"phoneNumber"`
}

// Client 网关 HTTP 客户端
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option 客户端可选项
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit 每秒最多 perSecond 次调用；<=0 表示不限速
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient 创建网关客户端，timeout 为单次调用超时
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send 投递一条消息
func (c *Client) Send(ctx context.Context, phoneNumber, message string) error {
	if phoneNumber == "" {
		return ErrEmptyRecipient
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(sendRequest{Message: message, PhoneNumber: phoneNumber})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordTransportLatency("error", time.Since(start))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordTransportLatency(fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	metrics.RecordTransportLatency("ok", time.Since(start))
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// IsRetryable 判断投递错误是否值得重试
// 返回：(是否可重试, 错误类型)
func IsRetryable(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	if errors.Is(err, ErrEmptyRecipient) {
		return false, "empty_recipient"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusTooManyRequests:
			return true, "rate_limited"
		case se.StatusCode >= 500:
			return true, "gateway_error"
		default:
			// 号码格式错误等 4xx 重试无意义
			return false, "gateway_rejected"
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true, "network_error"
	}

	return true, "unknown_error"
}
