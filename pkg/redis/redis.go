package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RyouhaWH/turnos-app-sub002/config"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("redis: key not found")

// Client Redis 客户端封装
// 用于排班编辑会话快照、会话锁与接口限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger, now: time.Now}, nil
}

// ── JSON 快照 ──

// SetJSON 以 JSON 写入键值并设置 TTL
func (c *Client) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("序列化失败: %w", err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// GetJSON 读取 JSON 键值，键不存在时返回 ErrNotFound
func (c *Client) GetJSON(ctx context.Context, key string, v any) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// Delete 删除键
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// ── 限流 ──

const rateLimitPrefix = "rate_limit:"

// CheckRateLimit 滑动窗口限流，返回本次请求是否放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := c.now()
	fullKey := rateLimitPrefix + key
	windowStart := now.Add(-window).UnixNano()

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, fullKey, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, fullKey, goredis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	card := pipe.ZCard(ctx, fullKey)
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return card.Val() <= int64(limit), nil
}

// ── 分布式锁 ──

// unlockScript 仅当值仍为本方 token 时删除，避免误删他人在锁过期后获得的锁
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 以 SET NX 尝试获取锁，成功时返回持有 token
func (c *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock 释放 TryLock 获得的锁
func (c *Client) Unlock(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, c.rdb, []string{key}, token).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
