package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RyouhaWH/turnos-app-sub002/internal/roster"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/redis"
)

// ── 编辑会话存储 ──

// ErrSessionNotFound 会话不存在或已过期
var ErrSessionNotFound = errors.New("编辑会话不存在或已过期")

// ErrSessionBusy 等待会话锁超时
var ErrSessionBusy = errors.New("编辑会话正被其他请求修改")

// RosterSession 一个月度排班表的编辑会话
// 过期或放弃即等同 ClearAll：未提交的变更直接丢弃
type RosterSession struct {
	ID        string          `json:"id"`
	OpenedBy  string          `json:"opened_by"`
	OpenedAt  time.Time       `json:"opened_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	State     roster.Snapshot `json:"state"`
}

// SessionStore 会话快照存储
//
// 修改会话前须先 Lock：读取快照 → 修改 → 写回 在持有锁期间完成，
// 多实例共享 Redis 存储时同样成立。
type SessionStore interface {
	Save(ctx context.Context, s *RosterSession, ttl time.Duration) error
	Load(ctx context.Context, id string) (*RosterSession, error)
	Delete(ctx context.Context, id string) error
	// Lock 独占会话直到调用返回的解锁函数
	Lock(ctx context.Context, id string) (func(), error)
}

// ── 内存实现 ──

type memoryEntry struct {
	data    []byte
	expires time.Time
}

type memorySessionStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	locks sync.Map // id → *sync.Mutex
	now   func() time.Time
}

// NewMemorySessionStore 进程内会话存储；以 JSON 保存，读写互不共享内存
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{items: make(map[string]memoryEntry), now: time.Now}
}

func (m *memorySessionStore) Save(_ context.Context, s *RosterSession, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, e := range m.items {
		if now.After(e.expires) {
			delete(m.items, id)
		}
	}
	m.items[s.ID] = memoryEntry{data: data, expires: now.Add(ttl)}
	return nil
}

func (m *memorySessionStore) Load(_ context.Context, id string) (*RosterSession, error) {
	m.mu.Lock()
	e, ok := m.items[id]
	if ok && m.now().After(e.expires) {
		delete(m.items, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	var s RosterSession
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, fmt.Errorf("反序列化会话失败: %w", err)
	}
	return &s, nil
}

func (m *memorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	m.locks.Delete(id)
	return nil
}

// Lock 进程内互斥锁；单实例部署下即可保证会话串行
func (m *memorySessionStore) Lock(_ context.Context, id string) (func(), error) {
	v, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock, nil
}

// ── Redis 实现 ──

const (
	sessionKeyPrefix  = "roster:session:"
	sessionLockPrefix = "roster:session-lock:"

	defaultLockTTL   = 30 * time.Second
	defaultLockWait  = 5 * time.Second
	defaultLockRetry = 50 * time.Millisecond
)

type redisSessionStore struct {
	client *redis.Client

	lockTTL   time.Duration
	lockWait  time.Duration
	lockRetry time.Duration
}

// NewRedisSessionStore 基于 Redis 的会话存储，多实例部署时使用
// 会话锁为 SET NX 加 TTL，持有者崩溃后锁自动过期
func NewRedisSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{
		client:    client,
		lockTTL:   defaultLockTTL,
		lockWait:  defaultLockWait,
		lockRetry: defaultLockRetry,
	}
}

func (r *redisSessionStore) Save(ctx context.Context, s *RosterSession, ttl time.Duration) error {
	return r.client.SetJSON(ctx, sessionKeyPrefix+s.ID, s, ttl)
}

func (r *redisSessionStore) Load(ctx context.Context, id string) (*RosterSession, error) {
	var s RosterSession
	if err := r.client.GetJSON(ctx, sessionKeyPrefix+id, &s); err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *redisSessionStore) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, sessionKeyPrefix+id)
}

func (r *redisSessionStore) Lock(ctx context.Context, id string) (func(), error) {
	key := sessionLockPrefix + id
	waitCtx, cancel := context.WithTimeout(ctx, r.lockWait)
	defer cancel()

	for {
		token, ok, err := r.client.TryLock(waitCtx, key, r.lockTTL)
		if err != nil && waitCtx.Err() == nil {
			return nil, err
		}
		if ok {
			return func() {
				unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = r.client.Unlock(unlockCtx, key, token)
			}, nil
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, ErrSessionBusy
		case <-time.After(r.lockRetry):
		}
	}
}
