package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/RyouhaWH/turnos-app-sub002/config"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// Claims 自定义 JWT 声明
// UserID 写入变更日志的 changed_by；Name 仅用于日志
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
	}
}

// Issue 签发访问 Token（供 turnosctl 为服务账号或测试生成）
func (m *Manager) Issue(userID, name string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.ttl
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			Issuer:    m.issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwtv5.ParserOption{jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(m.issuer))
	}

	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
