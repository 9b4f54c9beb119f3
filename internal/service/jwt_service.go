package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/config"
	"github.com/MorseWayne/flash_sale/internal/domain"
)

// JWT相关错误定义
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenNotReady = errors.New("token used before valid")
)

const tokenTypeAccess = "access"

// Claims 定义JWT载荷结构，携带运营人员身份
type Claims struct {
	OperatorID int64               `json:"operator_id"`
	Username   string              `json:"username"`
	Role       domain.OperatorRole `json:"role"`
	Type       string              `json:"type"`
	jwt.RegisteredClaims
}

// Operator 从载荷还原运营人员
func (c *Claims) Operator() *domain.Operator {
	return &domain.Operator{ID: c.OperatorID, Username: c.Username, Role: c.Role}
}

// JWTService 定义JWT服务接口
type JWTService interface {
	GenerateAccessToken(operator *domain.Operator) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
}

type jwtService struct {
	config *config.Config
	logger *zap.Logger
}

// NewJWTService 创建JWT服务实例
func NewJWTService(cfg *config.Config, logger *zap.Logger) JWTService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &jwtService{
		config: cfg,
		logger: logger,
	}
}

// GenerateAccessToken 为运营人员签发访问令牌
func (s *jwtService) GenerateAccessToken(operator *domain.Operator) (string, error) {
	if operator == nil || operator.ID <= 0 {
		return "", fmt.Errorf("generate access token: %w", domain.ErrInvalidParams)
	}

	now := time.Now()
	claims := &Claims{
		OperatorID: operator.ID,
		Username:   operator.Username,
		Role:       operator.Role,
		Type:       tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", operator.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.JWT.AccessTokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.JWT.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWT.Secret))
	if err != nil {
		s.logger.Error("failed to sign access token", zap.Error(err))
		return "", fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("access token generated",
		zap.Int64("operator_id", operator.ID),
		zap.String("role", string(operator.Role)),
		zap.Duration("ttl", s.config.JWT.AccessTokenTTL),
	)
	return signed, nil
}

// ValidateAccessToken 验证访问令牌
func (s *jwtService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWT.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotReady
		}
		s.logger.Warn("token validation failed", zap.Error(err))
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != tokenTypeAccess {
		s.logger.Warn("token type mismatch", zap.String("actual", claims.Type))
		return nil, ErrInvalidToken
	}
	if claims.Issuer != s.config.JWT.Issuer {
		s.logger.Warn("token issuer mismatch",
			zap.String("expected", s.config.JWT.Issuer),
			zap.String("actual", claims.Issuer),
		)
		return nil, ErrInvalidToken
	}
	if claims.OperatorID <= 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
