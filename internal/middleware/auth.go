package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/resp"
	"github.com/MorseWayne/flash_sale/internal/service"
)

// GinContextKeyOperatorID gin 上下文中的运营人员ID键
const GinContextKeyOperatorID = "operator_id"

const bearerPrefix = "Bearer "

// Auth JWT认证中间件
// 验证 Authorization 头中的访问令牌，并将运营人员写入请求上下文
func Auth(jwtService service.JWTService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		reqID := RequestIDFromContext(c.Request.Context())

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("missing authorization header", zap.String("request_id", reqID))
			abortUnauthorized(c, "authorization header required", reqID)
			return
		}
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			logger.Warn("invalid authorization header format", zap.String("request_id", reqID))
			abortUnauthorized(c, "invalid authorization header format", reqID)
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
		if tokenString == "" {
			abortUnauthorized(c, "token required", reqID)
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			logger.Warn("token validation failed", zap.String("request_id", reqID), zap.Error(err))
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				abortUnauthorized(c, "token expired", reqID)
			case errors.Is(err, service.ErrTokenNotReady):
				abortUnauthorized(c, "token not ready", reqID)
			default:
				abortUnauthorized(c, "invalid token", reqID)
			}
			return
		}

		op := claims.Operator()
		c.Request = c.Request.WithContext(WithOperator(c.Request.Context(), op))
		c.Set(GinContextKeyOperatorID, op.ID)
		c.Next()
	}
}

// RequireActivityManager 要求当前运营人员具备活动管理权限，须在 Auth 之后使用
func RequireActivityManager(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		reqID := RequestIDFromContext(c.Request.Context())
		op := OperatorFromContext(c.Request.Context())
		if op == nil {
			logger.Error("operator not found in context", zap.String("request_id", reqID))
			abortUnauthorized(c, "authentication required", reqID)
			return
		}
		if !op.CanManageActivities() {
			logger.Warn("insufficient permissions",
				zap.String("request_id", reqID),
				zap.Int64("operator_id", op.ID),
				zap.String("role", string(op.Role)),
			)
			resp.Error(c.Writer, http.StatusForbidden, resp.CodeForbidden, "insufficient permissions", reqID, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg, reqID string) {
	resp.Error(c.Writer, http.StatusUnauthorized, resp.CodeUnauthorized, msg, reqID, "")
	c.Abort()
}
