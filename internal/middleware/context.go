// Package middleware 提供 HTTP 中间件：请求 ID、恢复、超时、CORS、访问日志、认证等。
package middleware

import (
	"context"

	"github.com/MorseWayne/flash_sale/internal/domain"
)

// contextKey 用于在上下文中存取特定键，避免与外部键冲突。
type contextKey string

// 约定的上下文键集合。
const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyOperator  contextKey = "operator"
)

// withRequestID 将请求 ID 写入上下文。
func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

// RequestIDFromContext 从上下文中读取请求 ID（可能为空）。
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithOperator 将当前运营人员写入上下文。
func WithOperator(ctx context.Context, op *domain.Operator) context.Context {
	return context.WithValue(ctx, contextKeyOperator, op)
}

// OperatorFromContext 从上下文中获取当前运营人员，未认证时返回 nil。
func OperatorFromContext(ctx context.Context) *domain.Operator {
	if op, ok := ctx.Value(contextKeyOperator).(*domain.Operator); ok {
		return op
	}
	return nil
}
