package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/domain"
	"github.com/MorseWayne/flash_sale/internal/service"
)

// MockJWTService 是用于测试的JWT服务模拟实现
type MockJWTService struct {
	validTokens   map[string]*service.Claims
	expiredTokens map[string]bool
}

func NewMockJWTService() *MockJWTService {
	return &MockJWTService{
		validTokens:   make(map[string]*service.Claims),
		expiredTokens: make(map[string]bool),
	}
}

func (m *MockJWTService) GenerateAccessToken(op *domain.Operator) (string, error) {
	token := "mock_access_token_" + op.Username
	m.validTokens[token] = &service.Claims{
		OperatorID: op.ID,
		Username:   op.Username,
		Role:       op.Role,
		Type:       "access",
	}
	return token, nil
}

func (m *MockJWTService) ValidateAccessToken(tokenString string) (*service.Claims, error) {
	if m.expiredTokens[tokenString] {
		return nil, service.ErrTokenExpired
	}
	claims, exists := m.validTokens[tokenString]
	if !exists {
		return nil, service.ErrInvalidToken
	}
	return claims, nil
}

func (m *MockJWTService) AddExpiredToken(token string) {
	m.expiredTokens[token] = true
}

func createTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		op := OperatorFromContext(c.Request.Context())
		if op == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		if c.GetInt64(GinContextKeyOperatorID) != op.ID {
			c.String(http.StatusInternalServerError, "operator id mismatch")
			return
		}
		c.String(http.StatusOK, "authenticated")
	})
	r.GET("/test", handlers...)
	return r
}

func serve(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	req = req.WithContext(withRequestID(req.Context(), "test-id"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestAuth_Success(t *testing.T) {
	mockJWT := NewMockJWTService()
	token, _ := mockJWT.GenerateAccessToken(&domain.Operator{ID: 1, Username: "ops", Role: domain.OperatorRoleOperator})

	rr := serve(createTestRouter(Auth(mockJWT, zap.NewNop())), "Bearer "+token)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "authenticated" {
		t.Errorf("Expected 'authenticated', got %s", rr.Body.String())
	}
}

func TestAuth_Rejected(t *testing.T) {
	mockJWT := NewMockJWTService()
	mockJWT.AddExpiredToken("expired")

	testCases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"missing Bearer prefix", "invalid_token"},
		{"empty token", "Bearer "},
		{"only Bearer", "Bearer"},
		{"unknown token", "Bearer invalid_token"},
		{"expired token", "Bearer expired"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(createTestRouter(Auth(mockJWT, nil)), tc.header)
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rr.Code)
			}
			if rr.Header().Get(HeaderRequestID) != "test-id" {
				t.Errorf("Expected request id header to be echoed, got %q", rr.Header().Get(HeaderRequestID))
			}
		})
	}
}

func TestRequireActivityManager(t *testing.T) {
	mockJWT := NewMockJWTService()

	testCases := []struct {
		name     string
		role     domain.OperatorRole
		expected int
	}{
		{"admin", domain.OperatorRoleAdmin, http.StatusOK},
		{"operator", domain.OperatorRoleOperator, http.StatusOK},
		{"viewer", domain.OperatorRoleViewer, http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, _ := mockJWT.GenerateAccessToken(&domain.Operator{ID: 7, Username: string(tc.role), Role: tc.role})
			r := createTestRouter(Auth(mockJWT, nil), RequireActivityManager(nil))

			rr := serve(r, "Bearer "+token)
			if rr.Code != tc.expected {
				t.Errorf("Expected status %d, got %d", tc.expected, rr.Code)
			}
		})
	}
}

func TestRequireActivityManager_WithoutAuth(t *testing.T) {
	rr := serve(createTestRouter(RequireActivityManager(zap.NewNop())), "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}
