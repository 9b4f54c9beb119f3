package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/config"
	"github.com/MorseWayne/flash_sale/internal/domain"
	"github.com/MorseWayne/flash_sale/internal/service"
)

func TestParseRole(t *testing.T) {
	role, err := parseRole("operator")
	require.NoError(t, err)
	assert.Equal(t, domain.OperatorRoleOperator, role)

	_, err = parseRole("root")
	assert.Error(t, err)
}

func TestIssue(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{
		Secret:         "test-secret-key-with-enough-length",
		Issuer:         "flash_sale",
		AccessTokenTTL: time.Hour,
	}}

	token, err := issue(cfg, &domain.Operator{ID: 7, Username: "ops", Role: domain.OperatorRoleOperator})
	require.NoError(t, err)

	claims, err := service.NewJWTService(cfg, zap.NewNop()).ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.OperatorID)
	assert.True(t, claims.Operator().CanManageActivities())

	_, err = issue(cfg, &domain.Operator{ID: 0, Role: domain.OperatorRoleAdmin})
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}
