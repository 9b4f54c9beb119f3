// Package main 为运营人员签发访问令牌，便于本地调试活动管理接口
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/config"
	"github.com/MorseWayne/flash_sale/internal/domain"
	"github.com/MorseWayne/flash_sale/internal/service"
)

func parseRole(s string) (domain.OperatorRole, error) {
	switch role := domain.OperatorRole(s); role {
	case domain.OperatorRoleAdmin, domain.OperatorRoleOperator, domain.OperatorRoleViewer:
		return role, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func issue(cfg *config.Config, op *domain.Operator) (string, error) {
	return service.NewJWTService(cfg, zap.NewNop()).GenerateAccessToken(op)
}

func main() {
	var (
		id       = flag.Int64("id", 1, "Operator ID")
		username = flag.String("username", "admin", "Operator username")
		roleFlag = flag.String("role", string(domain.OperatorRoleAdmin), "Operator role: admin, operator, viewer")
	)
	flag.Parse()

	role, err := parseRole(*roleFlag)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	token, err := issue(cfg, &domain.Operator{ID: *id, Username: *username, Role: role})
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Fprintln(os.Stdout, token)
}
