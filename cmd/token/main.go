package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/handler"
)

// 为指定的 owner 签发访问令牌，输出到标准输出
func main() {
	var owner string
	var role string
	var expiration int

	flag.StringVar(&owner, "owner", "", "令牌的 owner，即排班运行的归属者")
	flag.StringVar(&role, "role", string(domain.RolePlanner), "角色 (planner: 可以发起和取消排班, viewer: 只能查看)")
	flag.IntVar(&expiration, "expiration", 0, "有效期（秒），为 0 时使用 JWT_EXPIRATION")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if owner == "" {
		logger.Error("必须指定 owner")
		os.Exit(1)
	}
	if !domain.Role(role).Valid() {
		logger.Error("无效的角色", "role", role)
		os.Exit(1)
	}

	// 读取配置文件
	cfg, err := config.LoadJWTConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if expiration <= 0 {
		expiration = cfg.Expiration
	}

	token, err := handler.NewToken(cfg.Secret, owner, domain.Role(role), time.Duration(expiration)*time.Second)
	if err != nil {
		logger.Error("无法签发令牌", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println(token)
}
