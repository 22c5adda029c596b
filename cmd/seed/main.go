package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tapbio-next/internal/config"
	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/provider"
	"github.com/tapbio-next/internal/service"
)

// 初始化演示数据：一个持卡用户、一个卡片运营账号和一批未认领卡片
// 卡号与 PIN 以 TSV 输出到标准输出，可直接导入印刷系统
func main() {
	var (
		count        int
		withAccounts bool
	)
	flag.IntVar(&count, "count", 10, "生成卡片数量")
	flag.BoolVar(&withAccounts, "accounts", true, "是否创建演示账号")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		stdLog.Fatalf("Failed to build container: %v", err)
	}
	defer container.Close()

	if withAccounts {
		seedAccounts(container)
	}

	cards, err := container.CardService.Generate(context.Background(), service.GenerateCardsInput{Count: count})
	if err != nil {
		stdLog.Fatalf("Failed to generate cards: %v", err)
	}
	fmt.Fprintln(os.Stdout, "card_id\tpin\tclaim_url")
	for _, card := range cards {
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", card.CardID, card.Pin, card.ClaimURL)
	}
	stdLog.Printf("Generated %d cards", len(cards))
}

func seedAccounts(c *provider.Container) {
	stdLog := logger.StdLogger()

	_, _, _, err := c.UserAuthService.Register(service.RegisterInput{
		Email:       "demo@tapbio.local",
		Username:    "demo",
		Password:    "Demo12345!",
		DisplayName: "Demo Holder",
	})
	switch {
	case err == nil:
		stdLog.Printf("Created user: demo@tapbio.local / Demo12345!")
	case errors.Is(err, service.ErrEmailExists), errors.Is(err, service.ErrUsernameExists):
		stdLog.Printf("User already exists: demo")
	default:
		stdLog.Printf("Failed to create user demo: %v", err)
	}

	admin, err := c.AdminAuthService.CreateAdmin("operator", "Operator123!")
	switch {
	case err == nil:
		if err := c.AuthzService.SetAdminRoles(admin.ID, []string{"card_operator"}); err != nil {
			stdLog.Printf("Failed to assign role to operator: %v", err)
			return
		}
		stdLog.Printf("Created admin: operator / Operator123! (card_operator)")
	case errors.Is(err, service.ErrUsernameExists):
		stdLog.Printf("Admin already exists: operator")
	default:
		stdLog.Printf("Failed to create admin operator: %v", err)
	}
}
