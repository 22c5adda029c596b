package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tapbio-next/internal/cache"
	"github.com/tapbio-next/internal/config"
	"github.com/tapbio-next/internal/constants"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/queue"
	"github.com/tapbio-next/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type cardTestEnv struct {
	db        *gorm.DB
	cfg       config.CardConfig
	cardRepo  *repository.GormCardRepository
	eventRepo *repository.GormCardEventRepository
	userRepo  *repository.GormUserRepository
	verifier  *CardPinVerifier
	status    *CardStatusService
	events    *CardEventRecorder
	claims    *CardClaimService
	cards     *CardService
}

func newCardTestEnv(t *testing.T) *cardTestEnv {
	t.Helper()
	return newCardTestEnvWithConfig(t, config.CardConfig{
		IDPrefix:            "card-",
		IDLength:            5,
		PinLength:           6,
		PinHashCost:         bcrypt.MinCost,
		MaxGenerate:         50,
		PublicBaseURL:       "https://tap.example",
		ClaimPath:           "/c/",
		StatusCacheSeconds:  60,
		PublicInactiveState: true,
		QRCodeSize:          256,
	})
}

func newCardTestEnvWithConfig(t *testing.T, cfg config.CardConfig) *cardTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:card_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.Card{}, &models.CardEvent{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	prevDB := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = prevDB
		_ = sqlDB.Close()
	})

	env := &cardTestEnv{
		db:        db,
		cfg:       cfg,
		cardRepo:  repository.NewCardRepository(db),
		eventRepo: repository.NewCardEventRepository(db),
		userRepo:  repository.NewUserRepository(db),
	}
	queueClient, _ := queue.NewClient(nil)
	env.verifier = NewCardPinVerifier(cfg)
	env.status = NewCardStatusService(cfg, env.cardRepo, env.userRepo)
	env.events = NewCardEventRecorder(queueClient, env.eventRepo)
	env.claims = NewCardClaimService(env.cardRepo, env.userRepo, env.verifier, env.status, env.events)
	env.cards = NewCardService(cfg, env.cardRepo, env.eventRepo, env.verifier, env.status, env.events)
	return env
}

// useMiniredis 为状态缓存接入内存 Redis
func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.UseClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { _ = cache.Close() })
	return mr
}

func (e *cardTestEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "x",
		DisplayName:  username,
		Status:       constants.UserStatusActive,
	}
	if err := e.userRepo.Create(user); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func (e *cardTestEnv) createCard(t *testing.T, cardID, pin string) *models.Card {
	t.Helper()
	hash, err := e.verifier.Hash(pin)
	if err != nil {
		t.Fatalf("hash pin failed: %v", err)
	}
	card := &models.Card{CardID: cardID, SecretPinHash: hash, IsActive: true}
	if err := e.cardRepo.Create(context.Background(), card); err != nil {
		t.Fatalf("create card failed: %v", err)
	}
	return card
}

func (e *cardTestEnv) countEvents(t *testing.T, cardID, action string) int64 {
	t.Helper()
	var count int64
	if err := e.db.Model(&models.CardEvent{}).Where("card_id = ? AND action = ?", cardID, action).Count(&count).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	return count
}
