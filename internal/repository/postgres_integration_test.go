//go:build integration
// +build integration

package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tapbio-next/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	tables := []interface{}{&models.CardEvent{}, &models.Card{}}
	_ = db.Migrator().DropTable(tables...)
	if err := db.AutoMigrate(tables...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(tables...)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPostgresCardBindConstraints(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewCardRepository(db)
	ctx := context.Background()

	for _, id := range []string{"card-pg001", "card-pg002"} {
		if err := repo.Create(ctx, &models.Card{CardID: id, SecretPinHash: "hash", IsActive: true}); err != nil {
			t.Fatalf("create card %s failed: %v", id, err)
		}
	}
	if err := repo.Create(ctx, &models.Card{CardID: "card-pg001", SecretPinHash: "hash", IsActive: true}); !errors.Is(err, ErrCardIDConflict) {
		t.Fatalf("expected ErrCardIDConflict, got %v", err)
	}

	if _, err := repo.BindAtomic(ctx, "card-pg001", 1, time.Now()); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if _, err := repo.BindAtomic(ctx, "card-pg001", 2, time.Now()); !errors.Is(err, ErrCardBindConflict) {
		t.Fatalf("expected ErrCardBindConflict, got %v", err)
	}
	if _, err := repo.BindAtomic(ctx, "card-pg002", 1, time.Now()); !errors.Is(err, ErrCardAccountConflict) {
		t.Fatalf("expected ErrCardAccountConflict, got %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Claimed != 1 || stats.Unclaimed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	cards, total, err := repo.List(ctx, CardListFilter{Keyword: "PG00", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(cards) != 2 {
		t.Fatalf("ilike search expected 2 cards, got total=%d len=%d", total, len(cards))
	}
}
