package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tapbio-next/internal/constants"
	"github.com/tapbio-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCardRepositoryTest(t *testing.T) (*GormCardRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:card_repository_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// 内存库并发写入时串行化连接，避免 table locked
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Card{}, &models.CardEvent{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewCardRepository(db), db
}

func seedCard(t *testing.T, repo *GormCardRepository, cardID string, active bool) *models.Card {
	t.Helper()
	card := &models.Card{
		CardID:        cardID,
		SecretPinHash: "hash",
		IsActive:      active,
	}
	if err := repo.Create(context.Background(), card); err != nil {
		t.Fatalf("create card failed: %v", err)
	}
	return card
}

func TestCardRepositoryCreateDuplicate(t *testing.T) {
	repo, _ := setupCardRepositoryTest(t)
	ctx := context.Background()
	seedCard(t, repo, "card-aaaaa", true)

	err := repo.Create(ctx, &models.Card{CardID: "card-aaaaa", SecretPinHash: "x", IsActive: true})
	if !errors.Is(err, ErrCardIDConflict) {
		t.Fatalf("expected ErrCardIDConflict, got %v", err)
	}

	err = repo.CreateBatch(ctx, []models.Card{
		{CardID: "card-bbbbb", SecretPinHash: "x", IsActive: true},
		{CardID: "card-aaaaa", SecretPinHash: "x", IsActive: true},
	})
	if !errors.Is(err, ErrCardIDConflict) {
		t.Fatalf("expected batch ErrCardIDConflict, got %v", err)
	}
}

func TestCardRepositoryGetMissingReturnsNil(t *testing.T) {
	repo, _ := setupCardRepositoryTest(t)
	card, err := repo.GetByCardID(context.Background(), "card-zzzzz")
	if err != nil {
		t.Fatalf("get card failed: %v", err)
	}
	if card != nil {
		t.Fatalf("expected nil card, got %+v", card)
	}
}

func TestCardRepositoryBindAtomic(t *testing.T) {
	repo, _ := setupCardRepositoryTest(t)
	ctx := context.Background()
	seedCard(t, repo, "card-bind1", true)
	now := time.Now()

	card, err := repo.BindAtomic(ctx, "card-bind1", 7, now)
	require.NoError(t, err)
	require.NotNil(t, card.LinkedUserID)
	require.Equal(t, uint(7), *card.LinkedUserID)
	require.NotNil(t, card.ClaimedAt)
	require.Equal(t, constants.CardStateClaimed, card.State())

	_, err = repo.BindAtomic(ctx, "card-bind1", 8, now)
	require.ErrorIs(t, err, ErrCardBindConflict)

	_, err = repo.BindAtomic(ctx, "card-missing", 8, now)
	require.ErrorIs(t, err, ErrCardBindConflict)
}

func TestCardRepositoryBindAtomicRejectsInactive(t *testing.T) {
	repo, _ := setupCardRepositoryTest(t)
	seedCard(t, repo, "card-off01", false)

	_, err := repo.BindAtomic(context.Background(), "card-off01", 3, time.Now())
	require.ErrorIs(t, err, ErrCardBindConflict)
}

func TestCardRepositoryBindAtomicAccountConflict(t *testing.T) {
	repo, _ := setupCardRepositoryTest(t)
	ctx := context.Background()
	seedCard(t, repo, "card-one01", true)
	seedCard(t, repo, "card-two02", true)

	_, err := repo.BindAtomic(ctx, "card-one01", 5, time.Now())
	require.NoError(t, err)

	_, err = repo.BindAtomic(ctx, "card-two02", 5, time.Now())
	require.ErrorIs(t, err, ErrCardAccountConflict)

	second, err := repo.GetByCardID(ctx, "card-two02")
	require.NoError(t, err)
	require.Nil(t, second.LinkedUserID)
	require.Nil(t, second.ClaimedAt)
}

func TestCardRepositoryBindAtomicConcurrent(t *testing.T) {
	repo, _ := setupCardRepositoryTest(t)
	seedCard(t, repo, "card-race1", true)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := repo.BindAtomic(context.Background(), "card-race1", userID, time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrCardBindConflict):
				conflicts++
			default:
				t.Errorf("unexpected bind error: %v", err)
			}
		}(uint(100 + i))
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Fatalf("expected exactly one winner, got successes=%d conflicts=%d", successes, conflicts)
	}
}

func TestCardRepositoryUnbindIdempotent(t *testing.T) {
	repo, _ := setupCardRepositoryTest(t)
	ctx := context.Background()
	seedCard(t, repo, "card-unb01", true)
	_, err := repo.BindAtomic(ctx, "card-unb01", 9, time.Now())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		card, err := repo.Unbind(ctx, "card-unb01", time.Now())
		require.NoError(t, err)
		require.Nil(t, card.LinkedUserID)
		require.Nil(t, card.ClaimedAt)
		require.Equal(t, "hash", card.SecretPinHash)
	}

	card, err := repo.Unbind(ctx, "card-none1", time.Now())
	require.NoError(t, err)
	require.Nil(t, card)

	owned, err := repo.FindByAccount(ctx, 9)
	require.NoError(t, err)
	require.Nil(t, owned)
}

func TestCardRepositoryListAndStats(t *testing.T) {
	repo, _ := setupCardRepositoryTest(t)
	ctx := context.Background()
	seedCard(t, repo, "card-lst01", true)
	seedCard(t, repo, "card-lst02", true)
	seedCard(t, repo, "card-lst03", false)
	_, err := repo.BindAtomic(ctx, "card-lst02", 11, time.Now())
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, CardStats{Total: 3, Claimed: 1, Unclaimed: 1, Inactive: 1}, *stats)

	cards, total, err := repo.List(ctx, CardListFilter{State: constants.CardStateUnclaimed, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "card-lst01", cards[0].CardID)

	cards, total, err = repo.List(ctx, CardListFilter{Keyword: "LST0", Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, cards, 2)

	cards, _, err = repo.List(ctx, CardListFilter{LinkedUserID: 11})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "card-lst02", cards[0].CardID)

	existing, err := repo.ExistingCardIDs(ctx, []string{"card-lst01", "card-new99"})
	require.NoError(t, err)
	require.Equal(t, []string{"card-lst01"}, existing)
}

func TestCardRepositorySetActiveKeepsBinding(t *testing.T) {
	repo, _ := setupCardRepositoryTest(t)
	ctx := context.Background()
	seedCard(t, repo, "card-act01", true)
	_, err := repo.BindAtomic(ctx, "card-act01", 21, time.Now())
	require.NoError(t, err)

	card, err := repo.SetActive(ctx, "card-act01", false, time.Now())
	require.NoError(t, err)
	require.False(t, card.IsActive)
	require.NotNil(t, card.LinkedUserID)
	require.Equal(t, constants.CardStateInactive, card.State())
}
