package service

import (
	"context"
	"time"

	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/repository"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// mockCardRepository 用于模拟存储层故障
type mockCardRepository struct {
	mock.Mock
}

func (m *mockCardRepository) WithTx(*gorm.DB) repository.CardRepository {
	return m
}

func (m *mockCardRepository) Create(ctx context.Context, card *models.Card) error {
	return m.Called(ctx, card).Error(0)
}

func (m *mockCardRepository) CreateBatch(ctx context.Context, cards []models.Card) error {
	return m.Called(ctx, cards).Error(0)
}

func (m *mockCardRepository) GetByCardID(ctx context.Context, cardID string) (*models.Card, error) {
	args := m.Called(ctx, cardID)
	return cardArg(args, 0), args.Error(1)
}

func (m *mockCardRepository) FindByAccount(ctx context.Context, userID uint) (*models.Card, error) {
	args := m.Called(ctx, userID)
	return cardArg(args, 0), args.Error(1)
}

func (m *mockCardRepository) BindAtomic(ctx context.Context, cardID string, userID uint, now time.Time) (*models.Card, error) {
	args := m.Called(ctx, cardID, userID, now)
	return cardArg(args, 0), args.Error(1)
}

func (m *mockCardRepository) Unbind(ctx context.Context, cardID string, now time.Time) (*models.Card, error) {
	args := m.Called(ctx, cardID, now)
	return cardArg(args, 0), args.Error(1)
}

func (m *mockCardRepository) SetActive(ctx context.Context, cardID string, active bool, now time.Time) (*models.Card, error) {
	args := m.Called(ctx, cardID, active, now)
	return cardArg(args, 0), args.Error(1)
}

func (m *mockCardRepository) List(ctx context.Context, filter repository.CardListFilter) ([]models.Card, int64, error) {
	args := m.Called(ctx, filter)
	cards, _ := args.Get(0).([]models.Card)
	return cards, args.Get(1).(int64), args.Error(2)
}

func (m *mockCardRepository) Stats(ctx context.Context) (*repository.CardStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*repository.CardStats)
	return stats, args.Error(1)
}

func (m *mockCardRepository) ExistingCardIDs(ctx context.Context, cardIDs []string) ([]string, error) {
	args := m.Called(ctx, cardIDs)
	if fn, ok := args.Get(0).(func(context.Context, []string) []string); ok {
		return fn(ctx, cardIDs), args.Error(1)
	}
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func cardArg(args mock.Arguments, index int) *models.Card {
	card, _ := args.Get(index).(*models.Card)
	return card
}
