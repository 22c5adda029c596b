package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tapbio-next/internal/cache"
	"github.com/tapbio-next/internal/config"
	"github.com/tapbio-next/internal/constants"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/repository"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCardStatusStates(t *testing.T) {
	env := newCardTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "status")
	env.createCard(t, "card-st001", "111111")
	env.createCard(t, "card-st002", "222222")
	stopped := env.createCard(t, "card-st003", "333333")
	_, err := env.cardRepo.SetActive(ctx, stopped.CardID, false, time.Now())
	require.NoError(t, err)
	_, err = env.claims.Claim(ctx, CardClaimInput{CardID: "card-st002", Pin: "222222", UserID: user.ID})
	require.NoError(t, err)

	cases := []struct {
		cardID string
		state  string
		exists bool
	}{
		{"card-st001", constants.CardStateUnclaimed, true},
		{"CARD-ST002", constants.CardStateClaimed, true},
		{"card-st003", constants.CardStateInactive, true},
		{"card-nope1", constants.CardStateNotFound, false},
		{"   ", constants.CardStateNotFound, false},
	}
	for _, tc := range cases {
		status, err := env.status.Status(ctx, tc.cardID)
		require.NoError(t, err)
		require.Equal(t, tc.state, status.State, tc.cardID)
		require.Equal(t, tc.exists, status.Exists, tc.cardID)
	}
}

func TestCardStatusHidesInactiveWhenConfigured(t *testing.T) {
	env := newCardTestEnv(t)
	cfg := env.cfg
	cfg.PublicInactiveState = false
	status := NewCardStatusService(cfg, env.cardRepo, env.userRepo)
	ctx := context.Background()

	card := env.createCard(t, "card-hid01", "111111")
	_, err := env.cardRepo.SetActive(ctx, card.CardID, false, time.Now())
	require.NoError(t, err)

	public, err := status.Status(ctx, "card-hid01")
	require.NoError(t, err)
	require.Equal(t, constants.CardStateNotFound, public.State)
	require.False(t, public.Exists)

	operator, err := status.StatusForOperator(ctx, "card-hid01")
	require.NoError(t, err)
	require.Equal(t, constants.CardStateInactive, operator.State)

	_, err = status.Profile(ctx, "card-hid01")
	require.ErrorIs(t, err, ErrCardNotFound)
}

func TestCardStatusProfile(t *testing.T) {
	env := newCardTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "profile")
	env.createCard(t, "card-pro01", "111111")
	env.createCard(t, "card-pro02", "222222")
	_, err := env.claims.Claim(ctx, CardClaimInput{CardID: "card-pro01", Pin: "111111", UserID: user.ID})
	require.NoError(t, err)

	ref, err := env.status.Profile(ctx, "card-pro01")
	require.NoError(t, err)
	require.Equal(t, "profile", ref.Username)
	require.Equal(t, "card-pro01", ref.CardID)

	_, err = env.status.Profile(ctx, "card-pro02")
	require.ErrorIs(t, err, ErrCardNotClaimed)
	_, err = env.status.Profile(ctx, "card-nope1")
	require.ErrorIs(t, err, ErrCardNotFound)

	user.Status = constants.UserStatusDisabled
	require.NoError(t, env.userRepo.Update(user))
	_, err = env.status.Profile(ctx, "card-pro01")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCardStatusCacheDoesNotRememberMissingCards(t *testing.T) {
	mr := useMiniredis(t)
	env := newCardTestEnv(t)
	ctx := context.Background()

	status, err := env.status.Status(ctx, "card-late1")
	require.NoError(t, err)
	require.False(t, status.Exists)
	require.False(t, mr.Exists("test:card:status:card-late1"))

	env.createCard(t, "card-late1", "111111")
	status, err = env.status.Status(ctx, "card-late1")
	require.NoError(t, err)
	require.Equal(t, constants.CardStateUnclaimed, status.State)
}

func TestCardStatusStoreUnavailable(t *testing.T) {
	env := newCardTestEnv(t)
	repo := &mockCardRepository{}
	repo.On("GetByCardID", mock.Anything, "card-err01").Return(nil, errors.New("database is locked"))
	status := NewCardStatusService(env.cfg, repo, env.userRepo)

	_, err := status.Status(context.Background(), "card-err01")
	require.ErrorIs(t, err, ErrCardStoreUnavailable)
}

func TestCardEventRecorderPersistsInlineWithoutQueue(t *testing.T) {
	env := newCardTestEnv(t)
	adminID := uint(3)
	env.events.Record(context.Background(), "card-evt01", constants.CardEventGenerated, nil, &adminID)

	require.Equal(t, int64(1), env.countEvents(t, "card-evt01", constants.CardEventGenerated))
}

func TestCardPinVerifierFallsBackToDefaultCost(t *testing.T) {
	v := NewCardPinVerifier(config.CardConfig{PinHashCost: bcrypt.MaxCost + 1})
	require.Equal(t, bcrypt.DefaultCost, v.cost)
}

// interleavingCardRepository 在读取返回后、调用方写缓存前执行一次 after
type interleavingCardRepository struct {
	repository.CardRepository
	once  sync.Once
	after func()
}

func (r *interleavingCardRepository) GetByCardID(ctx context.Context, cardID string) (*models.Card, error) {
	card, err := r.CardRepository.GetByCardID(ctx, cardID)
	if r.after != nil {
		r.once.Do(r.after)
	}
	return card, err
}

func TestCardStatusStaleReadDoesNotOverwriteClaim(t *testing.T) {
	useMiniredis(t)
	env := newCardTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "racer")
	env.createCard(t, "card-race1", "135790")

	repo := &interleavingCardRepository{CardRepository: env.cardRepo}
	repo.after = func() {
		_, err := env.claims.Claim(ctx, CardClaimInput{CardID: "card-race1", Pin: "135790", UserID: user.ID})
		require.NoError(t, err)
	}
	reader := NewCardStatusService(env.cfg, repo, env.userRepo)

	stale, err := reader.Status(ctx, "card-race1")
	require.NoError(t, err)
	require.Equal(t, constants.CardStateUnclaimed, stale.State)

	current, err := env.status.Status(ctx, "card-race1")
	require.NoError(t, err)
	require.Equal(t, constants.CardStateClaimed, current.State)

	snapshot, hit, err := cache.GetCardStatus(ctx, "card-race1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, constants.CardStateClaimed, snapshot.State)
}

func TestCardStatusRefreshRewritesCache(t *testing.T) {
	useMiniredis(t)
	env := newCardTestEnv(t)
	ctx := context.Background()
	card := env.createCard(t, "card-refr1", "112233")

	status, err := env.status.Status(ctx, card.CardID)
	require.NoError(t, err)
	require.Equal(t, constants.CardStateUnclaimed, status.State)

	// 绕过服务直接改库，模拟其他进程的写入
	_, err = env.cardRepo.SetActive(ctx, card.CardID, false, time.Now().Add(time.Second))
	require.NoError(t, err)
	env.status.Refresh(ctx, card.CardID)

	status, err = env.status.Status(ctx, card.CardID)
	require.NoError(t, err)
	require.Equal(t, constants.CardStateInactive, status.State)

	require.NoError(t, env.db.Where("card_id = ?", card.CardID).Delete(&models.Card{}).Error)
	env.status.Refresh(ctx, card.CardID)
	_, hit, err := cache.GetCardStatus(ctx, card.CardID)
	require.NoError(t, err)
	require.False(t, hit)
}
