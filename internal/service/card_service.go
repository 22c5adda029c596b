package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/tapbio-next/internal/config"
	"github.com/tapbio-next/internal/constants"
	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/models"
	"github.com/tapbio-next/internal/repository"

	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	cardIDAllocateRounds  = 10
	cardGenerateAttempts  = 3
	cardExportPageSize    = 200
	cardQRCodeMinSize     = 128
	cardQRCodeMaxSize     = 1024
	cardQRCodeDefaultSize = 256
)

var cardIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{2,63}$`)

// GenerateCardsInput 批量生成参数
type GenerateCardsInput struct {
	Count   int
	AdminID uint
}

// CreateCardInput 指定卡号与 PIN 创建卡片
type CreateCardInput struct {
	CardID  string
	Pin     string
	AdminID uint
}

// GeneratedCard 新卡信息，PIN 仅在此处返回一次
type GeneratedCard struct {
	CardID   string `json:"card_id"`
	Pin      string `json:"pin"`
	ClaimURL string `json:"claim_url"`
}

// CardDetail 管理端卡片详情
type CardDetail struct {
	*models.Card
	State    string `json:"state"`
	ClaimURL string `json:"claim_url"`
}

// CardService 卡片库存管理
type CardService struct {
	cfg       config.CardConfig
	cardRepo  repository.CardRepository
	eventRepo repository.CardEventRepository
	verifier  *CardPinVerifier
	status    *CardStatusService
	events    *CardEventRecorder
}

// NewCardService 创建卡片管理服务
func NewCardService(
	cfg config.CardConfig,
	cardRepo repository.CardRepository,
	eventRepo repository.CardEventRepository,
	verifier *CardPinVerifier,
	status *CardStatusService,
	events *CardEventRecorder,
) *CardService {
	return &CardService{
		cfg:       cfg.Normalized(),
		cardRepo:  cardRepo,
		eventRepo: eventRepo,
		verifier:  verifier,
		status:    status,
		events:    events,
	}
}

// MaxGenerate 单次生成上限
func (s *CardService) MaxGenerate() int {
	return s.cfg.MaxGenerate
}

// ClaimURL 卡片认领链接
func (s *CardService) ClaimURL(cardID string) string {
	return s.cfg.ClaimURL(cardID)
}

// Generate 批量生成卡片
// 卡号先与库内比对去重，写入时仍冲突则整批重试
func (s *CardService) Generate(ctx context.Context, input GenerateCardsInput) ([]GeneratedCard, error) {
	if input.Count < 1 || input.Count > s.cfg.MaxGenerate {
		return nil, ErrCardGenerateInvalid
	}

	for attempt := 1; attempt <= cardGenerateAttempts; attempt++ {
		result, err := s.generateOnce(ctx, input)
		if err == nil {
			logger.Infow("card_generate_succeeded", "count", len(result), "admin_id", input.AdminID)
			return result, nil
		}
		if !errors.Is(err, repository.ErrCardIDConflict) {
			return nil, storeUnavailable(err)
		}
		logger.Warnw("card_generate_id_conflict_retry", "attempt", attempt, "count", input.Count)
	}
	return nil, ErrCardIDDuplicate
}

func (s *CardService) generateOnce(ctx context.Context, input GenerateCardsInput) ([]GeneratedCard, error) {
	ids, err := s.allocateCardIDs(ctx, input.Count)
	if err != nil {
		return nil, err
	}

	pins := make([]string, len(ids))
	hashes := make([]string, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())
	for i := range ids {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			pin, err := GeneratePin(s.cfg.PinLength)
			if err != nil {
				return err
			}
			hash, err := s.verifier.Hash(pin)
			if err != nil {
				return err
			}
			pins[i], hashes[i] = pin, hash
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	now := time.Now()
	adminID := uintPtr(input.AdminID)
	cards := make([]models.Card, len(ids))
	events := make([]models.CardEvent, len(ids))
	for i, id := range ids {
		cards[i] = models.Card{
			CardID:        id,
			SecretPinHash: hashes[i],
			IsActive:      true,
			CreatedBy:     adminID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		events[i] = models.CardEvent{
			CardID:    id,
			Action:    constants.CardEventGenerated,
			AdminID:   adminID,
			CreatedAt: now,
		}
	}

	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.cardRepo.WithTx(tx).CreateBatch(ctx, cards); err != nil {
			return err
		}
		return s.eventRepo.WithTx(tx).CreateBatch(ctx, events)
	})
	if err != nil {
		return nil, err
	}

	result := make([]GeneratedCard, len(ids))
	for i, id := range ids {
		result[i] = GeneratedCard{CardID: id, Pin: pins[i], ClaimURL: s.ClaimURL(id)}
	}
	return result, nil
}

// allocateCardIDs 生成批内唯一且库内不存在的卡号
func (s *CardService) allocateCardIDs(ctx context.Context, count int) ([]string, error) {
	taken := make(map[string]struct{}, count)
	ids := make([]string, 0, count)
	for round := 0; round < cardIDAllocateRounds && len(ids) < count; round++ {
		candidates := make([]string, 0, count-len(ids))
		for len(candidates) < count-len(ids) {
			id, err := GenerateCardID(s.cfg.IDPrefix, s.cfg.IDLength)
			if err != nil {
				return nil, err
			}
			if _, ok := taken[id]; ok {
				continue
			}
			taken[id] = struct{}{}
			candidates = append(candidates, id)
		}
		existing, err := s.cardRepo.ExistingCardIDs(ctx, candidates)
		if err != nil {
			return nil, err
		}
		exists := make(map[string]struct{}, len(existing))
		for _, id := range existing {
			exists[id] = struct{}{}
		}
		for _, id := range candidates {
			if _, ok := exists[id]; !ok {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) < count {
		return nil, repository.ErrCardIDConflict
	}
	return ids, nil
}

// CreateCard 使用指定卡号与 PIN 建卡，用于导入预印卡片
func (s *CardService) CreateCard(ctx context.Context, input CreateCardInput) (*GeneratedCard, error) {
	cardID := NormalizeCardID(input.CardID)
	if !cardIDPattern.MatchString(cardID) || !s.verifier.WellFormed(input.Pin) {
		return nil, ErrCardCreateInvalid
	}
	hash, err := s.verifier.Hash(input.Pin)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	card := &models.Card{
		CardID:        cardID,
		SecretPinHash: hash,
		IsActive:      true,
		CreatedBy:     uintPtr(input.AdminID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.cardRepo.Create(ctx, card); err != nil {
		if errors.Is(err, repository.ErrCardIDConflict) {
			return nil, ErrCardIDDuplicate
		}
		return nil, storeUnavailable(err)
	}
	s.status.Remember(ctx, card)
	s.events.Record(ctx, cardID, constants.CardEventGenerated, nil, uintPtr(input.AdminID))
	return &GeneratedCard{CardID: cardID, Pin: input.Pin, ClaimURL: s.ClaimURL(cardID)}, nil
}

// Get 卡片详情
func (s *CardService) Get(ctx context.Context, cardID string) (*CardDetail, error) {
	card, err := s.mustGet(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return s.detail(card), nil
}

// List 卡片列表
func (s *CardService) List(ctx context.Context, filter repository.CardListFilter) ([]CardDetail, int64, error) {
	cards, total, err := s.cardRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, storeUnavailable(err)
	}
	items := make([]CardDetail, 0, len(cards))
	for i := range cards {
		items = append(items, *s.detail(&cards[i]))
	}
	return items, total, nil
}

// Stats 库存统计
func (s *CardService) Stats(ctx context.Context) (*repository.CardStats, error) {
	stats, err := s.cardRepo.Stats(ctx)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return stats, nil
}

// Unclaim 管理员解绑，未绑定的卡重复解绑同样成功
func (s *CardService) Unclaim(ctx context.Context, cardID string, adminID uint) (*models.Card, error) {
	card, err := s.mustGet(ctx, cardID)
	if err != nil {
		return nil, err
	}
	previousOwner := card.LinkedUserID

	updated, err := s.cardRepo.Unbind(ctx, card.CardID, time.Now())
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if updated == nil {
		return nil, ErrCardNotFound
	}
	s.status.Remember(ctx, updated)

	if previousOwner != nil {
		s.events.Record(ctx, updated.CardID, constants.CardEventUnclaimed, previousOwner, uintPtr(adminID))
		logger.Infow("card_unclaim_succeeded",
			"card_id", updated.CardID,
			"previous_user_id", *previousOwner,
			"admin_id", adminID,
		)
	}
	return updated, nil
}

// SetActive 启用或停用卡片
func (s *CardService) SetActive(ctx context.Context, cardID string, active bool, adminID uint) (*models.Card, error) {
	card, err := s.mustGet(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.IsActive == active {
		return card, nil
	}
	updated, err := s.cardRepo.SetActive(ctx, card.CardID, active, time.Now())
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if updated == nil {
		return nil, ErrCardNotFound
	}
	s.status.Remember(ctx, updated)

	action := constants.CardEventDeactivated
	if active {
		action = constants.CardEventActivated
	}
	s.events.Record(ctx, updated.CardID, action, nil, uintPtr(adminID))
	return updated, nil
}

// ListEvents 卡片流水
func (s *CardService) ListEvents(ctx context.Context, filter repository.CardEventListFilter) ([]models.CardEvent, int64, error) {
	filter.CardID = NormalizeCardID(filter.CardID)
	events, total, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, storeUnavailable(err)
	}
	return events, total, nil
}

// ExportCSV 导出卡片清单，不包含 PIN
func (s *CardService) ExportCSV(ctx context.Context, filter repository.CardListFilter) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"card_id", "state", "is_active", "linked_user_id", "claimed_at", "created_at", "claim_url"}); err != nil {
		return nil, err
	}

	filter.PageSize = cardExportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		cards, total, err := s.cardRepo.List(ctx, filter)
		if err != nil {
			return nil, storeUnavailable(err)
		}
		for i := range cards {
			if err := writer.Write(cardCSVRow(&cards[i], s.ClaimURL(cards[i].CardID))); err != nil {
				return nil, err
			}
		}
		if len(cards) == 0 || int64(page*cardExportPageSize) >= total {
			break
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// QRCode 生成认领链接二维码 PNG
func (s *CardService) QRCode(ctx context.Context, cardID string, size int) ([]byte, error) {
	card, err := s.mustGet(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = s.cfg.QRCodeSize
	}
	if size <= 0 {
		size = cardQRCodeDefaultSize
	}
	if size < cardQRCodeMinSize {
		size = cardQRCodeMinSize
	}
	if size > cardQRCodeMaxSize {
		size = cardQRCodeMaxSize
	}
	return qrcode.Encode(s.ClaimURL(card.CardID), qrcode.Medium, size)
}

// FindByAccount 账号当前持有的卡片
func (s *CardService) FindByAccount(ctx context.Context, userID uint) (*models.Card, error) {
	card, err := s.cardRepo.FindByAccount(ctx, userID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if card == nil {
		return nil, ErrCardNotClaimed
	}
	return card, nil
}

func (s *CardService) mustGet(ctx context.Context, cardID string) (*models.Card, error) {
	cardID = NormalizeCardID(cardID)
	if cardID == "" {
		return nil, ErrCardNotFound
	}
	card, err := s.cardRepo.GetByCardID(ctx, cardID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	return card, nil
}

func (s *CardService) detail(card *models.Card) *CardDetail {
	return &CardDetail{
		Card:     card,
		State:    card.State(),
		ClaimURL: s.ClaimURL(card.CardID),
	}
}

func cardCSVRow(card *models.Card, claimURL string) []string {
	linked, claimedAt := "", ""
	if card.LinkedUserID != nil {
		linked = strconv.FormatUint(uint64(*card.LinkedUserID), 10)
	}
	if card.ClaimedAt != nil {
		claimedAt = card.ClaimedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		card.CardID,
		card.State(),
		strconv.FormatBool(card.IsActive),
		linked,
		claimedAt,
		card.CreatedAt.UTC().Format(time.RFC3339),
		claimURL,
	}
}
