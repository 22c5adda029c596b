package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"

	"github.com/tapbio-next/internal/config"
	"github.com/tapbio-next/internal/constants"
	"github.com/tapbio-next/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// CardPinVerifier PIN 哈希与校验
// 所有失败路径都执行一次 bcrypt 比较，响应耗时不泄露失败原因
type CardPinVerifier struct {
	cost      int
	pinLength int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewCardPinVerifier 创建 PIN 校验器
func NewCardPinVerifier(cfg config.CardConfig) *CardPinVerifier {
	cfg = cfg.Normalized()
	cost := cfg.PinHashCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CardPinVerifier{cost: cost, pinLength: cfg.PinLength}
}

// PinLength PIN 位数
func (v *CardPinVerifier) PinLength() int {
	return v.pinLength
}

// Hash 计算 PIN 哈希
func (v *CardPinVerifier) Hash(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), v.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// WellFormed PIN 是否为纯数字且位数在允许范围内
// 不按当前 pin_length 校验，调整配置后已印制的卡片仍可认领
func (v *CardPinVerifier) WellFormed(pin string) bool {
	if len(pin) < config.MinCardPinLength || len(pin) > config.MaxCardPinLength {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// Verify 校验 PIN 是否与卡片匹配
func (v *CardPinVerifier) Verify(card *models.Card, pin string) bool {
	pin = strings.TrimSpace(pin)
	if card == nil || card.SecretPinHash == "" || !v.WellFormed(pin) {
		v.Burn(pin)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(card.SecretPinHash), []byte(pin)) == nil
}

// Burn 对占位哈希做一次比较，用于补齐耗时
func (v *CardPinVerifier) Burn(pin string) {
	v.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("tapbio-dummy-pin"), v.cost)
		if err == nil {
			v.dummyHash = hash
		}
	})
	if len(v.dummyHash) == 0 {
		return
	}
	_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(pin))
}

// GeneratePin 生成首位非零的数字 PIN
func GeneratePin(length int) (string, error) {
	if length <= 0 {
		length = config.DefaultCardPinLength
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		lower, span := int64(0), int64(10)
		if i == 0 {
			lower, span = 1, 9
		}
		n, err := rand.Int(rand.Reader, big.NewInt(span))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + lower + n.Int64()))
	}
	return b.String(), nil
}

// GenerateCardID 生成 前缀+随机小写字母数字 的卡号
func GenerateCardID(prefix string, length int) (string, error) {
	if length <= 0 {
		length = config.DefaultCardIDLength
	}
	alphabet := constants.CardIDAlphabet
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(len(prefix) + length)
	b.WriteString(prefix)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCardID 卡号统一去空白并转小写
func NormalizeCardID(cardID string) string {
	return strings.ToLower(strings.TrimSpace(cardID))
}
