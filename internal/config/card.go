package config

import "strings"

const (
	DefaultCardIDPrefix    = "card-"
	DefaultCardIDLength    = 5
	DefaultCardPinLength   = 6
	DefaultCardMaxGenerate = 100
	DefaultCardClaimPath   = "/c/"

	// MinCardPinLength 与 MaxCardPinLength 限定可接受的 PIN 位数
	MinCardPinLength = 4
	MaxCardPinLength = 12
)

// normalize 补齐非法或缺省的卡片参数
func (c *CardConfig) normalize() {
	if c.IDLength <= 0 {
		c.IDLength = DefaultCardIDLength
	}
	if c.PinLength < MinCardPinLength || c.PinLength > MaxCardPinLength {
		c.PinLength = DefaultCardPinLength
	}
	if c.MaxGenerate <= 0 {
		c.MaxGenerate = DefaultCardMaxGenerate
	}
	if strings.TrimSpace(c.ClaimPath) == "" {
		c.ClaimPath = DefaultCardClaimPath
	}
	if !strings.HasPrefix(c.ClaimPath, "/") {
		c.ClaimPath = "/" + c.ClaimPath
	}
	if !strings.HasSuffix(c.ClaimPath, "/") {
		c.ClaimPath += "/"
	}
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
}

// Normalized 返回补齐默认值后的副本
func (c CardConfig) Normalized() CardConfig {
	c.normalize()
	return c
}

// ClaimURL 生成卡片认领链接
func (c CardConfig) ClaimURL(cardID string) string {
	normalized := c.Normalized()
	return normalized.PublicBaseURL + normalized.ClaimPath + cardID
}
