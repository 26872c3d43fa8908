package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

// プロモコード。codeは大文字小文字を区別しない一意キー。
// usage_countは注文確定1回につき最大1回だけ加算する。
type PromoCode struct {
	ID              int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Code            string           `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Description     string           `gorm:"type:varchar(200)" json:"description"`
	DiscountType    DiscountType     `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue   decimal.Decimal  `gorm:"type:numeric(18,2);not null" json:"discount_value"`
	MinimumPurchase *decimal.Decimal `gorm:"type:numeric(18,2)" json:"minimum_purchase,omitempty"`
	MaximumDiscount *decimal.Decimal `gorm:"type:numeric(18,2)" json:"maximum_discount,omitempty"`
	StartDate       *time.Time       `json:"start_date,omitempty"`
	EndDate         *time.Time       `json:"end_date,omitempty"`
	UsageLimit      *int64           `json:"usage_limit,omitempty"`
	UsageCount      int64            `gorm:"not null;default:0" json:"usage_count"`
	IsActive        bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
