package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodCreditCard     PaymentMethod = "CREDIT_CARD"
)

// 外部ゲートウェイのホスト型決済ページを経由するか
func (m PaymentMethod) UsesGateway() bool {
	return m == PaymentMethodCreditCard
}

// 注文。total_amountは税・割引適用後の確定額で、決済確定後は変更しない。
type Order struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64           `gorm:"not null;index" json:"user_id"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod  PaymentMethod   `gorm:"type:varchar(30);not null" json:"payment_method"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"total_amount"`

	//適用されたプロモコード（任意）
	PromoCodeID *int64 `gorm:"index" json:"promo_code_id,omitempty"`

	ShippingAddress string `gorm:"type:varchar(500);not null" json:"shipping_address"`
	City            string `gorm:"type:varchar(100);not null" json:"city"`
	Country         string `gorm:"type:varchar(100);not null" json:"country"`
	PhoneNumber     string `gorm:"type:varchar(30);not null" json:"phone_number"`
	Notes           string `gorm:"type:varchar(1000)" json:"notes"`

	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
