package model

import "time"

// 在庫変動の理由
const (
	StockReasonOrderPlaced   = "ORDER_PLACED"
	StockReasonOrderCanceled = "ORDER_CANCELED"
	StockReasonAdminSet      = "ADMIN_SET"
)

//在庫変動の履歴

type StockMovement struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64     `gorm:"not null;index" json:"product_id"`
	OrderID     *int64    `gorm:"index" json:"order_id,omitempty"`
	ActorUserID *int64    `gorm:"index" json:"actor_user_id,omitempty"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
