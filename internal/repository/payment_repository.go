package repository

import (
	"context"
	"time"

	"shop/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (int64, error)
	FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error)

	// 決済確定。ゲートウェイの取引番号と確定時刻を記録する
	MarkCompleted(ctx context.Context, orderID int64, transactionID string, paidAt time.Time) error

	UpdateStatusByOrderID(ctx context.Context, orderID int64, status model.PaymentStatus) error
}
