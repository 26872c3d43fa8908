package repository

import (
	"context"

	"shop/internal/domain/model"
)

type PromoCodeRepository interface {
	// codeは大文字小文字を区別しない
	FindByCode(ctx context.Context, code string) (model.PromoCode, error)

	// usage_limit未満のときだけusage_countを+1する。
	// 上限との競合はここで確定判定する（事前チェックの再確認）。
	IncrementUsage(ctx context.Context, promoCodeID int64) (bool, error)

	Create(ctx context.Context, pc model.PromoCode) (int64, error)
}
