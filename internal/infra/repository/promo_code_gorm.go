package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
)

type PromoCodeGormRepository struct {
	db *gorm.DB
}

func NewPromoCodeGormRepository(db *gorm.DB) *PromoCodeGormRepository {
	return &PromoCodeGormRepository{db: db}
}

// codeは大文字小文字を区別しないで検索
func (r *PromoCodeGormRepository) FindByCode(ctx context.Context, code string) (model.PromoCode, error) {
	var pc model.PromoCode

	err := r.db.WithContext(ctx).
		Where("LOWER(code) = LOWER(?)", code).
		First(&pc).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PromoCode{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PromoCode{}, err
	}
	return pc, nil
}

// usage_limit未満のときだけ+1（上限なしなら常に+1）。
// 事前チェックと確定の間に他の注文が枠を使い切っていたらfalse。
func (r *PromoCodeGormRepository) IncrementUsage(ctx context.Context, promoCodeID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.PromoCode{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", promoCodeID).
		Update("usage_count", gorm.Expr("usage_count + 1"))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

func (r *PromoCodeGormRepository) Create(ctx context.Context, pc model.PromoCode) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&pc).Error; err != nil {
		return 0, err
	}
	return pc.ID, nil
}
