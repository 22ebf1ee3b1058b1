package repo

import (
	"context"

	"github.com/vmarkelov/marketplace/internal/models"
)

func (r *GormRepo) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.DB.WithContext(ctx).Create(comment).Error
}

// GetRecentComments returns the newest comments for a product, capped by limit.
func (r *GormRepo) GetRecentComments(ctx context.Context, productID, limit int) ([]models.Comment, error) {
	var items []models.Comment
	if err := r.DB.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
