package repo

import (
	"context"
	"time"

	"github.com/vmarkelov/marketplace/internal/models"
)

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

func (r *GormRepo) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	product := models.Product{}
	if err := r.DB.WithContext(ctx).Where("ID=?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetActiveProducts lists active products only, oldest first, paginated.
func (r *GormRepo) GetActiveProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Product
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("is_active = ?", true).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

// FindExpiredActive returns active products created at or before now-window.
func (r *GormRepo) FindExpiredActive(ctx context.Context, window time.Duration) ([]models.Product, error) {
	cutoff := time.Now().Add(-window)

	var items []models.Product
	if err := r.DB.WithContext(ctx).
		Where("is_active = ? AND created_at <= ?", true, cutoff).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DeactivateIfExpired flips a product inactive only if it is still active and
// still past the window at the moment of the update. The guard lives inside the
// UPDATE itself, so a concurrent reactivation cannot be clobbered by a stale
// sweep. Reports whether the row flipped.
func (r *GormRepo) DeactivateIfExpired(ctx context.Context, id int, window time.Duration) (bool, error) {
	cutoff := time.Now().Add(-window)

	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_active = ? AND created_at <= ?", id, true, cutoff).
		Update("is_active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ActivateIfInactive is the reactivation counterpart: the flip happens only if
// the product is still inactive.
func (r *GormRepo) ActivateIfInactive(ctx context.Context, id int) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_active = ?", id, false).
		Update("is_active", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
