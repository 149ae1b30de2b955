package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	"github.com/gildedlane/marketplace-backend/pkg/pagination"
)

// Repository persists wishlist entries. The composite unique index on
// (user_id, product_id) is what makes the toggle safe under concurrency.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a wishlist repository over the shared gorm handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert adds an entry if absent. ON CONFLICT DO NOTHING makes concurrent
// duplicate inserts converge to a single row; inserted reports whether this
// call created the row.
func (r *Repository) Insert(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO wishlist_items (id, user_id, product_id) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, product_id) DO NOTHING`,
		uuid.New(), userID, productID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes the entry if present and reports whether a row went away.
func (r *Repository) Delete(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Exists reports whether the product is on the user's wishlist.
func (r *Repository) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns the user's wishlist entries with their products, newest first,
// cursor-paginated.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WishlistItem, string, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limitWithBuffer)
	if decodedCursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID,
		)
	}

	var items []models.WishlistItem
	if err := query.Find(&items).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(items) > normalizedLimit {
		items = items[:normalizedLimit]
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return items, nextCursor, nil
}
