package interactions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/memorial-backend/pkg/db/models"
)

// Repository persists condolences and candles.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an interactions repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateCondolence(ctx context.Context, c *models.Condolence) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// ListApprovedCondolences returns approved messages newest first.
func (r *Repository) ListApprovedCondolences(ctx context.Context, memorialID uuid.UUID) ([]models.Condolence, error) {
	var rows []models.Condolence
	err := r.db.WithContext(ctx).
		Where("memorial_id = ? AND approved = ?", memorialID, true).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateCandle(ctx context.Context, c *models.Candle) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// HasCandle reports whether visitorID already lit a candle on the memorial.
func (r *Repository) HasCandle(ctx context.Context, memorialID uuid.UUID, visitorID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Candle{}).
		Where("memorial_id = ? AND visitor_id = ?", memorialID, visitorID).
		Count(&count).Error
	return count > 0, err
}

// ListCandles returns the memorial's candles newest first.
func (r *Repository) ListCandles(ctx context.Context, memorialID uuid.UUID) ([]models.Candle, error) {
	var rows []models.Candle
	err := r.db.WithContext(ctx).
		Where("memorial_id = ?", memorialID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}
