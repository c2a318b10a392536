package memorials

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/memorial-backend/internal/lifecycle"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
)

var contentColumns = []string{
	"name",
	"hebrew_name",
	"birth_date",
	"death_date",
	"biography",
	"images",
	"videos",
	"background_music",
	"hero_image",
	"hero_summary",
	"timeline",
	"tehilim_chapters",
	"mishnayot",
	"updated_at",
}

// Repository persists memorial rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a memorial repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, m *models.Memorial) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Memorial, error) {
	var m models.Memorial
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func visibleScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(tier <> ? OR (expires_at IS NOT NULL AND expires_at >= ?))", enums.TierTemporary, now)
	}
}

// CountVisible counts memorials a normal reader can see at now.
func (r *Repository) CountVisible(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Memorial{}).
		Scopes(visibleScope(now)).
		Count(&total).Error
	return total, err
}

// ListVisible returns visible memorials newest first. A negative limit returns all rows.
func (r *Repository) ListVisible(ctx context.Context, now time.Time, offset, limit int) ([]models.Memorial, error) {
	var rows []models.Memorial
	q := r.db.WithContext(ctx).
		Scopes(visibleScope(now)).
		Order("created_at DESC").
		Order("id DESC")
	if limit >= 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByMusic counts memorials whose background music is path.
func (r *Repository) CountByMusic(ctx context.Context, path string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Memorial{}).
		Where("background_music = ?", path).
		Count(&n).Error
	return n, err
}

// ListByOwner returns every memorial owned by ownerID, expired ones included.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Memorial, error) {
	var rows []models.Memorial
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// UpdateContent writes the content columns of m while the stored edit flag is
// still set. It reports how many rows changed.
func (r *Repository) UpdateContent(ctx context.Context, m *models.Memorial) (int64, error) {
	m.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Memorial{}).
		Where("id = ? AND can_edit = ?", m.ID, true).
		Select(contentColumns).
		Updates(m)
	return res.RowsAffected, res.Error
}

// UpdateEntitlement writes the lifecycle-owned columns.
func (r *Repository) UpdateEntitlement(ctx context.Context, id uuid.UUID, ent lifecycle.Entitlement) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Memorial{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"tier":       ent.Tier,
			"expires_at": ent.ExpiresAt,
			"can_edit":   ent.CanEdit,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// ClaimOwner assigns ownerID to a memorial that was created anonymously.
func (r *Repository) ClaimOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Memorial{}).
		Where("id = ? AND owner_id IS NULL", id).
		Update("owner_id", ownerID)
	return res.RowsAffected, res.Error
}

// Delete removes a memorial with its interactions and plan records. Billing
// records keep their history with the memorial reference cleared.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("memorial_id = ?", id).Delete(&models.Condolence{}).Error; err != nil {
			return err
		}
		if err := tx.Where("memorial_id = ?", id).Delete(&models.Candle{}).Error; err != nil {
			return err
		}
		if err := tx.Where("memorial_id = ?", id).Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Payment{}).Where("memorial_id = ?", id).Update("memorial_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Memorial{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}
