package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/trashunter/models"
	"gorm.io/gorm"
)

var (
	ErrMarkerNotFound = errors.New("area not found")
	ErrAlreadyCleaned = errors.New("this area has already been cleaned")
)

type MarkerRepository struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewMarkerRepository(db *gorm.DB) *MarkerRepository {
	return &MarkerRepository{DB: db, now: time.Now}
}

func (r *MarkerRepository) ListAll(ctx context.Context) ([]models.Marker, error) {
	markers := make([]models.Marker, 0)
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&markers).Error; err != nil {
		return nil, fmt.Errorf("MarkerRepository - ListAll: %w", err)
	}
	return markers, nil
}

// Create inserts m as a new dirty marker; id and created_at are assigned here.
func (r *MarkerRepository) Create(ctx context.Context, m *models.Marker) error {
	m.ID = 0
	m.Status = models.MarkerDirty
	m.CreatedAt = r.now().UTC()
	m.CleanImageURL = nil
	m.CleanImageKey = nil
	m.CleanedAt = nil
	m.CleanerID = nil

	if err := r.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("MarkerRepository - Create: %w", err)
	}
	return nil
}

func (r *MarkerRepository) GetByID(ctx context.Context, id uint) (*models.Marker, error) {
	var m models.Marker
	err := r.DB.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMarkerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("MarkerRepository - GetByID: %w", err)
	}
	return &m, nil
}

type CleanupRecord struct {
	ImageURL  string
	ImageKey  string
	CleanerID *uint
	CleanedAt time.Time
}

// TransitionToCleaned flips a dirty marker to cleaned in a single conditional
// UPDATE, so two concurrent cleanups cannot both succeed.
func (r *MarkerRepository) TransitionToCleaned(ctx context.Context, id uint, rec CleanupRecord) (*models.Marker, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Marker{}).
		Where("id = ? AND status = ?", id, models.MarkerDirty).
		Updates(map[string]interface{}{
			"status":          models.MarkerCleaned,
			"clean_image_url": rec.ImageURL,
			"clean_image_key": rec.ImageKey,
			"cleaner_id":      rec.CleanerID,
			"cleaned_at":      rec.CleanedAt.UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("MarkerRepository - TransitionToCleaned: %w", res.Error)
	}

	m, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyCleaned
	}

	return m, nil
}
