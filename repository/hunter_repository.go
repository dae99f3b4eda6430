package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeremiapane/trashunter/models"
	"gorm.io/gorm"
)

var (
	ErrHunterNotFound = errors.New("hunter not found")
	ErrEmailTaken     = errors.New("email is already registered")
)

type HunterRepository struct {
	DB *gorm.DB
}

func NewHunterRepository(db *gorm.DB) *HunterRepository {
	return &HunterRepository{DB: db}
}

// Create relies on the unique email index, so concurrent registrations of
// one address cannot both succeed. The DB must be opened with TranslateError.
func (r *HunterRepository) Create(ctx context.Context, h *models.Hunter) error {
	err := r.DB.WithContext(ctx).Create(h).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("HunterRepository - Create: %w", err)
	}
	return nil
}

func (r *HunterRepository) GetByID(ctx context.Context, id uint) (*models.Hunter, error) {
	var h models.Hunter
	err := r.DB.WithContext(ctx).First(&h, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHunterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("HunterRepository - GetByID: %w", err)
	}
	return &h, nil
}

func (r *HunterRepository) GetByEmail(ctx context.Context, email string) (*models.Hunter, error) {
	var h models.Hunter
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHunterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("HunterRepository - GetByEmail: %w", err)
	}
	return &h, nil
}

// AddPoints increments score and collected count atomically in SQL.
func (r *HunterRepository) AddPoints(ctx context.Context, id uint, points, collected int) error {
	res := r.DB.WithContext(ctx).
		Model(&models.Hunter{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":           gorm.Expr("score + ?", points),
			"collected_count": gorm.Expr("collected_count + ?", collected),
		})
	if res.Error != nil {
		return fmt.Errorf("HunterRepository - AddPoints: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrHunterNotFound
	}
	return nil
}

// Leaderboard returns up to limit hunters that have scored, best first.
func (r *HunterRepository) Leaderboard(ctx context.Context, limit int) ([]models.Hunter, error) {
	hunters := make([]models.Hunter, 0)
	err := r.DB.WithContext(ctx).
		Where("score > ?", 0).
		Order("score DESC").
		Order("id ASC").
		Limit(limit).
		Find(&hunters).Error
	if err != nil {
		return nil, fmt.Errorf("HunterRepository - Leaderboard: %w", err)
	}
	return hunters, nil
}
