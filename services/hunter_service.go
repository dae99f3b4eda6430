package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/trashunter/models"
	"github.com/yeremiapane/trashunter/repository"
	"github.com/yeremiapane/trashunter/utils"
	"golang.org/x/crypto/bcrypt"
)

const LeaderboardSize = 20

type HunterService struct {
	hunters *repository.HunterRepository
}

func NewHunterService(hunters *repository.HunterRepository) *HunterService {
	return &HunterService{hunters: hunters}
}

func (s *HunterService) Register(ctx context.Context, fullName, email, password string) (*models.Hunter, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("HunterService - Register - bcrypt.GenerateFromPassword: %w", err)
	}

	h := &models.Hunter{
		FullName: strings.TrimSpace(fullName),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: string(hashed),
	}
	if err := s.hunters.Create(ctx, h); err != nil {
		return nil, err
	}

	return h, nil
}

// Login returns a signed token for valid credentials.
func (s *HunterService) Login(ctx context.Context, email, password string) (string, error) {
	h, err := s.hunters.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrHunterNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(h.ID)
	if err != nil {
		return "", fmt.Errorf("HunterService - Login - utils.GenerateToken: %w", err)
	}
	return token, nil
}

func (s *HunterService) Profile(ctx context.Context, id uint) (*models.Hunter, error) {
	return s.hunters.GetByID(ctx, id)
}

// Leaderboard returns the public entries of the top hunters.
func (s *HunterService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	hunters, err := s.hunters.Leaderboard(ctx, LeaderboardSize)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(hunters))
	for _, h := range hunters {
		entries = append(entries, h.LeaderboardEntry())
	}
	return entries, nil
}
