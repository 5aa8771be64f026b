package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lifegpa-api/internal/dto"
	"github.com/noah-isme/lifegpa-api/internal/models"
	"github.com/noah-isme/lifegpa-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService creates life categories outside the onboarding flow, for local
// and staging environments.
type SeedService interface {
	SeedCategories(ctx context.Context, token string, req dto.SeedCategoriesRequest) (int64, error)
}

type seedService struct {
	categories repository.CategoryRepository
	validator  *validator.Validate
	enabled    bool
	token      string
	logger     zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(categories repository.CategoryRepository, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		categories: categories,
		validator:  validate,
		enabled:    enabled,
		token:      token,
		logger:     logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedCategories(ctx context.Context, token string, req dto.SeedCategoriesRequest) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return 0, err
	}

	items := normalizeCategories(strings.TrimSpace(req.UserID), req.Names)
	affected, err := s.categories.UpsertBatch(ctx, items)
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int64("affected", affected).Str("user_id", req.UserID).Msg("categories seeded")
	return affected, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}

func normalizeCategories(userID string, names []string) []models.GPACategory {
	seen := make(map[string]struct{}, len(names))
	items := make([]models.GPACategory, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		key := strings.ToLower(trimmed)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, models.GPACategory{UserID: userID, CategoryName: trimmed})
	}
	return items
}
