package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lifegpa-api/internal/dto"
	"github.com/noah-isme/lifegpa-api/internal/repository"
)

func TestSeedCategories(t *testing.T) {
	db := newTestDB(t)
	categories := repository.NewCategoryRepository(db)
	svc := NewSeedService(categories, validator.New(), true, "secret", testLogger())
	ctx := context.Background()

	affected, err := svc.SeedCategories(ctx, "secret", dto.SeedCategoriesRequest{
		UserID: "u1",
		Names:  []string{"Health", " health ", "Career", "  "},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), affected)

	rows, err := categories.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Health", rows[0].CategoryName)
	require.Equal(t, "Career", rows[1].CategoryName)

	affected, err = svc.SeedCategories(ctx, "secret", dto.SeedCategoriesRequest{UserID: "u1", Names: []string{"Career"}})
	require.NoError(t, err)
	require.Zero(t, affected)
}

func TestSeedCategoriesGuards(t *testing.T) {
	db := newTestDB(t)
	categories := repository.NewCategoryRepository(db)
	ctx := context.Background()
	req := dto.SeedCategoriesRequest{UserID: "u1", Names: []string{"Health"}}

	disabled := NewSeedService(categories, validator.New(), false, "secret", testLogger())
	_, err := disabled.SeedCategories(ctx, "secret", req)
	require.ErrorIs(t, err, ErrSeedDisabled)

	enabled := NewSeedService(categories, validator.New(), true, "secret", testLogger())
	_, err = enabled.SeedCategories(ctx, "wrong", req)
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	noToken := NewSeedService(categories, validator.New(), true, "", testLogger())
	_, err = noToken.SeedCategories(ctx, "", req)
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	_, err = enabled.SeedCategories(ctx, "secret", dto.SeedCategoriesRequest{UserID: "u1"})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}
