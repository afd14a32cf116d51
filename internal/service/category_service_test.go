package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/domain"
	"github.com/xinodeprinz/edstock-server/internal/repository"
)

type recordingCategoryRepository struct {
	mockCategoryRepository
	byName map[string]*domain.Category
}

func (r *recordingCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if _, ok := r.byName[c.Name]; ok {
		return repository.ErrCategoryAlreadyExists
	}
	r.byName[c.Name] = c
	return nil
}

func TestCategoryService_Create(t *testing.T) {
	repo := &recordingCategoryRepository{byName: map[string]*domain.Category{}}
	svc := NewCategoryService(repo, zap.NewNop())
	ctx := context.Background()

	given, err := svc.Create(ctx, "c-stationery", "  Stationery ")
	require.NoError(t, err)
	assert.Equal(t, "c-stationery", given.CategoryID)
	assert.Equal(t, "Stationery", given.Name)

	generated, err := svc.Create(ctx, "", "Office")
	require.NoError(t, err)
	assert.NotEmpty(t, generated.CategoryID)
	assert.Len(t, repo.byName, 2)
}

func TestCategoryService_CreateValidation(t *testing.T) {
	repo := &recordingCategoryRepository{byName: map[string]*domain.Category{}}
	svc := NewCategoryService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "Stationery")
	require.NoError(t, err)

	for name, input := range map[string]string{
		"blank":     " ",
		"too long":  strings.Repeat("x", maxCategoryName+1),
		"duplicate": "Stationery",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, "", input)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, "name", verr.Field)
		})
	}
	assert.Len(t, repo.byName, 1)
}
