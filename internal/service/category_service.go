package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/domain"
	"github.com/xinodeprinz/edstock-server/internal/repository"
)

const maxCategoryName = 100

// CategoryService seeds the categories products are filed under
type CategoryService interface {
	Create(ctx context.Context, id, name string) (*domain.Category, error)
}

type categoryService struct {
	categories repository.CategoryRepository
	logger     *zap.Logger
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(categories repository.CategoryRepository, logger *zap.Logger) CategoryService {
	return &categoryService{categories: categories, logger: logger}
}

// Create stores a category, generating an ID when none is given
func (s *categoryService) Create(ctx context.Context, id, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, invalid("name", "is required")
	case len(name) > maxCategoryName:
		return nil, invalid("name", "must be at most %d characters", maxCategoryName)
	}

	category := &domain.Category{CategoryID: strings.TrimSpace(id), Name: name}
	if category.CategoryID == "" {
		category.CategoryID = uuid.NewString()
	}

	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrCategoryAlreadyExists) {
			return nil, invalid("name", "a category with this name already exists")
		}
		return nil, err
	}

	s.logger.Info("Category created", zap.String("category_id", category.CategoryID), zap.String("name", name))
	return category, nil
}
