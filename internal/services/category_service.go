package services

import (
	"context"
	"fmt"

	"contas/internal/core"
)

// CategoryService manages the user's spending categories.
type CategoryService struct {
	categories CategoryStore
}

func NewCategoryService(categories CategoryStore) *CategoryService {
	return &CategoryService{categories: categories}
}

// CreateCategory adds a category. Names are unique per user.
func (s *CategoryService) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	cat := core.Category{Name: name, UserID: userID}
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	id, err := s.categories.CreateCategory(ctx, cat)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	cat.ID = id
	return cat, nil
}

// RenameCategory changes a category's name, keeping per-user uniqueness.
func (s *CategoryService) RenameCategory(ctx context.Context, userID, id int64, name string) (core.Category, error) {
	cat, err := s.categories.GetCategory(ctx, id, userID)
	if err != nil {
		return core.Category{}, err
	}
	cat.Name = name
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.categories.UpdateCategory(ctx, cat); err != nil {
		return core.Category{}, fmt.Errorf("rename category: %w", err)
	}
	return cat, nil
}

// DeleteCategory removes a category. Bills that referenced it become
// uncategorized; the store handles the unlinking.
func (s *CategoryService) DeleteCategory(ctx context.Context, userID, id int64) error {
	if _, err := s.categories.GetCategory(ctx, id, userID); err != nil {
		return err
	}
	if err := s.categories.DeleteCategory(ctx, id, userID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// ListCategories returns the user's categories ordered by name.
func (s *CategoryService) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.categories.ListCategories(ctx, userID)
}
