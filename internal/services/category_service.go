package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finledger/internal/auth"
	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// CategoryService handles the shared category taxonomy. The listing is
// cached under a single global key; any mutation drops it.
type CategoryService struct {
	storage *storage.SQLiteRepository
	cache   cache.Store
	listTTL time.Duration
	logger  *log.Logger
}

func NewCategoryService(storage *storage.SQLiteRepository, cacheStore cache.Store, listTTL time.Duration, logger *log.Logger) *CategoryService {
	return &CategoryService{
		storage: storage,
		cache:   cacheStore,
		listTTL: listTTL,
		logger:  logger.WithComponent(log.ComponentCategory),
	}
}

// List returns all categories ordered by name. The second return value
// reports whether the result came from cache.
func (s *CategoryService) List(ctx context.Context, caller *auth.Identity) ([]core.Category, bool, error) {
	if !auth.CanAct(caller, auth.ResourceCategory, auth.ActionRead, 0) {
		return nil, false, core.ErrForbidden
	}

	if raw, ok := s.cache.Get(ctx, cache.CategoriesKey); ok {
		var categories []core.Category
		if err := json.Unmarshal([]byte(raw), &categories); err == nil {
			return categories, true, nil
		}
		// Corrupt entry; drop it and fall through to the store.
		s.cache.Delete(ctx, cache.CategoriesKey)
	}

	categories, err := s.storage.ListCategories(ctx)
	if err != nil {
		return nil, false, err
	}

	if raw, err := json.Marshal(categories); err == nil {
		s.cache.Set(ctx, cache.CategoriesKey, string(raw), s.listTTL)
	}
	return categories, false, nil
}

func (s *CategoryService) Create(ctx context.Context, caller *auth.Identity, name string) (core.Category, error) {
	if !auth.CanAct(caller, auth.ResourceCategory, auth.ActionCreate, 0) {
		return core.Category{}, core.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, fmt.Errorf("%w: category name is required", core.ErrValidation)
	}

	category, err := s.storage.CreateCategory(ctx, name)
	if err != nil {
		return core.Category{}, err
	}

	s.invalidateList(ctx)
	s.logger.InfoContext(ctx, "Category created",
		log.FieldOperation, log.OpCreate,
		log.FieldCategoryID, category.ID,
		"name", category.Name)
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, caller *auth.Identity, id int64, name string) (core.Category, error) {
	if !auth.CanAct(caller, auth.ResourceCategory, auth.ActionUpdate, 0) {
		return core.Category{}, core.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, fmt.Errorf("%w: category name is required", core.ErrValidation)
	}

	category, err := s.storage.UpdateCategory(ctx, id, name)
	if err != nil {
		return core.Category{}, err
	}

	s.invalidateList(ctx)
	s.logger.InfoContext(ctx, "Category updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldCategoryID, category.ID,
		"name", category.Name)
	return category, nil
}

// Delete removes a category. Transactions that referenced it keep their
// rows and become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, caller *auth.Identity, id int64) error {
	if !auth.CanAct(caller, auth.ResourceCategory, auth.ActionDelete, 0) {
		return core.ErrForbidden
	}

	if err := s.storage.DeleteCategory(ctx, id); err != nil {
		return err
	}

	s.invalidateList(ctx)
	s.logger.InfoContext(ctx, "Category deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldCategoryID, id)
	return nil
}

func (s *CategoryService) invalidateList(ctx context.Context) {
	s.cache.Delete(ctx, cache.CategoriesKey)
}
