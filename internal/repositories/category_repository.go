package repositories

import (
	"context"
	"fmt"
	"sync"

	"taskflow/internal/models"
)

type CategoryStore interface {
	LoadCategories(ctx context.Context) ([]models.Category, error)
	SaveCategory(ctx context.Context, category models.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// CategoryRepository supplies category metadata to the API layer. Tasks hold
// category ids only; nothing here touches the task collection.
type CategoryRepository struct {
	mu         sync.RWMutex
	categories []models.Category
	newID      func() string
	store      CategoryStore
}

func NewCategoryRepository(initial []models.Category, newID func() string, store CategoryStore) *CategoryRepository {
	if newID == nil {
		newID = NewUUID
	}
	categories := make([]models.Category, len(initial))
	copy(categories, initial)

	return &CategoryRepository{
		categories: categories,
		newID:      newID,
		store:      store,
	}
}

func (r *CategoryRepository) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	categories, err := r.store.LoadCategories(ctx)
	if err != nil {
		return fmt.Errorf("loading categories: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = categories
	return nil
}

func (r *CategoryRepository) GetAll() []models.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Category, len(r.categories))
	copy(out, r.categories)
	return out
}

func (r *CategoryRepository) GetByID(id string) (models.Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.categories[i], true
	}
	return models.Category{}, false
}

func (r *CategoryRepository) Create(ctx context.Context, name, color string) (models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	category := models.Category{ID: r.newID(), Name: name, Color: color}
	if r.indexOf(category.ID) >= 0 {
		return models.Category{}, fmt.Errorf("creating category: generated id %q already in use", category.ID)
	}

	if r.store != nil {
		if err := r.store.SaveCategory(ctx, category); err != nil {
			return models.Category{}, fmt.Errorf("creating category: %w", err)
		}
	}

	r.categories = append(r.categories, category)
	return category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id string, patch models.CategoryPatch) (models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Category{}, models.CategoryNotFound(id)
	}

	updated := r.categories[i]
	patch.Apply(&updated)

	if r.store != nil {
		if err := r.store.SaveCategory(ctx, updated); err != nil {
			return models.Category{}, fmt.Errorf("updating category %s: %w", id, err)
		}
	}

	r.categories[i] = updated
	return updated, nil
}

// Delete leaves tasks that reference the category untouched; consumers
// resolve dangling ids to "no category".
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.CategoryNotFound(id)
	}

	if r.store != nil {
		if err := r.store.DeleteCategory(ctx, id); err != nil {
			return fmt.Errorf("deleting category %s: %w", id, err)
		}
	}

	r.categories = append(r.categories[:i:i], r.categories[i+1:]...)
	return nil
}

func (r *CategoryRepository) indexOf(id string) int {
	for i := range r.categories {
		if r.categories[i].ID == id {
			return i
		}
	}
	return -1
}
