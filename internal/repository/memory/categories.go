package memory

import (
	"context"
	"sort"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

func (q *queries) CreateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	defer q.lock()()

	ts := now()
	row := models.Category{
		ID:           q.st.id(),
		Type:         c.Type,
		Icon:         c.Icon,
		UserID:       c.UserID,
		Translations: append([]models.CategoryTranslation(nil), c.Translations...),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	q.st.categories[row.ID] = row
	return copyCategory(row), nil
}

func (q *queries) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	defer q.lock()()

	c, ok := q.st.categories[id]
	if !ok {
		return nil, nil
	}
	return copyCategory(c), nil
}

// LockCategory is a no-op: every transaction already holds the store lock.
func (q *queries) LockCategory(ctx context.Context, id int) error {
	return nil
}

func (q *queries) UpdateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	defer q.lock()()

	row, ok := q.st.categories[c.ID]
	if !ok {
		return nil, nil
	}
	row.Icon = c.Icon
	row.Translations = append([]models.CategoryTranslation(nil), c.Translations...)
	row.UpdatedAt = now()
	q.st.categories[row.ID] = row
	return copyCategory(row), nil
}

// DeleteCategory cascades to its links and their ingredients.
func (q *queries) DeleteCategory(ctx context.Context, id int) error {
	defer q.lock()()

	delete(q.st.categories, id)
	for linkID, link := range q.st.links {
		if link.CategoryID == id {
			q.st.deleteLink(linkID)
		}
	}
	for ingID, ing := range q.st.ingredients {
		if ing.CategoryID == id {
			delete(q.st.ingredients, ingID)
		}
	}
	return nil
}

func (q *queries) CreateRefrigeratorCategory(ctx context.Context, refrigeratorID, categoryID int) (*models.RefrigeratorCategory, error) {
	defer q.lock()()

	for _, link := range q.st.links {
		if link.RefrigeratorID == refrigeratorID && link.CategoryID == categoryID {
			return nil, repository.ErrUniqueViolation
		}
	}
	row := models.RefrigeratorCategory{
		ID:             q.st.id(),
		RefrigeratorID: refrigeratorID,
		CategoryID:     categoryID,
		CreatedAt:      now(),
	}
	q.st.links[row.ID] = row
	return &row, nil
}

func (q *queries) GetRefrigeratorCategory(ctx context.Context, refrigeratorID, categoryID int) (*models.RefrigeratorCategory, error) {
	defer q.lock()()

	for _, link := range q.st.links {
		if link.RefrigeratorID == refrigeratorID && link.CategoryID == categoryID {
			return &link, nil
		}
	}
	return nil, nil
}

func (q *queries) GetRefrigeratorCategoryByID(ctx context.Context, id int) (*models.RefrigeratorCategory, error) {
	defer q.lock()()

	link, ok := q.st.links[id]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func (q *queries) ListRefrigeratorCategories(ctx context.Context, refrigeratorID int) ([]*models.RefrigeratorCategory, error) {
	defer q.lock()()

	var out []*models.RefrigeratorCategory
	for _, link := range q.st.links {
		if link.RefrigeratorID != refrigeratorID {
			continue
		}
		link := link
		if c, ok := q.st.categories[link.CategoryID]; ok {
			link.Category = copyCategory(c)
		}
		for _, ing := range q.st.sortedIngredients(link.ID) {
			link.Ingredients = append(link.Ingredients, *ing)
		}
		out = append(out, &link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *queries) DeleteRefrigeratorCategory(ctx context.Context, id int) error {
	defer q.lock()()

	q.st.deleteLink(id)
	return nil
}

func (q *queries) CountCategoryLinks(ctx context.Context, categoryID int) (int, error) {
	defer q.lock()()

	count := 0
	for _, link := range q.st.links {
		if link.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (s *state) deleteLink(id int) {
	delete(s.links, id)
	for ingID, ing := range s.ingredients {
		if ing.RefrigeratorCategoryID == id {
			delete(s.ingredients, ingID)
		}
	}
}

func copyCategory(c models.Category) *models.Category {
	c.Translations = append([]models.CategoryTranslation{}, c.Translations...)
	return &c
}
