package memory

import (
	"context"
	"sort"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

func (q *queries) CreateIngredient(ctx context.Context, i *models.Ingredient) (*models.Ingredient, error) {
	defer q.lock()()

	ts := now()
	row := *i
	row.ID = q.st.id()
	row.CreatedAt = ts
	row.UpdatedAt = ts
	q.st.ingredients[row.ID] = row
	return &row, nil
}

func (q *queries) GetIngredient(ctx context.Context, id, refrigeratorCategoryID int) (*models.Ingredient, error) {
	defer q.lock()()

	ing, ok := q.st.ingredients[id]
	if !ok || ing.RefrigeratorCategoryID != refrigeratorCategoryID {
		return nil, nil
	}
	return &ing, nil
}

func (q *queries) ListIngredients(ctx context.Context, refrigeratorCategoryID int) ([]*models.Ingredient, error) {
	defer q.lock()()

	return q.st.sortedIngredients(refrigeratorCategoryID), nil
}

func (q *queries) UpdateIngredient(ctx context.Context, i *models.Ingredient) (*models.Ingredient, error) {
	defer q.lock()()

	row, ok := q.st.ingredients[i.ID]
	if !ok {
		return nil, nil
	}
	row.Name = i.Name
	row.Quantity = i.Quantity
	row.Unit = i.Unit
	row.ExpiryDate = i.ExpiryDate
	row.RefrigeratorCategoryID = i.RefrigeratorCategoryID
	row.CategoryID = i.CategoryID
	row.UpdatedAt = now()
	q.st.ingredients[row.ID] = row
	return &row, nil
}

func (q *queries) DeleteIngredient(ctx context.Context, id, refrigeratorCategoryID int) (bool, error) {
	defer q.lock()()

	ing, ok := q.st.ingredients[id]
	if !ok || ing.RefrigeratorCategoryID != refrigeratorCategoryID {
		return false, nil
	}
	delete(q.st.ingredients, id)
	return true, nil
}

func (s *state) sortedIngredients(refrigeratorCategoryID int) []*models.Ingredient {
	var out []*models.Ingredient
	for _, ing := range s.ingredients {
		if ing.RefrigeratorCategoryID == refrigeratorCategoryID {
			ing := ing
			out = append(out, &ing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
