package service

import (
	"context"
	"strings"
	"time"

	"github.com/gitCarrot/OrchAI-sub000/internal/access"
	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

// ListIngredients returns the ingredients of one linked category.
func (s *Service) ListIngredients(ctx context.Context, ident auth.Identity, refrigeratorID, categoryID int) ([]*models.Ingredient, error) {
	if _, err := s.Authorize(ctx, ident, refrigeratorID, access.OpRead); err != nil {
		return nil, err
	}
	link, err := linkFor(ctx, s.store, refrigeratorID, categoryID)
	if err != nil {
		return nil, err
	}
	ingredients, err := s.store.ListIngredients(ctx, link.ID)
	if err != nil {
		return nil, apperr.Internal("failed to list ingredients", err)
	}
	return nonNil(ingredients), nil
}

// CreateIngredient adds an ingredient under the refrigerator's link to
// categoryID. Viewers may not create ingredients.
func (s *Service) CreateIngredient(ctx context.Context, ident auth.Identity, refrigeratorID, categoryID int, req models.CreateIngredientRequest) (*models.Ingredient, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		return nil, err
	}
	unit, err := parseUnit(req.Unit)
	if err != nil {
		return nil, err
	}
	var expiry *time.Time
	if req.ExpiryDate != nil {
		if expiry, err = parseExpiry(*req.ExpiryDate); err != nil {
			return nil, err
		}
	}

	var created *models.Ingredient
	err = s.withTx(ctx, "failed to create ingredient", func(q repository.Queries) error {
		if _, err := s.access.Evaluate(ctx, q, ident, refrigeratorID, access.OpCreateIngredient); err != nil {
			return err
		}
		link, err := linkFor(ctx, q, refrigeratorID, categoryID)
		if err != nil {
			return err
		}
		created, err = q.CreateIngredient(ctx, &models.Ingredient{
			Name:                   name,
			Quantity:               quantity,
			Unit:                   unit,
			ExpiryDate:             expiry,
			RefrigeratorCategoryID: link.ID,
			CategoryID:             link.CategoryID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(models.EventIngredientUpdate, models.ActionCreated, refrigeratorID, ident, created)
	return created, nil
}

// UpdateIngredient applies a partial update. A target link given in the
// request moves the ingredient, and it must belong to the same refrigerator.
func (s *Service) UpdateIngredient(ctx context.Context, ident auth.Identity, refrigeratorID, categoryID, ingredientID int, req models.UpdateIngredientRequest) (*models.Ingredient, error) {
	var updated *models.Ingredient
	err := s.withTx(ctx, "failed to update ingredient", func(q repository.Queries) error {
		if _, err := s.access.Evaluate(ctx, q, ident, refrigeratorID, access.OpWrite); err != nil {
			return err
		}
		link, err := linkFor(ctx, q, refrigeratorID, categoryID)
		if err != nil {
			return err
		}
		ing, err := q.GetIngredient(ctx, ingredientID, link.ID)
		if err != nil {
			return err
		}
		if ing == nil {
			return apperr.ErrIngredientNotFound
		}

		if err := applyIngredientUpdate(ing, req); err != nil {
			return err
		}
		if req.RefrigeratorCategoryID != nil && *req.RefrigeratorCategoryID != link.ID {
			target, err := q.GetRefrigeratorCategoryByID(ctx, *req.RefrigeratorCategoryID)
			if err != nil {
				return err
			}
			if target == nil || target.RefrigeratorID != refrigeratorID {
				return apperr.ErrCategoryNotFound
			}
			ing.RefrigeratorCategoryID = target.ID
			ing.CategoryID = target.CategoryID
		}

		updated, err = q.UpdateIngredient(ctx, ing)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(models.EventIngredientUpdate, models.ActionUpdated, refrigeratorID, ident, updated)
	return updated, nil
}

// DeleteIngredient deletes an ingredient scoped by the refrigerator's link,
// so an id from another refrigerator or category is NotFound.
func (s *Service) DeleteIngredient(ctx context.Context, ident auth.Identity, refrigeratorID, categoryID, ingredientID int) error {
	err := s.withTx(ctx, "failed to delete ingredient", func(q repository.Queries) error {
		if _, err := s.access.Evaluate(ctx, q, ident, refrigeratorID, access.OpWrite); err != nil {
			return err
		}
		link, err := linkFor(ctx, q, refrigeratorID, categoryID)
		if err != nil {
			return err
		}
		deleted, err := q.DeleteIngredient(ctx, ingredientID, link.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.ErrIngredientNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(models.EventIngredientUpdate, models.ActionDeleted, refrigeratorID, ident, map[string]int{"id": ingredientID})
	return nil
}

func applyIngredientUpdate(ing *models.Ingredient, req models.UpdateIngredientRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return apperr.Validation("name cannot be empty")
		}
		ing.Name = name
	}
	if req.Quantity != nil {
		quantity, err := parseQuantity(*req.Quantity)
		if err != nil {
			return err
		}
		ing.Quantity = quantity
	}
	if req.Unit != nil {
		unit, err := parseUnit(*req.Unit)
		if err != nil {
			return err
		}
		ing.Unit = unit
	}
	if req.ExpiryDate != nil {
		expiry, err := parseExpiry(*req.ExpiryDate)
		if err != nil {
			return err
		}
		ing.ExpiryDate = expiry
	}
	return nil
}

func parseQuantity(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !models.ValidQuantity(s) {
		return "", apperr.Validation("quantity must be a positive decimal number")
	}
	return s, nil
}

func parseUnit(s string) (models.Unit, error) {
	s = strings.TrimSpace(s)
	if !models.ValidUnit(s) {
		names := make([]string, len(models.Units))
		for i, u := range models.Units {
			names[i] = string(u)
		}
		return "", apperr.Validation("unit must be one of " + strings.Join(names, ", "))
	}
	return models.Unit(s), nil
}

// parseExpiry accepts RFC 3339 timestamps and plain dates. An empty string
// means no expiry date.
func parseExpiry(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Validation("expiry_date must be an RFC 3339 timestamp or YYYY-MM-DD")
}
