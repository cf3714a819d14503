package service

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/access"
	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

// ListCategories returns the refrigerator's links with their category,
// translations and ingredients.
func (s *Service) ListCategories(ctx context.Context, ident auth.Identity, refrigeratorID int) ([]*models.RefrigeratorCategory, error) {
	if _, err := s.Authorize(ctx, ident, refrigeratorID, access.OpRead); err != nil {
		return nil, err
	}
	links, err := s.store.ListRefrigeratorCategories(ctx, refrigeratorID)
	if err != nil {
		return nil, apperr.Internal("failed to list categories", err)
	}
	return nonNil(links), nil
}

// AttachCategory links an existing category into the refrigerator, or
// creates a custom category and links it, in one transaction.
func (s *Service) AttachCategory(ctx context.Context, ident auth.Identity, refrigeratorID int, req models.AttachCategoryRequest) (*models.RefrigeratorCategory, error) {
	links, err := s.AttachCategories(ctx, ident, refrigeratorID, []models.AttachCategoryRequest{req})
	if err != nil {
		return nil, err
	}
	return links[0], nil
}

// AttachCategories attaches every item in order and returns the links. Either
// all items are attached or none is.
func (s *Service) AttachCategories(ctx context.Context, ident auth.Identity, refrigeratorID int, reqs []models.AttachCategoryRequest) ([]*models.RefrigeratorCategory, error) {
	if len(reqs) == 0 {
		return nil, apperr.Validation("at least one category is required")
	}

	links := make([]*models.RefrigeratorCategory, 0, len(reqs))
	err := s.withTx(ctx, "failed to attach categories", func(q repository.Queries) error {
		d, err := s.access.Evaluate(ctx, q, ident, refrigeratorID, access.OpWrite)
		if err != nil {
			return err
		}
		for _, req := range reqs {
			link, err := s.attach(ctx, q, ident, d.Refrigerator, req)
			if err != nil {
				return err
			}
			links = append(links, link)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"refrigerator_id": refrigeratorID,
		"user_id":         ident.UserID,
		"count":           len(links),
	}).Info("Categories attached")
	s.publish(models.EventCategoryUpdate, models.ActionCreated, refrigeratorID, ident, links)
	return links, nil
}

func (s *Service) attach(ctx context.Context, q repository.Queries, ident auth.Identity, r *models.Refrigerator, req models.AttachCategoryRequest) (*models.RefrigeratorCategory, error) {
	var category *models.Category
	if req.CategoryID != nil {
		c, err := q.GetCategory(ctx, *req.CategoryID)
		if err != nil {
			return nil, err
		}
		// Custom categories belong to their author; only the author's or the
		// owner's refrigerators may link them.
		if c == nil || (c.Type == models.CategoryCustom && !ownsCategory(c, ident.UserID, r.OwnerID)) {
			return nil, apperr.ErrCategoryNotFound
		}
		category = c

		existing, err := q.GetRefrigeratorCategory(ctx, r.ID, c.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			existing.Category = c
			return existing, nil
		}
	} else {
		c, err := newCategory(req, ident.UserID)
		if err != nil {
			return nil, err
		}
		category, err = q.CreateCategory(ctx, c)
		if err != nil {
			return nil, err
		}
	}

	link, err := q.CreateRefrigeratorCategory(ctx, r.ID, category.ID)
	if err != nil {
		return nil, err
	}
	link.Category = category
	return link, nil
}

func newCategory(req models.AttachCategoryRequest, userID string) (*models.Category, error) {
	switch models.CategoryType(req.Type) {
	case "", models.CategoryCustom:
	case models.CategorySystem:
		return nil, apperr.Validation("system categories cannot be created")
	default:
		return nil, apperr.Validation("type must be custom")
	}

	translations, err := cleanTranslations(req.Translations)
	if err != nil {
		return nil, err
	}
	if len(translations) == 0 {
		return nil, apperr.Validation("at least one translation name is required")
	}

	icon := strings.TrimSpace(req.Icon)
	if icon == "" {
		icon = models.DefaultCategoryIcon
	}
	return &models.Category{
		Type:         models.CategoryCustom,
		Icon:         icon,
		UserID:       &userID,
		Translations: translations,
	}, nil
}

// UpdateCategory replaces the icon and, when translations are given, the
// whole translation set of a linked category. The category row is shared,
// so every refrigerator linking it sees the change. Blank names are dropped
// and at least one name must remain.
func (s *Service) UpdateCategory(ctx context.Context, ident auth.Identity, refrigeratorID, categoryID int, req models.UpdateCategoryRequest) (*models.Category, error) {
	var updated *models.Category
	err := s.withTx(ctx, "failed to update category", func(q repository.Queries) error {
		if _, err := s.access.Evaluate(ctx, q, ident, refrigeratorID, access.OpWrite); err != nil {
			return err
		}
		if _, err := linkFor(ctx, q, refrigeratorID, categoryID); err != nil {
			return err
		}
		c, err := q.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if c == nil {
			return apperr.ErrCategoryNotFound
		}

		if req.Icon != nil {
			icon := strings.TrimSpace(*req.Icon)
			if icon == "" {
				return apperr.Validation("icon cannot be empty")
			}
			c.Icon = icon
		}
		if req.Translations != nil {
			translations, err := cleanTranslations(req.Translations)
			if err != nil {
				return err
			}
			if len(translations) == 0 {
				if c.Type == models.CategorySystem {
					return apperr.ErrTranslationRequired
				}
				return apperr.Validation("at least one translation name is required")
			}
			c.Translations = translations
		}

		updated, err = q.UpdateCategory(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(models.EventCategoryUpdate, models.ActionUpdated, refrigeratorID, ident, updated)
	return updated, nil
}

// DetachCategory removes the category's link from the refrigerator together
// with the link's ingredients. A custom category whose last link is gone is
// deleted in the same transaction. System categories are never deleted.
func (s *Service) DetachCategory(ctx context.Context, ident auth.Identity, refrigeratorID, categoryID int) error {
	removed := false
	err := s.withTx(ctx, "failed to detach category", func(q repository.Queries) error {
		if _, err := s.access.Evaluate(ctx, q, ident, refrigeratorID, access.OpWrite); err != nil {
			return err
		}
		link, err := linkFor(ctx, q, refrigeratorID, categoryID)
		if err != nil {
			return err
		}
		c, err := q.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if c != nil && c.Type == models.CategorySystem && !s.opts.AllowSystemDetach {
			return apperr.ErrSystemCategoryImmutable
		}

		removed, err = unlinkCategory(ctx, q, link)
		return err
	})
	if err != nil {
		return err
	}

	if removed {
		s.metrics.CategoryCleanupsTotal.Inc()
	}
	s.logger.WithFields(logrus.Fields{
		"refrigerator_id":  refrigeratorID,
		"category_id":      categoryID,
		"user_id":          ident.UserID,
		"category_removed": removed,
	}).Info("Category detached")
	s.publish(models.EventCategoryUpdate, models.ActionDeleted, refrigeratorID, ident, map[string]int{"category_id": categoryID})
	return nil
}

// unlinkCategory deletes one link and then its category when that was the
// last link to a custom category. The category row is locked before the link
// goes, so concurrent unlinks of the same category count each other's deletes.
func unlinkCategory(ctx context.Context, q repository.Queries, link *models.RefrigeratorCategory) (bool, error) {
	if err := q.LockCategory(ctx, link.CategoryID); err != nil {
		return false, err
	}
	if err := q.DeleteRefrigeratorCategory(ctx, link.ID); err != nil {
		return false, err
	}
	return releaseCategory(ctx, q, link.CategoryID)
}

// lockCategories locks several categories in id order.
func lockCategories(ctx context.Context, q repository.Queries, links []*models.RefrigeratorCategory) error {
	ids := make([]int, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.CategoryID)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if err := q.LockCategory(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// releaseCategory deletes a custom category once no link references it. It
// must run after the link deletion, in the same transaction, with the
// category locked.
func releaseCategory(ctx context.Context, q repository.Queries, categoryID int) (bool, error) {
	c, err := q.GetCategory(ctx, categoryID)
	if err != nil {
		return false, err
	}
	if c == nil || c.Type != models.CategoryCustom {
		return false, nil
	}
	remaining, err := q.CountCategoryLinks(ctx, categoryID)
	if err != nil {
		return false, err
	}
	if remaining > 0 {
		return false, nil
	}
	return true, q.DeleteCategory(ctx, categoryID)
}

func ownsCategory(c *models.Category, userIDs ...string) bool {
	if c.UserID == nil {
		return false
	}
	for _, id := range userIDs {
		if *c.UserID == id {
			return true
		}
	}
	return false
}

// cleanTranslations drops blank names and rejects unknown or repeated
// languages.
func cleanTranslations(in []models.TranslationInput) ([]models.CategoryTranslation, error) {
	out := make([]models.CategoryTranslation, 0, len(in))
	seen := make(map[models.Language]bool, len(in))
	for _, t := range in {
		lang := models.Language(t.Language)
		switch lang {
		case models.LanguageKorean, models.LanguageEnglish, models.LanguageJapanese:
		default:
			return nil, apperr.Validation("language must be one of ko, en, ja")
		}
		if seen[lang] {
			return nil, apperr.Validation("each language may appear once")
		}
		seen[lang] = true

		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		out = append(out, models.CategoryTranslation{Language: lang, Name: name})
	}
	return out, nil
}
