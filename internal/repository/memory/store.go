// Package memory is an in-process implementation of repository.Store.
// It backs local development with STORE_DRIVER=memory and the service and
// HTTP tests. A transaction holds the store lock for its whole duration and
// works on a copy of the state that replaces the live state on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

type state struct {
	users         map[string]models.User
	refrigerators map[int]models.Refrigerator
	categories    map[int]models.Category
	links         map[int]models.RefrigeratorCategory
	ingredients   map[int]models.Ingredient
	invitations   map[int]models.Invitation
	recipes       map[int]models.Recipe
	favorites     map[favoriteKey]time.Time
	nextID        int
}

func newState() *state {
	return &state{
		users:         make(map[string]models.User),
		refrigerators: make(map[int]models.Refrigerator),
		categories:    make(map[int]models.Category),
		links:         make(map[int]models.RefrigeratorCategory),
		ingredients:   make(map[int]models.Ingredient),
		invitations:   make(map[int]models.Invitation),
		recipes:       make(map[int]models.Recipe),
		favorites:     make(map[favoriteKey]time.Time),
		nextID:        1,
	}
}

func (s *state) clone() *state {
	c := &state{
		users:         make(map[string]models.User, len(s.users)),
		refrigerators: make(map[int]models.Refrigerator, len(s.refrigerators)),
		categories:    make(map[int]models.Category, len(s.categories)),
		links:         make(map[int]models.RefrigeratorCategory, len(s.links)),
		ingredients:   make(map[int]models.Ingredient, len(s.ingredients)),
		invitations:   make(map[int]models.Invitation, len(s.invitations)),
		recipes:       make(map[int]models.Recipe, len(s.recipes)),
		favorites:     make(map[favoriteKey]time.Time, len(s.favorites)),
		nextID:        s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.refrigerators {
		c.refrigerators[k] = v
	}
	for k, v := range s.categories {
		v.Translations = append([]models.CategoryTranslation(nil), v.Translations...)
		c.categories[k] = v
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	for k, v := range s.ingredients {
		c.ingredients[k] = v
	}
	for k, v := range s.invitations {
		c.invitations[k] = v
	}
	for k, v := range s.recipes {
		c.recipes[k] = copyRecipe(v)
	}
	for k, v := range s.favorites {
		c.favorites[k] = v
	}
	return c
}

func (s *state) id() int {
	id := s.nextID
	s.nextID++
	return id
}

// queries implements repository.Queries over one state. mu is nil inside a
// transaction because the transaction already holds the store lock.
type queries struct {
	mu *sync.Mutex
	st *state
}

func (q *queries) lock() func() {
	if q.mu == nil {
		return func() {}
	}
	q.mu.Lock()
	return q.mu.Unlock
}

type Store struct {
	*queries
	mu sync.Mutex
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store seeded with the system categories.
func New() *Store {
	s := &Store{}
	s.queries = &queries{mu: &s.mu, st: newState()}
	seedSystemCategories(s.st)
	return s
}

func (s *Store) WithTx(ctx context.Context, fn func(q repository.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.st.clone()
	if err := fn(&queries{st: working}); err != nil {
		return err
	}
	s.st = working
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func now() time.Time {
	return time.Now().UTC()
}

// systemCategories mirrors the seed migration.
var systemCategories = []struct {
	icon  string
	names [3]string
}{
	{"🥬", [3]string{"채소/과일", "Vegetables/Fruits", "野菜/果物"}},
	{"🥩", [3]string{"육류", "Meat", "肉類"}},
	{"🐟", [3]string{"해산물", "Seafood", "魚介類"}},
	{"🥛", [3]string{"유제품", "Dairy", "乳製品"}},
	{"🥤", [3]string{"음료", "Beverages", "飲料"}},
	{"🧂", [3]string{"조미료", "Seasonings", "調味料"}},
	{"📦", [3]string{"기타", "Others", "その他"}},
}

func seedSystemCategories(st *state) {
	ts := now()
	for _, sc := range systemCategories {
		id := st.id()
		st.categories[id] = models.Category{
			ID:   id,
			Type: models.CategorySystem,
			Icon: sc.icon,
			Translations: []models.CategoryTranslation{
				{Language: models.LanguageKorean, Name: sc.names[0]},
				{Language: models.LanguageEnglish, Name: sc.names[1]},
				{Language: models.LanguageJapanese, Name: sc.names[2]},
			},
			CreatedAt: ts,
			UpdatedAt: ts,
		}
	}
}
