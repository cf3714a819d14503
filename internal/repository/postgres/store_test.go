package postgres

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(db, logger), mock
}

var invitationCols = []string{"id", "refrigerator_id", "owner_id", "invited_email", "status", "role", "created_at", "updated_at"}

func TestGetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, email, created_at, updated_at FROM users`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "created_at", "updated_at"}))

	user, err := store.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureUserUpserts(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("user-1", "o@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "created_at", "updated_at"}).
			AddRow("user-1", "o@x.com", now, now))

	user, err := store.EnsureUser(context.Background(), "user-1", "o@x.com")
	require.NoError(t, err)
	assert.Equal(t, "o@x.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvitationMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO shared_refrigerators`).
		WithArgs(1, "owner", "a@x.com", "pending", "viewer").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_shared_refrigerators_live"})

	_, err := store.CreateInvitation(context.Background(), &models.Invitation{
		RefrigeratorID: 1,
		OwnerID:        "owner",
		InvitedEmail:   "a@x.com",
		Status:         models.StatusPending,
		Role:           models.RoleViewer,
	})
	assert.ErrorIs(t, err, repository.ErrUniqueViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefrigeratorMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO refrigerators`).
		WithArgs("second", nil, "owner", false, "virtual").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := store.CreateRefrigerator(context.Background(), &models.Refrigerator{
		Name: "second", OwnerID: "owner", Type: models.RefrigeratorVirtual,
	})
	assert.ErrorIs(t, err, repository.ErrUniqueViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOtherErrorsAreNotUniqueViolations(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO shared_refrigerators`).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := store.CreateInvitation(context.Background(), &models.Invitation{Status: models.StatusPending, Role: models.RoleViewer})
	require.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrUniqueViolation))
}

func TestGetInvitationForUpdateLocksRow(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`FROM shared_refrigerators s WHERE s.id = \$1 FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(invitationCols).
			AddRow(7, 1, "owner", "a@x.com", "pending", "admin", now, now))

	inv, err := store.GetInvitationForUpdate(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, models.StatusPending, inv.Status)
	assert.Equal(t, models.RoleAdmin, inv.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCommit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("owner").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(q repository.Queries) error {
		return q.LockOwner(context.Background(), "owner")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollback(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM refrigerator_categories`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(q repository.Queries) error {
		if err := q.DeleteRefrigeratorCategory(context.Background(), 3); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteIngredientScopedByLink(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM ingredients WHERE id = \$1 AND refrigerator_category_id = \$2`).
		WithArgs(10, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := store.DeleteIngredient(context.Background(), 10, 4)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountCategoryLinks(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM refrigerator_categories WHERE category_id = \$1`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := store.CountCategoryLinks(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRefrigeratorCategoriesAssemblesChildren(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`FROM refrigerator_categories rc JOIN categories c`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "refrigerator_id", "category_id", "created_at",
			"c_id", "type", "icon", "user_id", "c_created_at", "c_updated_at",
		}).
			AddRow(11, 1, 1, now, 1, "system", "🥬", nil, now, now).
			AddRow(12, 1, 20, now, 20, "custom", "🍕", "owner", now, now))

	mock.ExpectQuery(`FROM category_translations ct`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"category_id", "language", "name"}).
			AddRow(1, "en", "Vegetables/Fruits").
			AddRow(20, "en", "Snacks"))

	mock.ExpectQuery(`FROM ingredients i JOIN refrigerator_categories rc`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "quantity", "unit", "expiry_date",
			"refrigerator_category_id", "category_id", "created_at", "updated_at",
		}).
			AddRow(100, "carrot", "3", "piece", nil, 11, 1, now, now))

	links, err := store.ListRefrigeratorCategories(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, models.CategorySystem, links[0].Category.Type)
	assert.Nil(t, links[0].Category.UserID)
	assert.Equal(t, "Vegetables/Fruits", links[0].Category.Translations[0].Name)
	require.Len(t, links[0].Ingredients, 1)
	assert.Equal(t, "3", links[0].Ingredients[0].Quantity)
	assert.Nil(t, links[0].Ingredients[0].ExpiryDate)

	require.NotNil(t, links[1].Category.UserID)
	assert.Equal(t, "owner", *links[1].Category.UserID)
	assert.Empty(t, links[1].Ingredients)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCategoryReplacesTranslations(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`UPDATE categories`).
		WithArgs(20, "🍩").
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "icon", "user_id", "created_at", "updated_at"}).
			AddRow(20, "custom", "🍩", "owner", now, now))
	mock.ExpectExec(`DELETE FROM category_translations WHERE category_id = \$1`).
		WithArgs(20).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO category_translations`).
		WithArgs(20, "ko", "간식").
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, err := store.UpdateCategory(context.Background(), &models.Category{
		ID:           20,
		Icon:         "🍩",
		Translations: []models.CategoryTranslation{{Language: models.LanguageKorean, Name: "간식"}},
	})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "🍩", c.Icon)
	assert.Len(t, c.Translations, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReceivedInvitationsJoinsNames(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	cols := append(append([]string{}, invitationCols...), "name", "owner_email")
	mock.ExpectQuery(`FROM shared_refrigerators s JOIN refrigerators r`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(3, 1, "owner", "a@x.com", "pending", "viewer", now, now, "Home", "o@x.com"))

	invs, err := store.ListReceivedInvitations(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "Home", invs[0].RefrigeratorName)
	assert.Equal(t, "o@x.com", invs[0].OwnerEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockCategoryForUpdate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id FROM categories WHERE id = \$1 FOR UPDATE`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// A category already gone is not an error.
	assert.NoError(t, store.LockCategory(context.Background(), 20))

	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(21).
		WillReturnError(errors.New("connection reset"))
	assert.Error(t, store.LockCategory(context.Background(), 21))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddFavoriteReportsExistingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO recipe_favorites .* ON CONFLICT \(recipe_id, user_id\) DO NOTHING`).
		WithArgs(7, "fan").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO recipe_favorites`).
		WithArgs(7, "fan").
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := store.AddFavorite(context.Background(), 7, "fan")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.AddFavorite(context.Background(), 7, "fan")
	require.NoError(t, err)
	assert.False(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustFavoriteCountNeverGoesNegative(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`SET favorite_count = GREATEST\(favorite_count \+ \$2, 0\)`).
		WithArgs(7, -1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.AdjustFavoriteCount(context.Background(), 7, -1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecipeForUpdateMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM recipes r WHERE r.id = \$1 FOR UPDATE`).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r, err := store.GetRecipeForUpdate(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.NoError(t, mock.ExpectationsWereMet())
}
