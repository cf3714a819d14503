package memory

import (
	"context"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

func (q *queries) GetUser(ctx context.Context, id string) (*models.User, error) {
	defer q.lock()()

	u, ok := q.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (q *queries) EnsureUser(ctx context.Context, id, email string) (*models.User, error) {
	defer q.lock()()

	ts := now()
	u, ok := q.st.users[id]
	if !ok {
		u = models.User{ID: id, Email: email, CreatedAt: ts, UpdatedAt: ts}
	} else if email != "" && u.Email != email {
		u.Email = email
		u.UpdatedAt = ts
	}
	q.st.users[id] = u
	return &u, nil
}
