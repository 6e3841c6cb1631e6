package post

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Post is a user-owned article. AuthorID is fixed at creation and
// decides who may update or delete the post.
type Post struct {
	ID        uuid.UUID
	AuthorID  uuid.UUID
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Author    *Author
}

// Author is the minimal projection of a user joined onto reads.
type Author struct {
	ID    uuid.UUID
	Name  string
	Email string
}

var (
	ErrNotFound  = errors.New("post not found")
	ErrNotAuthor = errors.New("not the author")
)

// ErrValidation is a simple validation error.
type ErrValidation string

func (e ErrValidation) Error() string { return string(e) }

// Repository abstracts post persistence. Reads include the Author
// projection; List also reports the total row count for pagination.
type Repository interface {
	Create(ctx context.Context, p Post) error
	GetByID(ctx context.Context, id uuid.UUID) (Post, error)
	List(ctx context.Context, limit, offset int) ([]Post, int64, error)
	Update(ctx context.Context, p Post) error
	Delete(ctx context.Context, id uuid.UUID) error
}
