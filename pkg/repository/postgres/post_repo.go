package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/blog/pkg/post"
)

// PostRepository implements post.Repository backed by PostgreSQL (pgx).
type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) (*PostRepository, error) {
	repo := &PostRepository{pool: pool}
	if err := repo.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *PostRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS posts (
			id UUID PRIMARY KEY,
			author_id UUID NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id);
	`)
	return err
}

func (r *PostRepository) Create(ctx context.Context, p post.Post) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO posts (id, author_id, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.AuthorID, p.Title, p.Body, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (post.Post, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT p.id, p.author_id, p.title, p.body, p.created_at, p.updated_at,
			u.id, u.name, u.email
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $1
	`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, err
	}
	return p, nil
}

// List returns one page in creation order plus the total row count.
func (r *PostRepository) List(ctx context.Context, limit, offset int) ([]post.Post, int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.author_id, p.title, p.body, p.created_at, p.updated_at,
			u.id, u.name, u.email
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at ASC, p.id ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (r *PostRepository) Update(ctx context.Context, p post.Post) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE posts SET title = $2, body = $3, updated_at = $4 WHERE id = $1
	`, p.ID, p.Title, p.Body, p.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return post.ErrNotFound
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return post.ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (post.Post, error) {
	var p post.Post
	var a post.Author
	var createdAt, updatedAt time.Time
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &createdAt, &updatedAt,
		&a.ID, &a.Name, &a.Email); err != nil {
		return post.Post{}, err
	}
	p.CreatedAt = createdAt.UTC()
	p.UpdatedAt = updatedAt.UTC()
	p.Author = &a
	return p, nil
}
