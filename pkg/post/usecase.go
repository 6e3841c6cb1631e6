package post

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// UseCase encapsulates post CRUD with ownership checks.
type UseCase interface {
	Create(ctx context.Context, authorID uuid.UUID, title, body string) (Post, error)
	List(ctx context.Context, page, limit int) (Page, error)
	GetByID(ctx context.Context, id uuid.UUID) (Post, error)
	Update(ctx context.Context, callerID, id uuid.UUID, title, body string) (Post, error)
	Delete(ctx context.Context, callerID, id uuid.UUID) error
}

// Page is one page of posts plus pagination metadata.
type Page struct {
	Items      []Post
	TotalCount int64
	Page       int
	Limit      int
}

type service struct {
	repo Repository
	log  *logrus.Logger
}

func NewService(repo Repository, log *logrus.Logger) UseCase {
	return &service{repo: repo, log: log}
}

func (s *service) Create(ctx context.Context, authorID uuid.UUID, title, body string) (Post, error) {
	if strings.TrimSpace(title) == "" {
		return Post{}, ErrValidation("title is required")
	}
	if strings.TrimSpace(body) == "" {
		return Post{}, ErrValidation("body is required")
	}
	now := time.Now().UTC()
	p := Post{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Post{}, err
	}
	s.log.WithField("post_id", p.ID).Info("post created")
	return p, nil
}

// List defaults page/limit to 1/10 when absent or non-positive. No
// upper bound is enforced on limit.
func (s *service) List(ctx context.Context, page, limit int) (Page, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	items, total, err := s.repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, TotalCount: total, Page: page, Limit: limit}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (Post, error) {
	return s.repo.GetByID(ctx, id)
}

// Update patches title/body of an owned post. Empty fields keep their
// previous value, so a post cannot be patched to an empty string.
func (s *service) Update(ctx context.Context, callerID, id uuid.UUID, title, body string) (Post, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if p.AuthorID != callerID {
		return Post{}, ErrNotAuthor
	}
	if title != "" {
		p.Title = title
	}
	if body != "" {
		p.Body = body
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return Post{}, err
	}
	p.Author = nil
	return p, nil
}

func (s *service) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorID != callerID {
		return ErrNotAuthor
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField("post_id", id).Info("post deleted")
	return nil
}
