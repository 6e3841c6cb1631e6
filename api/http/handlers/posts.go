package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/artem13815/blog/api/http/presenter"
	"github.com/artem13815/blog/pkg/post"
	securityjwt "github.com/artem13815/blog/pkg/security/jwt"
)

type PostsHandler struct {
	uc post.UseCase
}

func NewPostsHandler(uc post.UseCase) *PostsHandler { return &PostsHandler{uc: uc} }

type authorResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type postResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	AuthorID  string          `json:"authorId"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Author    *authorResponse `json:"author,omitempty"`
}

type postListResponse struct {
	Items      []postResponse `json:"items"`
	TotalCount int64          `json:"totalCount"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
}

func toPostResponse(p post.Post) postResponse {
	resp := postResponse{
		ID:        p.ID.String(),
		Title:     p.Title,
		Body:      p.Body,
		AuthorID:  p.AuthorID.String(),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Author != nil {
		resp.Author = &authorResponse{
			ID:    p.Author.ID.String(),
			Name:  p.Author.Name,
			Email: p.Author.Email,
		}
	}
	return resp
}

type createPostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Create stores a new post owned by the authenticated user.
// @Summary Create post
// @Tags    posts
// @Accept  json
// @Produce json
// @Param   input body createPostRequest true "post payload"
// @Security BearerAuth
// @Success 201 {object} postResponse
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Router  /posts [post]
func (h *PostsHandler) Create(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	userIDStr, _ := c.Locals(securityjwt.LocalsUserID).(string)
	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		return presenter.Error(c, http.StatusUnauthorized, "not authorized")
	}

	p, err := h.uc.Create(c.Context(), uid, req.Title, req.Body)
	if err != nil {
		var ve post.ErrValidation
		if errors.As(err, &ve) {
			return presenter.Error(c, http.StatusBadRequest, ve.Error())
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to create post")
	}
	return presenter.JSON(c, http.StatusCreated, toPostResponse(p))
}

// List returns one public page of posts with their authors.
// @Summary List posts
// @Tags    posts
// @Produce json
// @Param   page  query int false "page number (default 1)"
// @Param   limit query int false "page size (default 10)"
// @Success 200 {object} postListResponse
// @Router  /posts [get]
func (h *PostsHandler) List(c *fiber.Ctx) error {
	page, limit := parsePageLimit(c)
	result, err := h.uc.List(c.Context(), page, limit)
	if err != nil {
		return presenter.Error(c, http.StatusInternalServerError, "failed to list posts")
	}
	items := make([]postResponse, 0, len(result.Items))
	for _, p := range result.Items {
		items = append(items, toPostResponse(p))
	}
	return presenter.JSON(c, http.StatusOK, postListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Page:       result.Page,
		Limit:      result.Limit,
	})
}

// GetByID returns a single post with its author.
// @Summary Get post
// @Tags    posts
// @Produce json
// @Param   id path string true "post id (UUID)"
// @Success 200 {object} postResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /posts/{id} [get]
func (h *PostsHandler) GetByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenter.Error(c, http.StatusNotFound, "post not found")
	}
	p, err := h.uc.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			return presenter.Error(c, http.StatusNotFound, "post not found")
		}
		return presenter.Error(c, http.StatusInternalServerError, "failed to load post")
	}
	return presenter.JSON(c, http.StatusOK, toPostResponse(p))
}

type updatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Update patches an owned post. Omitted or empty fields keep their
// previous value.
// @Summary Update post
// @Tags    posts
// @Accept  json
// @Produce json
// @Param   id path string true "post id (UUID)"
// @Param   input body updatePostRequest true "fields to change"
// @Security BearerAuth
// @Success 200 {object} postResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 403 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /posts/{id} [put]
func (h *PostsHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenter.Error(c, http.StatusNotFound, "post not found")
	}
	var req updatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	userIDStr, _ := c.Locals(securityjwt.LocalsUserID).(string)
	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		return presenter.Error(c, http.StatusUnauthorized, "not authorized")
	}

	p, err := h.uc.Update(c.Context(), uid, id, req.Title, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, post.ErrNotFound):
			return presenter.Error(c, http.StatusNotFound, "post not found")
		case errors.Is(err, post.ErrNotAuthor):
			return presenter.Error(c, http.StatusForbidden, "not authorized, not the author")
		default:
			return presenter.Error(c, http.StatusInternalServerError, "failed to update post")
		}
	}
	return presenter.JSON(c, http.StatusOK, toPostResponse(p))
}

// Delete removes an owned post.
// @Summary Delete post
// @Tags    posts
// @Produce json
// @Param   id path string true "post id (UUID)"
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 403 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /posts/{id} [delete]
func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenter.Error(c, http.StatusNotFound, "post not found")
	}
	userIDStr, _ := c.Locals(securityjwt.LocalsUserID).(string)
	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		return presenter.Error(c, http.StatusUnauthorized, "not authorized")
	}

	if err := h.uc.Delete(c.Context(), uid, id); err != nil {
		switch {
		case errors.Is(err, post.ErrNotFound):
			return presenter.Error(c, http.StatusNotFound, "post not found")
		case errors.Is(err, post.ErrNotAuthor):
			return presenter.Error(c, http.StatusForbidden, "not authorized, not the author")
		default:
			return presenter.Error(c, http.StatusInternalServerError, "failed to delete post")
		}
	}
	return presenter.JSON(c, http.StatusOK, fiber.Map{"message": "Post removed"})
}
