package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	httpapi "github.com/artem13815/blog/api/http"
	"github.com/artem13815/blog/api/http/handlers"
	"github.com/artem13815/blog/pkg/auth"
	"github.com/artem13815/blog/pkg/health"
	"github.com/artem13815/blog/pkg/post"
	securityjwt "github.com/artem13815/blog/pkg/security/jwt"
)

// In-memory repositories backing a full router for end-to-end handler
// tests, no database required.

type memUserRepo struct {
	byID map[uuid.UUID]auth.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[uuid.UUID]auth.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user auth.User) error {
	for _, u := range r.byID {
		if u.Email == user.Email {
			return auth.ErrUserAlreadyExists
		}
	}
	r.byID[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (auth.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (auth.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := r.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	r.byID[id] = u
	return nil
}

type memResetRepo struct {
	tokens []auth.ResetToken
}

func (r *memResetRepo) Create(ctx context.Context, token auth.ResetToken) error {
	r.tokens = append(r.tokens, token)
	return nil
}

func (r *memResetRepo) ListActive(ctx context.Context, now time.Time) ([]auth.ResetToken, error) {
	var active []auth.ResetToken
	for _, t := range r.tokens {
		if t.ExpiresAt.After(now) {
			active = append(active, t)
		}
	}
	return active, nil
}

func (r *memResetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, t := range r.tokens {
		if t.ID == id {
			r.tokens = append(r.tokens[:i], r.tokens[i+1:]...)
			return nil
		}
	}
	return auth.ErrNotFound
}

type memPostRepo struct {
	posts []post.Post
}

func (r *memPostRepo) Create(ctx context.Context, p post.Post) error {
	r.posts = append(r.posts, p)
	return nil
}

func (r *memPostRepo) GetByID(ctx context.Context, id uuid.UUID) (post.Post, error) {
	for _, p := range r.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return post.Post{}, post.ErrNotFound
}

func (r *memPostRepo) List(ctx context.Context, limit, offset int) ([]post.Post, int64, error) {
	total := int64(len(r.posts))
	if offset >= len(r.posts) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(r.posts) {
		end = len(r.posts)
	}
	return r.posts[offset:end], total, nil
}

func (r *memPostRepo) Update(ctx context.Context, p post.Post) error {
	for i := range r.posts {
		if r.posts[i].ID == p.ID {
			r.posts[i] = p
			return nil
		}
	}
	return post.ErrNotFound
}

func (r *memPostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i := range r.posts {
		if r.posts[i].ID == id {
			r.posts = append(r.posts[:i], r.posts[i+1:]...)
			return nil
		}
	}
	return post.ErrNotFound
}

// mailerSpy records the last reset token instead of sending mail.
type mailerSpy struct {
	to    string
	token string
	sent  int
}

func (m *mailerSpy) SendPasswordReset(ctx context.Context, to, token string) error {
	m.to = to
	m.token = token
	m.sent++
	return nil
}

func newTestApp(t *testing.T) (*fiber.App, *mailerSpy, *memUserRepo) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	users := newMemUserRepo()
	resets := &memResetRepo{}
	postRepo := &memPostRepo{}
	mailer := &mailerSpy{}

	gen := securityjwt.NewGenerator("test-secret", "blog-service", time.Hour)
	authUC := auth.NewAuthService(users, resets, gen, mailer, time.Hour, log)
	postUC := post.NewService(postRepo, log)

	app := fiber.New()
	httpapi.Register(app,
		handlers.NewAuthHandler(authUC),
		handlers.NewPostsHandler(postUC),
		handlers.NewHealthHandler(health.NewService()),
		securityjwt.NewAuthMiddleware(gen, users),
	)
	return app, mailer, users
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func registerUser(t *testing.T, app *fiber.App, name, email, password string) (id, token string) {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/register", "", fiber.Map{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	return body["id"].(string), body["token"].(string)
}

func TestHealthEndpoints(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	require.Equal(t, "ready", body["status"])
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	app, _, _ := newTestApp(t)

	id, token := registerUser(t, app, "Alice", "alice@example.com", "secret123")
	require.NotEmpty(t, id)
	require.NotEmpty(t, token)

	// duplicate email rejected
	resp := doJSON(t, app, http.MethodPost, "/api/register", "", fiber.Map{
		"name": "Alice Again", "email": "alice@example.com", "password": "other",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody map[string]string
	decode(t, resp, &errBody)
	require.Equal(t, "user already exists", errBody["message"])

	// malformed email rejected, nothing persisted
	resp = doJSON(t, app, http.MethodPost, "/api/register", "", fiber.Map{
		"name": "Mallory", "email": "not-an-email", "password": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/api/login", "", fiber.Map{
		"email": "not-an-email", "password": "secret123",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// login round trip
	resp = doJSON(t, app, http.MethodPost, "/api/login", "", fiber.Map{
		"email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loginBody map[string]any
	decode(t, resp, &loginBody)
	require.Equal(t, id, loginBody["id"])
	require.NotEmpty(t, loginBody["token"])

	// wrong password and unknown email get the same response
	resp = doJSON(t, app, http.MethodPost, "/api/login", "", fiber.Map{
		"email": "alice@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/api/login", "", fiber.Map{
		"email": "nobody@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// profile with token
	resp = doJSON(t, app, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile map[string]any
	decode(t, resp, &profile)
	require.Equal(t, "alice@example.com", profile["email"])
	require.Equal(t, "Alice", profile["name"])

	// missing and garbage tokens rejected
	resp = doJSON(t, app, http.MethodGet, "/api/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/profile", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegister_MixedCaseEmailNormalized(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/register", "", fiber.Map{
		"name": "Alice", "email": "Alice@Example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	require.Equal(t, "alice@example.com", body["email"])

	// profile reports the same canonical form the register response did
	resp = doJSON(t, app, http.MethodGet, "/api/profile", body["token"].(string), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile map[string]any
	decode(t, resp, &profile)
	require.Equal(t, "alice@example.com", profile["email"])
}

func TestProfile_DeletedAccountRejected(t *testing.T) {
	app, _, users := newTestApp(t)

	id, token := registerUser(t, app, "Alice", "alice@example.com", "secret123")
	delete(users.byID, uuid.MustParse(id))

	// a still-valid token whose account is gone no longer authenticates
	resp := doJSON(t, app, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPostsCRUDAndOwnership(t *testing.T) {
	app, _, _ := newTestApp(t)

	aliceID, aliceToken := registerUser(t, app, "Alice", "alice@example.com", "secret123")
	_, bobToken := registerUser(t, app, "Bob", "bob@example.com", "secret456")

	// unauthenticated create rejected
	resp := doJSON(t, app, http.MethodPost, "/api/posts", "", fiber.Map{
		"title": "t", "body": "b",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// create
	resp = doJSON(t, app, http.MethodPost, "/api/posts", aliceToken, fiber.Map{
		"title": "First post", "body": "Hello world",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]any
	decode(t, resp, &created)
	postID := created["id"].(string)
	require.Equal(t, aliceID, created["authorId"])

	// missing title rejected
	resp = doJSON(t, app, http.MethodPost, "/api/posts", aliceToken, fiber.Map{
		"body": "no title",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// public read
	resp = doJSON(t, app, http.MethodGet, "/api/posts/"+postID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]any
	decode(t, resp, &got)
	require.Equal(t, "First post", got["title"])

	// non-UUID and unknown ids both read as absent
	resp = doJSON(t, app, http.MethodGet, "/api/posts/not-a-uuid", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/posts/"+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// only the author may update or delete
	resp = doJSON(t, app, http.MethodPut, "/api/posts/"+postID, bobToken, fiber.Map{
		"title": "hijacked",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = doJSON(t, app, http.MethodDelete, "/api/posts/"+postID, bobToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// author update patches only the provided fields
	resp = doJSON(t, app, http.MethodPut, "/api/posts/"+postID, aliceToken, fiber.Map{
		"title": "Updated title",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated map[string]any
	decode(t, resp, &updated)
	require.Equal(t, "Updated title", updated["title"])
	require.Equal(t, "Hello world", updated["body"])

	// author delete
	resp = doJSON(t, app, http.MethodDelete, "/api/posts/"+postID, aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/posts/"+postID, "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostsListPagination(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, token := registerUser(t, app, "Alice", "alice@example.com", "secret123")

	for i := 0; i < 15; i++ {
		resp := doJSON(t, app, http.MethodPost, "/api/posts", token, fiber.Map{
			"title": fmt.Sprintf("post %d", i), "body": "body",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	type listBody struct {
		Items      []map[string]any `json:"items"`
		TotalCount int64            `json:"totalCount"`
		Page       int              `json:"page"`
		Limit      int              `json:"limit"`
	}

	resp := doJSON(t, app, http.MethodGet, "/api/posts?page=1&limit=10", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page1 listBody
	decode(t, resp, &page1)
	require.Len(t, page1.Items, 10)
	require.EqualValues(t, 15, page1.TotalCount)
	require.Equal(t, 1, page1.Page)

	resp = doJSON(t, app, http.MethodGet, "/api/posts?page=2&limit=10", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page2 listBody
	decode(t, resp, &page2)
	require.Len(t, page2.Items, 5)
	require.EqualValues(t, 15, page2.TotalCount)

	// no query params falls back to page 1, limit 10
	resp = doJSON(t, app, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var def listBody
	decode(t, resp, &def)
	require.Len(t, def.Items, 10)
	require.Equal(t, 1, def.Page)
	require.Equal(t, 10, def.Limit)
}

func TestPasswordResetFlow(t *testing.T) {
	app, mailer, _ := newTestApp(t)
	registerUser(t, app, "Alice", "alice@example.com", "oldpass123")

	const ack = "If the email exists, a reset link has been sent"

	// unknown email gets the same acknowledgement and sends nothing
	resp := doJSON(t, app, http.MethodPost, "/api/forgot-password", "", fiber.Map{
		"email": "nobody@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	require.Equal(t, ack, body["message"])
	require.Zero(t, mailer.sent)

	// missing email rejected
	resp = doJSON(t, app, http.MethodPost, "/api/forgot-password", "", fiber.Map{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// known email mails a token behind the same acknowledgement
	resp = doJSON(t, app, http.MethodPost, "/api/forgot-password", "", fiber.Map{
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &body)
	require.Equal(t, ack, body["message"])
	require.Equal(t, 1, mailer.sent)
	require.Equal(t, "alice@example.com", mailer.to)
	require.NotEmpty(t, mailer.token)

	// garbage token rejected
	resp = doJSON(t, app, http.MethodPost, "/api/reset-password", "", fiber.Map{
		"token": "bogus", "password": "newpass123",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// mailed token resets the password
	resp = doJSON(t, app, http.MethodPost, "/api/reset-password", "", fiber.Map{
		"token": mailer.token, "password": "newpass123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &body)
	require.Equal(t, "Password reset successfully", body["message"])

	// old password no longer works, new one does
	resp = doJSON(t, app, http.MethodPost, "/api/login", "", fiber.Map{
		"email": "alice@example.com", "password": "oldpass123",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/api/login", "", fiber.Map{
		"email": "alice@example.com", "password": "newpass123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the token is single use
	resp = doJSON(t, app, http.MethodPost, "/api/reset-password", "", fiber.Map{
		"token": mailer.token, "password": "another123",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
