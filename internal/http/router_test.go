package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/devconnect/api/internal/domain"
	"github.com/devconnect/api/internal/repository"
	"github.com/devconnect/api/internal/service/auth"
	"github.com/devconnect/api/internal/service/post"
	"github.com/devconnect/api/internal/service/profile"
	"github.com/devconnect/api/pkg/config"
	jwtpkg "github.com/devconnect/api/pkg/jwt"
)

// memStore is an in-memory stand-in for the postgres repository, implementing
// just enough of its semantics to drive the routes end to end.
type memStore struct {
	users    map[string]*domain.User
	posts    map[string]domain.Post
	likes    map[string]map[string]domain.Like
	comments map[string]map[string]domain.Comment
	profiles map[string]*domain.Profile
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*domain.User),
		posts:    make(map[string]domain.Post),
		likes:    make(map[string]map[string]domain.Like),
		comments: make(map[string]map[string]domain.Comment),
		profiles: make(map[string]*domain.Profile),
	}
}

func (m *memStore) CreateUser(ctx context.Context, user *domain.User) error {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
		if existing.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetUserByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email || user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) DeleteUser(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) CreatePost(ctx context.Context, p *domain.Post) error {
	m.posts[p.ID] = *p
	return nil
}

func (m *memStore) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Likes, _ = m.ListLikes(ctx, id)
	p.Comments, _ = m.ListComments(ctx, id)
	return &p, nil
}

func (m *memStore) ListPosts(ctx context.Context) ([]domain.Post, error) {
	posts := make([]domain.Post, 0, len(m.posts))
	for id := range m.posts {
		p, err := m.GetPostByID(ctx, id)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (m *memStore) DeletePost(ctx context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memStore) DeletePostsByUser(ctx context.Context, userID string) error {
	for id, p := range m.posts {
		if p.UserID == userID {
			delete(m.posts, id)
		}
	}
	return nil
}

func (m *memStore) AddLike(ctx context.Context, postID, userID string) error {
	if _, ok := m.posts[postID]; !ok {
		return repository.ErrNotFound
	}
	if m.likes[postID] == nil {
		m.likes[postID] = make(map[string]domain.Like)
	}
	if _, ok := m.likes[postID][userID]; ok {
		return repository.ErrAlreadyLiked
	}
	m.likes[postID][userID] = domain.Like{PostID: postID, UserID: userID, CreatedAt: time.Now()}
	return nil
}

func (m *memStore) RemoveLike(ctx context.Context, postID, userID string) error {
	if _, ok := m.likes[postID][userID]; !ok {
		return repository.ErrNotLiked
	}
	delete(m.likes[postID], userID)
	return nil
}

func (m *memStore) ListLikes(ctx context.Context, postID string) ([]domain.Like, error) {
	likes := make([]domain.Like, 0)
	for _, like := range m.likes[postID] {
		likes = append(likes, like)
	}
	return likes, nil
}

func (m *memStore) AddComment(ctx context.Context, comment *domain.Comment) error {
	if _, ok := m.posts[comment.PostID]; !ok {
		return repository.ErrNotFound
	}
	if m.comments[comment.PostID] == nil {
		m.comments[comment.PostID] = make(map[string]domain.Comment)
	}
	m.comments[comment.PostID][comment.ID] = *comment
	return nil
}

func (m *memStore) GetCommentByID(ctx context.Context, postID, commentID string) (*domain.Comment, error) {
	comment, ok := m.comments[postID][commentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &comment, nil
}

func (m *memStore) DeleteComment(ctx context.Context, postID, commentID string) error {
	if _, ok := m.comments[postID][commentID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.comments[postID], commentID)
	return nil
}

func (m *memStore) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	comments := make([]domain.Comment, 0)
	for _, comment := range m.comments[postID] {
		comments = append(comments, comment)
	}
	return comments, nil
}

func (m *memStore) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	if existing, ok := m.profiles[p.UserID]; ok {
		updated := *p
		updated.ID = existing.ID
		updated.Experience = existing.Experience
		updated.Education = existing.Education
		m.profiles[p.UserID] = &updated
		return nil
	}
	copied := *p
	copied.Experience = make([]domain.Experience, 0)
	copied.Education = make([]domain.Education, 0)
	m.profiles[p.UserID] = &copied
	return nil
}

func (m *memStore) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	if p, ok := m.profiles[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	profiles := make([]domain.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

func (m *memStore) DeleteProfileByUserID(ctx context.Context, userID string) error {
	delete(m.profiles, userID)
	return nil
}

func (m *memStore) AddExperience(ctx context.Context, exp *domain.Experience) error {
	for _, p := range m.profiles {
		if p.ID == exp.ProfileID {
			p.Experience = append(p.Experience, *exp)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) DeleteExperience(ctx context.Context, profileID, experienceID string) error {
	for _, p := range m.profiles {
		if p.ID != profileID {
			continue
		}
		for i, exp := range p.Experience {
			if exp.ID == experienceID {
				p.Experience = append(p.Experience[:i], p.Experience[i+1:]...)
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) AddEducation(ctx context.Context, edu *domain.Education) error {
	for _, p := range m.profiles {
		if p.ID == edu.ProfileID {
			p.Education = append(p.Education, *edu)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) DeleteEducation(ctx context.Context, profileID, educationID string) error {
	for _, p := range m.profiles {
		if p.ID != profileID {
			continue
		}
		for i, edu := range p.Education {
			if edu.ID == educationID {
				p.Education = append(p.Education[:i], p.Education[i+1:]...)
				return nil
			}
		}
	}
	return repository.ErrNotFound
}

const testSecret = "router-test-secret"

func setupRouter(t *testing.T) (*Router, auth.Service, *memStore) {
	t.Helper()
	store := newMemStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.APIConfig{JWTSecret: testSecret, SessionTokenTTL: 200 * time.Hour}
	authSvc := auth.New(store, log, cfg)
	postSvc := post.New(store, store, nil, log)
	profileSvc := profile.New(store, store, store, log)
	return NewRouter(log, authSvc, postSvc, profileSvc, nil, nil), authSvc, store
}

func doJSON(t *testing.T, router *Router, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return decoded
}

func registerUser(t *testing.T, router *Router, name, username, email, password string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/users", "", map[string]string{
		"name": name, "username": username, "email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	token, _ := decodeBody(t, rec)["token"].(string)
	if token == "" {
		t.Fatalf("register %s: missing token in %s", username, rec.Body.String())
	}
	return token
}

func TestAuthGateRejectsMissingToken(t *testing.T) {
	router, _, _ := setupRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/posts", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "No token, authorization denied" {
		t.Fatalf("unexpected message %v", msg)
	}
}

func TestAuthGateRejectsForeignSignature(t *testing.T) {
	router, _, _ := setupRouter(t)

	forged, err := jwtpkg.GenerateToken("user-1", "some-other-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	rec := doJSON(t, router, http.MethodGet, "/api/posts", forged, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Invalid token" {
		t.Fatalf("unexpected message %v", msg)
	}
}

func TestAuthGatePopulatesIdentity(t *testing.T) {
	router, authSvc, _ := setupRouter(t)

	token := registerUser(t, router, "Ann", "ann1", "ann@x.com", "secret1")
	wantID, err := authSvc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken returned error: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/auth", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["id"] != wantID {
		t.Fatalf("identity echo returned id %v, want %v", body["id"], wantID)
	}
	if _, leaked := body["password_hash"]; leaked {
		t.Fatal("identity echo must not expose the password hash")
	}
}

func TestRegistrationAndLoginScenario(t *testing.T) {
	router, authSvc, _ := setupRouter(t)

	token := registerUser(t, router, "Ann", "ann1", "ann@x.com", "secret1")
	registeredID, err := authSvc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken returned error: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/users", "", map[string]string{
		"name": "Ann", "username": "ann2", "email": "ann@x.com", "password": "secret1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email: expected 400, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Email already exists")) {
		t.Fatalf("duplicate email: expected field-specific conflict, got %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/auth", "", map[string]string{
		"username": "ann1", "password": "wrong",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad password: expected 400, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Invalid username or password")) {
		t.Fatalf("bad password: unexpected body %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/auth", "", map[string]string{
		"username": "ann1", "password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
	loginToken, _ := decodeBody(t, rec)["token"].(string)
	loginID, err := authSvc.VerifyToken(loginToken)
	if err != nil {
		t.Fatalf("VerifyToken returned error: %v", err)
	}
	if loginID != registeredID {
		t.Fatalf("login claim id %q does not match registration id %q", loginID, registeredID)
	}
}

func TestLoginFailureDoesNotRevealWhichCheckFailed(t *testing.T) {
	router, _, _ := setupRouter(t)

	registerUser(t, router, "Ann", "ann1", "ann@x.com", "secret1")

	wrongPassword := doJSON(t, router, http.MethodPost, "/api/auth", "", map[string]string{
		"username": "ann1", "password": "wrong",
	})
	unknownUser := doJSON(t, router, http.MethodPost, "/api/auth", "", map[string]string{
		"username": "ghost", "password": "whatever",
	})
	if wrongPassword.Code != unknownUser.Code {
		t.Fatalf("status codes differ: %d vs %d", wrongPassword.Code, unknownUser.Code)
	}
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("bodies differ: %s vs %s", wrongPassword.Body.String(), unknownUser.Body.String())
	}
}

func TestDeletePostEnforcesOwnership(t *testing.T) {
	router, _, _ := setupRouter(t)

	annToken := registerUser(t, router, "Ann", "ann1", "ann@x.com", "secret1")
	bobToken := registerUser(t, router, "Bob", "bob1", "bob@x.com", "secret2")

	rec := doJSON(t, router, http.MethodPost, "/api/posts", annToken, map[string]string{"text": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create post: expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
	postID, _ := decodeBody(t, rec)["id"].(string)
	if postID == "" {
		t.Fatalf("missing post id in %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/posts/"+postID, bobToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete: expected 403, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "User not authorized" {
		t.Fatalf("unexpected message %v", msg)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/posts/"+postID, annToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestLikeUnlikeFlow(t *testing.T) {
	router, _, _ := setupRouter(t)

	annToken := registerUser(t, router, "Ann", "ann1", "ann@x.com", "secret1")
	bobToken := registerUser(t, router, "Bob", "bob1", "bob@x.com", "secret2")

	rec := doJSON(t, router, http.MethodPost, "/api/posts", annToken, map[string]string{"text": "like me"})
	postID, _ := decodeBody(t, rec)["id"].(string)

	rec = doJSON(t, router, http.MethodPut, "/api/posts/like/"+postID, bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("like: expected 200, got %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPut, "/api/posts/like/"+postID, bobToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second like: expected 400, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Post already liked" {
		t.Fatalf("unexpected message %v", msg)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/posts/unlike/"+postID, bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlike: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/posts/unlike/"+postID, bobToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second unlike: expected 400, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Post has not yet been liked" {
		t.Fatalf("unexpected message %v", msg)
	}
}

func TestProfileMeWithoutProfile(t *testing.T) {
	router, _, _ := setupRouter(t)

	token := registerUser(t, router, "Ann", "ann1", "ann@x.com", "secret1")
	rec := doJSON(t, router, http.MethodGet, "/api/profile/me", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "This user has no profile" {
		t.Fatalf("unexpected message %v", msg)
	}
}

func TestProfileUpsertAndPublicLookup(t *testing.T) {
	router, authSvc, _ := setupRouter(t)

	token := registerUser(t, router, "Ann", "ann1", "ann@x.com", "secret1")
	userID, err := authSvc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken returned error: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/profile", token, map[string]string{
		"status": "Developer", "skills": "go,sql",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert: expected 200, got %d body %s", rec.Code, rec.Body.String())
	}

	// public route, no token
	rec = doJSON(t, router, http.MethodGet, "/api/profile/user/"+userID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public lookup: expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["user_id"]; got != userID {
		t.Fatalf("expected profile for %q, got %v", userID, got)
	}
}

func TestRegisterValidationReportsAllFields(t *testing.T) {
	router, _, _ := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/users", "", map[string]string{
		"name": "", "username": "", "email": "nope", "password": "abc",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Errors []struct {
			Msg string `json:"msg"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Errors) != 4 {
		t.Fatalf("expected 4 field errors, got %+v", body.Errors)
	}
}
