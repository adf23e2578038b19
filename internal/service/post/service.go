package post

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/devconnect/api/internal/domain"
	"github.com/devconnect/api/internal/repository"
	"github.com/devconnect/api/internal/ws"
)

// Service orchestrates posts, likes and comments.
type Service struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	feed   *ws.Hub
	logger *slog.Logger
}

// New constructs a post service. The feed hub may be nil in tests.
func New(posts repository.PostRepository, users repository.UserRepository, feed *ws.Hub, logger *slog.Logger) Service {
	return Service{posts: posts, users: users, feed: feed, logger: logger}
}

// Create stores a new post stamped with the author's current username and
// avatar, then broadcasts it to feed subscribers.
func (s Service) Create(ctx context.Context, userID, body string) (*domain.Post, error) {
	if strings.TrimSpace(body) == "" {
		return nil, domain.Validation([]string{"Post cannot be empty"})
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	post := &domain.Post{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Avatar:    user.Avatar,
		Body:      body,
		Likes:     make([]domain.Like, 0),
		Comments:  make([]domain.Comment, 0),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	s.logger.Info("post created", "post_id", post.ID, "user_id", user.ID)
	s.broadcast(post)
	return post, nil
}

// List returns all posts, newest first.
func (s Service) List(ctx context.Context) ([]domain.Post, error) {
	return s.posts.ListPosts(ctx)
}

// Get returns one post with its likes and comments.
func (s Service) Get(ctx context.Context, postID string) (*domain.Post, error) {
	return s.posts.GetPostByID(ctx, postID)
}

// Delete removes a post after verifying the caller owns it.
func (s Service) Delete(ctx context.Context, postID, callerID string) error {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	if !domain.IsOwner(post.UserID, callerID) {
		return domain.ErrNotOwner
	}
	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return err
	}
	s.logger.Info("post deleted", "post_id", postID, "user_id", callerID)
	return nil
}

// Like records the caller's like and returns the refreshed like list. The
// insert is conditional at the database, so two simultaneous likes cannot
// clobber each other.
func (s Service) Like(ctx context.Context, postID, callerID string) ([]domain.Like, error) {
	if err := s.posts.AddLike(ctx, postID, callerID); err != nil {
		return nil, err
	}
	return s.posts.ListLikes(ctx, postID)
}

// Unlike removes the caller's like and returns the refreshed like list.
func (s Service) Unlike(ctx context.Context, postID, callerID string) ([]domain.Like, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.posts.RemoveLike(ctx, postID, callerID); err != nil {
		return nil, err
	}
	return s.posts.ListLikes(ctx, postID)
}

// AddComment attaches a comment stamped with the caller's username and avatar
// and returns the post's refreshed comment list.
func (s Service) AddComment(ctx context.Context, postID, callerID, body string) ([]domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, domain.Validation([]string{"Comment cannot be empty"})
	}
	user, err := s.users.GetUserByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}
	comment := &domain.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    user.ID,
		Username:  user.Username,
		Avatar:    user.Avatar,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.posts.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return s.posts.ListComments(ctx, postID)
}

// DeleteComment removes the comment addressed by commentID after verifying the
// caller wrote it. The removal is keyed by the comment's own id, not the
// owner's, so deleting one of several comments by the same author removes
// exactly the one addressed.
func (s Service) DeleteComment(ctx context.Context, postID, commentID, callerID string) ([]domain.Comment, error) {
	comment, err := s.posts.GetCommentByID(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if !domain.IsOwner(comment.UserID, callerID) {
		return nil, domain.ErrNotOwner
	}
	if err := s.posts.DeleteComment(ctx, postID, commentID); err != nil {
		return nil, err
	}
	return s.posts.ListComments(ctx, postID)
}

func (s Service) broadcast(post *domain.Post) {
	if s.feed == nil {
		return
	}
	payload, err := json.Marshal(post)
	if err != nil {
		s.logger.Warn("failed to marshal feed payload", "error", err)
		return
	}
	s.feed.Broadcast(payload)
}
