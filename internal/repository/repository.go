package repository

import (
	"context"

	"github.com/devconnect/api/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PostRepository persists posts, likes and comments.
type PostRepository interface {
	CreatePost(ctx context.Context, post *domain.Post) error
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	ListPosts(ctx context.Context) ([]domain.Post, error)
	DeletePost(ctx context.Context, id string) error
	DeletePostsByUser(ctx context.Context, userID string) error

	// AddLike records the like atomically and fails with ErrAlreadyLiked when
	// the (post, user) pair already exists. RemoveLike is its inverse and
	// fails with ErrNotLiked when there is nothing to remove.
	AddLike(ctx context.Context, postID, userID string) error
	RemoveLike(ctx context.Context, postID, userID string) error
	ListLikes(ctx context.Context, postID string) ([]domain.Like, error)

	AddComment(ctx context.Context, comment *domain.Comment) error
	GetCommentByID(ctx context.Context, postID, commentID string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID string) error
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
}

// ProfileRepository persists profiles with their experience and education.
type ProfileRepository interface {
	UpsertProfile(ctx context.Context, profile *domain.Profile) error
	GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	DeleteProfileByUserID(ctx context.Context, userID string) error

	AddExperience(ctx context.Context, exp *domain.Experience) error
	DeleteExperience(ctx context.Context, profileID, experienceID string) error
	AddEducation(ctx context.Context, edu *domain.Education) error
	DeleteEducation(ctx context.Context, profileID, educationID string) error
}
