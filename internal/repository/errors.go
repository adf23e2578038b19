package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail indicates the email unique constraint was violated.
	ErrDuplicateEmail = errors.New("repository: email already exists")
	// ErrDuplicateUsername indicates the username unique constraint was violated.
	ErrDuplicateUsername = errors.New("repository: username already exists")
	// ErrAlreadyLiked indicates the caller has already liked the post.
	ErrAlreadyLiked = errors.New("repository: post already liked")
	// ErrNotLiked indicates the caller has no like on the post to remove.
	ErrNotLiked = errors.New("repository: post not liked")
)
