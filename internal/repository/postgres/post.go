package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/devconnect/api/internal/domain"
	"github.com/devconnect/api/internal/repository"
)

const (
	postColumns    = `id, user_id, username, avatar, body, created_at`
	commentColumns = `id, post_id, user_id, username, avatar, body, created_at`
)

// CreatePost inserts a post.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	const query = `INSERT INTO posts (id, user_id, username, avatar, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, post.ID, post.UserID, post.Username, post.Avatar, post.Body, post.CreatedAt)
	return err
}

// GetPostByID fetches a post together with its likes and comments.
func (r *Repository) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var p domain.Post
	if err := row.Scan(&p.ID, &p.UserID, &p.Username, &p.Avatar, &p.Body, &p.CreatedAt); err != nil {
		return nil, asNotFound(err)
	}
	likes, err := r.ListLikes(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	comments, err := r.ListComments(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Likes = likes
	p.Comments = comments
	return &p, nil
}

// ListPosts returns every post, newest first, with likes and comments attached.
func (r *Repository) ListPosts(ctx context.Context) ([]domain.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]domain.Post, 0)
	index := make(map[string]int)
	ids := make([]string, 0)
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Username, &p.Avatar, &p.Body, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Likes = make([]domain.Like, 0)
		p.Comments = make([]domain.Comment, 0)
		index[p.ID] = len(posts)
		ids = append(ids, p.ID)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return posts, nil
	}

	likeRows, err := r.pool.Query(ctx, `SELECT post_id, user_id, created_at FROM post_likes WHERE post_id = ANY($1::uuid[]) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	defer likeRows.Close()
	for likeRows.Next() {
		var l domain.Like
		if err := likeRows.Scan(&l.PostID, &l.UserID, &l.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[l.PostID]; ok {
			posts[i].Likes = append(posts[i].Likes, l)
		}
	}
	if err := likeRows.Err(); err != nil {
		return nil, err
	}

	commentRows, err := r.pool.Query(ctx, `SELECT `+commentColumns+` FROM post_comments WHERE post_id = ANY($1::uuid[]) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	defer commentRows.Close()
	for commentRows.Next() {
		var c domain.Comment
		if err := commentRows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Avatar, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[c.PostID]; ok {
			posts[i].Comments = append(posts[i].Comments, c)
		}
	}
	return posts, commentRows.Err()
}

// DeletePost removes a post; likes and comments cascade.
func (r *Repository) DeletePost(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return asNotFound(err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeletePostsByUser removes every post authored by the user.
func (r *Repository) DeletePostsByUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE user_id = $1`, userID)
	return err
}

// AddLike records a like as a single conditional insert. The composite primary
// key makes concurrent likes safe: exactly one caller wins, the rest observe
// ErrAlreadyLiked.
func (r *Repository) AddLike(ctx context.Context, postID, userID string) error {
	const query = `INSERT INTO post_likes (post_id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (post_id, user_id) DO NOTHING`
	ct, err := r.pool.Exec(ctx, query, postID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return repository.ErrNotFound
		}
		return asNotFound(err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrAlreadyLiked
	}
	return nil
}

// RemoveLike deletes the caller's like in one statement.
func (r *Repository) RemoveLike(ctx context.Context, postID, userID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return asNotFound(err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotLiked
	}
	return nil
}

// ListLikes returns the likes on a post, newest first.
func (r *Repository) ListLikes(ctx context.Context, postID string) ([]domain.Like, error) {
	rows, err := r.pool.Query(ctx, `SELECT post_id, user_id, created_at FROM post_likes WHERE post_id = $1 ORDER BY created_at DESC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	likes := make([]domain.Like, 0)
	for rows.Next() {
		var l domain.Like
		if err := rows.Scan(&l.PostID, &l.UserID, &l.CreatedAt); err != nil {
			return nil, err
		}
		likes = append(likes, l)
	}
	return likes, rows.Err()
}

// AddComment inserts a comment.
func (r *Repository) AddComment(ctx context.Context, comment *domain.Comment) error {
	const query = `INSERT INTO post_comments (id, post_id, user_id, username, avatar, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, comment.ID, comment.PostID, comment.UserID, comment.Username, comment.Avatar, comment.Body, comment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return repository.ErrNotFound
		}
		return asNotFound(err)
	}
	return nil
}

// GetCommentByID fetches one comment scoped to its post.
func (r *Repository) GetCommentByID(ctx context.Context, postID, commentID string) (*domain.Comment, error) {
	const query = `SELECT ` + commentColumns + ` FROM post_comments WHERE post_id = $1 AND id = $2`
	row := r.pool.QueryRow(ctx, query, postID, commentID)
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Avatar, &c.Body, &c.CreatedAt); err != nil {
		return nil, asNotFound(err)
	}
	return &c, nil
}

// DeleteComment removes the comment addressed by its own id, scoped to the post.
func (r *Repository) DeleteComment(ctx context.Context, postID, commentID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM post_comments WHERE post_id = $1 AND id = $2`, postID, commentID)
	if err != nil {
		return asNotFound(err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListComments returns the comments on a post, newest first.
func (r *Repository) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+commentColumns+` FROM post_comments WHERE post_id = $1 ORDER BY created_at DESC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0)
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Avatar, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
