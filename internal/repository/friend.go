package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-tap-game/internal/model"
)

// Friend errors.
var (
	ErrAlreadyFriends    = errors.New("users are already friends")
	ErrRequestNotPending = errors.New("friend request not found or already settled")
	ErrDuplicateRequest  = errors.New("a pending request between these users already exists")
)

// FriendRepository handles friend requests and the symmetric relation
// pairs they produce. Acceptance writes both directions of a relation
// in one transaction so the symmetry invariant can never be observed
// broken.
type FriendRepository struct {
	pool *pgxpool.Pool
}

// NewFriendRepository creates a new FriendRepository instance.
func NewFriendRepository(pool *pgxpool.Pool) *FriendRepository {
	return &FriendRepository{pool: pool}
}

// CreateRequest opens a pending friend request. Returns
// ErrAlreadyFriends if a relation already exists and
// ErrDuplicateRequest if a pending request already exists in either
// direction.
func (r *FriendRepository) CreateRequest(ctx context.Context, fromID, toID int64, fromName string) (*model.FriendRequest, error) {
	related, err := r.AreFriends(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if related {
		return nil, ErrAlreadyFriends
	}

	const reverse = `
		SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE from_id = $1 AND to_id = $2 AND status = 'pending'
		)
	`
	var pending bool
	if err := r.pool.QueryRow(ctx, reverse, toID, fromID).Scan(&pending); err != nil {
		return nil, fmt.Errorf("failed to check reverse request: %w", err)
	}
	if pending {
		return nil, ErrDuplicateRequest
	}

	const insert = `
		INSERT INTO friend_requests (from_id, to_id, from_name, status, created_at)
		VALUES ($1, $2, $3, 'pending', NOW())
		RETURNING id, from_id, to_id, from_name, status, created_at
	`
	var req model.FriendRequest
	err = r.pool.QueryRow(ctx, insert, fromID, toID, fromName).Scan(
		&req.ID, &req.FromID, &req.ToID, &req.FromName, &req.Status, &req.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateRequest
		}
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}
	return &req, nil
}

// Accept settles a pending request addressed to toID and creates the
// symmetric relation pair. The request row transitions to accepted and
// never reopens. Returns ErrRequestNotPending if the request does not
// exist, is addressed to somebody else, or was already settled.
func (r *FriendRepository) Accept(ctx context.Context, requestID, toID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const settle = `
		UPDATE friend_requests
		SET status = 'accepted'
		WHERE id = $1 AND to_id = $2 AND status = 'pending'
		RETURNING from_id
	`
	var fromID int64
	if err := tx.QueryRow(ctx, settle, requestID, toID).Scan(&fromID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRequestNotPending
		}
		return fmt.Errorf("failed to settle request: %w", err)
	}

	const relate = `
		INSERT INTO friend_relations (user_id, friend_id, added_at)
		VALUES ($1, $2, NOW()), ($2, $1, NOW())
		ON CONFLICT DO NOTHING
	`
	if _, err := tx.Exec(ctx, relate, fromID, toID); err != nil {
		return fmt.Errorf("failed to create relation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit acceptance: %w", err)
	}
	return nil
}

// Reject settles a pending request as rejected. Terminal.
func (r *FriendRepository) Reject(ctx context.Context, requestID, toID int64) error {
	const settle = `
		UPDATE friend_requests
		SET status = 'rejected'
		WHERE id = $1 AND to_id = $2 AND status = 'pending'
	`
	result, err := r.pool.Exec(ctx, settle, requestID, toID)
	if err != nil {
		return fmt.Errorf("failed to reject request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRequestNotPending
	}
	return nil
}

// PendingFor lists pending requests addressed to a user, oldest first.
func (r *FriendRepository) PendingFor(ctx context.Context, toID int64) ([]*model.FriendRequest, error) {
	const query = `
		SELECT id, from_id, to_id, from_name, status, created_at
		FROM friend_requests
		WHERE to_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, toID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.FriendRequest
	for rows.Next() {
		var req model.FriendRequest
		err := rows.Scan(&req.ID, &req.FromID, &req.ToID, &req.FromName, &req.Status, &req.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}
	return requests, nil
}

// AreFriends reports whether a relation exists between two users.
// Symmetry means checking one direction suffices.
func (r *FriendRepository) AreFriends(ctx context.Context, userID, friendID int64) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM friend_relations WHERE user_id = $1 AND friend_id = $2
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, friendID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check relation: %w", err)
	}
	return exists, nil
}

// Friends lists a user's friends with their display names, most recent
// first.
func (r *FriendRepository) Friends(ctx context.Context, userID int64, limit int) ([]*model.ScoreRank, error) {
	const query = `
		SELECT fr.friend_id, a.display_name, a.total_score
		FROM friend_relations fr
		JOIN accounts a ON fr.friend_id = a.telegram_id
		WHERE fr.user_id = $1
		ORDER BY fr.added_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []*model.ScoreRank
	for rows.Next() {
		var f model.ScoreRank
		if err := rows.Scan(&f.UserID, &f.DisplayName, &f.Score); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friends: %w", err)
	}
	return friends, nil
}
