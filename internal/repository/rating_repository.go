package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/database"
)

type RatingRepository struct {
	db *database.DB
}

func NewRatingRepository(db *database.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// GetRating 사용자 레이팅 조회 (레코드가 없으면 nil, nil)
func (r *RatingRepository) GetRating(ctx context.Context, userID string) (*int, error) {
	query := `SELECT rating FROM user_ratings WHERE user_id = $1`

	var rating int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&rating)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}

	return &rating, nil
}

// UpdateRating 사용자 레이팅 갱신 (없으면 생성)
func (r *RatingRepository) UpdateRating(ctx context.Context, userID string, rating int) error {
	query := `
		INSERT INTO user_ratings (user_id, rating, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET rating = EXCLUDED.rating, updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, userID, rating); err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	return nil
}

// EnsureRating 레이팅 레코드가 없으면 기본값으로 생성
func (r *RatingRepository) EnsureRating(ctx context.Context, userID string, defaultRating int) error {
	query := `
		INSERT INTO user_ratings (user_id, rating)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, userID, defaultRating); err != nil {
		return fmt.Errorf("failed to ensure rating: %w", err)
	}

	return nil
}

// Top 상위 레이팅 목록
func (r *RatingRepository) Top(ctx context.Context, limit int) ([]models.UserRating, error) {
	query := `
		SELECT user_id, rating, updated_at
		FROM user_ratings
		ORDER BY rating DESC, user_id
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []models.UserRating
	for rows.Next() {
		var ur models.UserRating
		if err := rows.Scan(&ur.UserID, &ur.Rating, &ur.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, ur)
	}

	return ratings, rows.Err()
}
