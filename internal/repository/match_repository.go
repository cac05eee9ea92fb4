package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/database"
	"github.com/lib/pq"
)

type MatchRepository struct {
	db *database.DB
}

func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Create 새 대기(pending) 매치 생성
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	questions, err := models.EncodeQuestions(match.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}

	query := `
		INSERT INTO challenge_matches (id, player_a_id, player_a_name, questions, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		match.ID,
		match.PlayerAID,
		match.PlayerAName,
		questions,
		match.Status,
		match.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	return nil
}

// Start 두 번째 플레이어 합류 및 진행 상태 기록
func (r *MatchRepository) Start(ctx context.Context, matchID string, playerB models.Player, startedAt, deadline time.Time) error {
	query := `
		UPDATE challenge_matches
		SET player_b_id = $1,
		    player_b_name = $2,
		    status = 'in_progress',
		    started_at = $3,
		    deadline = $4
		WHERE id = $5 AND status = 'pending'
	`

	res, err := r.db.ExecContext(ctx, query, playerB.ID, playerB.Name, startedAt, deadline, matchID)
	if err != nil {
		return fmt.Errorf("failed to start match: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to start match %s: no pending row", matchID)
	}

	return nil
}

// Settle 매치 결과 기록 (이미 완료된 매치는 건드리지 않음)
func (r *MatchRepository) Settle(ctx context.Context, s models.Settlement) error {
	query := `
		UPDATE challenge_matches
		SET status = 'completed',
		    result = $1,
		    winner_id = $2,
		    score_a = $3,
		    score_b = $4,
		    rating_delta_a = $5,
		    rating_delta_b = $6,
		    completed_at = $7
		WHERE id = $8 AND status <> 'completed'
	`

	_, err := r.db.ExecContext(ctx, query,
		string(s.Result),
		s.WinnerID,
		pq.BoolArray(nonNilBools(s.ScoreA)),
		pq.BoolArray(nonNilBools(s.ScoreB)),
		s.RatingDeltaA,
		s.RatingDeltaB,
		s.CompletedAt,
		s.MatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to settle match: %w", err)
	}

	return nil
}

// Cancel 상대를 찾지 못한 대기 매치 취소
func (r *MatchRepository) Cancel(ctx context.Context, matchID string) error {
	query := `UPDATE challenge_matches SET status = 'cancelled' WHERE id = $1 AND status = 'pending'`

	if _, err := r.db.ExecContext(ctx, query, matchID); err != nil {
		return fmt.Errorf("failed to cancel match: %w", err)
	}

	return nil
}

// FindByID ID로 매치 찾기 (없으면 nil, nil)
func (r *MatchRepository) FindByID(ctx context.Context, id string) (*models.Match, error) {
	query := `
		SELECT id, player_a_id, player_a_name, player_b_id, player_b_name,
		       questions, status, result, winner_id, score_a, score_b,
		       rating_delta_a, rating_delta_b,
		       started_at, deadline, completed_at, created_at
		FROM challenge_matches
		WHERE id = $1
	`

	var (
		match      models.Match
		questions  []byte
		result     sql.NullString
		scoreA     pq.BoolArray
		scoreB     pq.BoolArray
		deltaA     sql.NullInt64
		deltaB     sql.NullInt64
		startedAt  sql.NullTime
		deadline   sql.NullTime
		finishedAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&match.ID,
		&match.PlayerAID,
		&match.PlayerAName,
		&match.PlayerBID,
		&match.PlayerBName,
		&questions,
		&match.Status,
		&result,
		&match.WinnerID,
		&scoreA,
		&scoreB,
		&deltaA,
		&deltaB,
		&startedAt,
		&deadline,
		&finishedAt,
		&match.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find match: %w", err)
	}

	if match.Questions, err = models.DecodeQuestions(questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions of match %s: %w", id, err)
	}

	match.Result = models.MatchResult(result.String)
	match.ScoreA = []bool(scoreA)
	match.ScoreB = []bool(scoreB)
	match.RatingDeltaA = nullIntPtr(deltaA)
	match.RatingDeltaB = nullIntPtr(deltaB)
	match.StartedAt = nullTimePtr(startedAt)
	match.Deadline = nullTimePtr(deadline)
	match.CompletedAt = nullTimePtr(finishedAt)

	return &match, nil
}

func nonNilBools(b []bool) []bool {
	if b == nil {
		return []bool{}
	}
	return b
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
