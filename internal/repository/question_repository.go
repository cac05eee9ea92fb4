package repository

import (
	"context"
	"fmt"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/database"
	"github.com/lib/pq"
)

type QuestionRepository struct {
	db *database.DB
}

func NewQuestionRepository(db *database.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// DrawRandom 무작위 문항 count개 추출 (문제 은행이 작으면 더 적게 반환)
func (r *QuestionRepository) DrawRandom(ctx context.Context, count int) ([]models.Question, error) {
	query := `
		SELECT id, text, choices, difficulty, time_limit_seconds
		FROM questions
		ORDER BY random()
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var choices pq.StringArray
		if err := rows.Scan(&q.ID, &q.Text, &choices, &q.Difficulty, &q.TimeLimitSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Choices = []string(choices)
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}

	return questions, nil
}
