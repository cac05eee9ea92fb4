package models

import "time"

// Question 대결에 출제되는 문항 (id + 채점/시간 메타데이터)
type Question struct {
	ID               string   `json:"id" db:"id"`
	Text             string   `json:"text" db:"text"`
	Choices          []string `json:"choices,omitempty" db:"choices"`
	Difficulty       int      `json:"difficulty" db:"difficulty"`
	TimeLimitSeconds int      `json:"timeLimitSeconds" db:"time_limit_seconds"`
}

// TimeAllowance 문항별 제한 시간, 없으면 fallback
func (q Question) TimeAllowance(fallback time.Duration) time.Duration {
	if q.TimeLimitSeconds <= 0 {
		return fallback
	}
	return time.Duration(q.TimeLimitSeconds) * time.Second
}
