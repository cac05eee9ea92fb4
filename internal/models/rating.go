package models

import "time"

// UserRating 사용자 대결 레이팅
type UserRating struct {
	UserID    string    `json:"userId" db:"user_id"`
	Rating    int       `json:"rating" db:"rating"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
