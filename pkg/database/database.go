package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/logger"
	_ "github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

// Connect 데이터베이스 연결
func Connect(databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 연결 풀 설정
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connected successfully")

	return &DB{db}, nil
}

// schema 대결 엔진이 소유하는 테이블
// questions 테이블은 문제 은행이 관리하며 여기서는 없을 때만 생성한다.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS questions (
		id                 TEXT PRIMARY KEY,
		text               TEXT NOT NULL,
		choices            TEXT[] NOT NULL DEFAULT '{}',
		difficulty         INT NOT NULL DEFAULT 0,
		time_limit_seconds INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS challenge_matches (
		id             UUID PRIMARY KEY,
		player_a_id    TEXT NOT NULL,
		player_a_name  TEXT NOT NULL,
		player_b_id    TEXT,
		player_b_name  TEXT,
		questions      JSONB NOT NULL DEFAULT '[]',
		status         TEXT NOT NULL DEFAULT 'pending',
		result         TEXT,
		winner_id      TEXT,
		score_a        BOOLEAN[] NOT NULL DEFAULT '{}',
		score_b        BOOLEAN[] NOT NULL DEFAULT '{}',
		rating_delta_a INT,
		rating_delta_b INT,
		started_at     TIMESTAMPTZ,
		deadline       TIMESTAMPTZ,
		completed_at   TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_challenge_matches_status ON challenge_matches (status)`,
	`CREATE TABLE IF NOT EXISTS user_ratings (
		user_id    TEXT PRIMARY KEY,
		rating     INT NOT NULL DEFAULT 1200,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema 테이블이 없으면 생성
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close 데이터베이스 연결 종료
func (db *DB) Close() error {
	return db.DB.Close()
}
