package service

import "errors"

// Match service specific errors
var (
	ErrNoQuestions     = errors.New("question bank returned no questions")
	ErrSelfPairing     = errors.New("cannot pair a player with their own match")
	ErrAlreadyPaired   = errors.New("match already has two players")
	ErrNotPending      = errors.New("match is not pending")
	ErrNotInProgress   = errors.New("match is not in progress")
	ErrMatchSettled    = errors.New("match already settled")
	ErrNotParticipant  = errors.New("user is not a player in this match")
	ErrUnknownQuestion = errors.New("question is not part of this match")
	ErrDuplicateAnswer = errors.New("question already answered by this player")
	ErrAllAnswered     = errors.New("player already answered every question")
	ErrSessionClosed   = errors.New("match session already closed")
)
