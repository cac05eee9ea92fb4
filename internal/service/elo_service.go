package service

import "math"

// DefaultKFactor 대결 레이팅 기본 K-factor
const DefaultKFactor = 10.0

// ELOService ELO 레이팅 계산 서비스 (고정 K)
type ELOService struct {
	kFactor float64 // 레이팅 변동 폭
}

// NewELOService ELO 서비스 생성 (kFactor <= 0 이면 기본값)
func NewELOService(kFactor float64) *ELOService {
	if kFactor <= 0 {
		kFactor = DefaultKFactor
	}
	return &ELOService{kFactor: kFactor}
}

// KFactor 현재 K-factor
func (s *ELOService) KFactor() float64 {
	return s.kFactor
}

// CalculateNewRatings 매치 결과에 따른 새로운 ELO 레이팅 계산
// result: 1.0 (A 승), 0.5 (무승부), 0.0 (B 승)
func (s *ELOService) CalculateNewRatings(ratingA, ratingB int, result float64) (newA, newB, changeA, changeB int) {
	// 기대 승률 계산
	expectedA := s.expectedScore(float64(ratingA), float64(ratingB))
	expectedB := 1.0 - expectedA

	newA = int(math.Round(float64(ratingA) + s.kFactor*(result-expectedA)))
	newB = int(math.Round(float64(ratingB) + s.kFactor*((1.0-result)-expectedB)))

	changeA = newA - ratingA
	changeB = newB - ratingB

	return
}

// expectedScore ELO에 기반한 기대 승률 계산
func (s *ELOService) expectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}
