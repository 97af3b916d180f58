// Package stats は予測履歴からダッシュボード統計を導出する。
//
// 統計は保存済みセッションからその都度計算され、別テーブルには保持しない。
// 集計自体は副作用なしの純粋関数として実装し、サービス層が
// リポジトリからの取得と現在時刻の供給を担う。
package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hitoshi/churnboard/internal/model"
	"github.com/hitoshi/churnboard/internal/repository"
)

// recentLimit はダッシュボードに表示する直近セッションの件数。
const recentLimit = 5

// Dashboard はダッシュボード統計の集計結果。
type Dashboard struct {
	// TotalCount は保存済みセッションの総数。
	TotalCount int
	// ChurnCount は解約予測のセッション数。
	ChurnCount int
	// NoChurnCount は非解約予測のセッション数。常に TotalCount - ChurnCount。
	NoChurnCount int
	// AverageConfidence は全セッションの確信度平均を四捨五入した整数。
	// セッションが存在しない場合は0。
	AverageConfidence int
	// CurrentMonthCount は今月（月初0時以降）に作成されたセッション数。
	CurrentMonthCount int
	// RecentSessions は作成日時の降順で最大5件のセッション。
	RecentSessions []model.SessionWithCustomer
}

// Compute はセッション一覧からダッシュボード統計を計算する。
// sessionsは作成日時の降順であることを前提とする（リポジトリの返却順）。
// nowは今月の判定基準となる現在時刻。月初はnowのロケーションで解釈する。
func Compute(sessions []model.SessionWithCustomer, now time.Time) Dashboard {
	d := Dashboard{
		TotalCount:     len(sessions),
		RecentSessions: []model.SessionWithCustomer{},
	}

	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var confidenceSum float64
	for _, s := range sessions {
		if s.Outcome == model.OutcomeChurn {
			d.ChurnCount++
		}
		confidenceSum += s.Confidence
		if !s.CreatedAt.Before(startOfMonth) {
			d.CurrentMonthCount++
		}
	}
	d.NoChurnCount = d.TotalCount - d.ChurnCount

	if d.TotalCount > 0 {
		d.AverageConfidence = int(math.Round(confidenceSum / float64(d.TotalCount)))
	}

	limit := recentLimit
	if len(sessions) < limit {
		limit = len(sessions)
	}
	d.RecentSessions = append(d.RecentSessions, sessions[:limit]...)

	return d
}

// Service はダッシュボード統計のサービス層。
type Service struct {
	sessionRepo repository.PredictionSessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(sessionRepo repository.PredictionSessionRepository) *Service {
	return &Service{sessionRepo: sessionRepo}
}

// GetDashboard はユーザーの予測履歴からダッシュボード統計を計算して返す。
func (s *Service) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	sessions, err := s.sessionRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("予測履歴の取得に失敗しました: %w", err)
	}

	d := Compute(sessions, time.Now())
	return &d, nil
}
