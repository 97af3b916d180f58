package handler

import (
	"context"

	"github.com/hitoshi/churnboard/internal/prediction"
	"github.com/hitoshi/churnboard/internal/stats"
	"github.com/hitoshi/churnboard/internal/user"
)

// StatsServiceAdapter は stats.Service を StatsServiceInterface に適合させるアダプタ。
type StatsServiceAdapter struct {
	svc *stats.Service
}

// NewStatsServiceAdapter はStatsServiceAdapterを生成する。
func NewStatsServiceAdapter(svc *stats.Service) *StatsServiceAdapter {
	return &StatsServiceAdapter{svc: svc}
}

// GetDashboard はダッシュボード統計をhandlerレスポンス型で返す。
func (a *StatsServiceAdapter) GetDashboard(ctx context.Context, userID string) (*dashboardResponse, error) {
	dashboard, err := a.svc.GetDashboard(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := toDashboardResponse(dashboard)
	return &resp, nil
}

// toDashboardResponse はドメインのDashboardをhandlerのレスポンス型に変換する。
func toDashboardResponse(d *stats.Dashboard) dashboardResponse {
	recent := make([]recentSessionResponse, len(d.RecentSessions))
	for i, s := range d.RecentSessions {
		recent[i] = recentSessionResponse{
			ID:             s.ID,
			Outcome:        string(s.Outcome),
			Confidence:     s.Confidence,
			CreatedAt:      s.CreatedAt,
			CustomerName:   s.Customer.Name,
			Contract:       s.Customer.Contract,
			MonthlyCharges: s.Customer.MonthlyCharges,
			Tenure:         s.Customer.Tenure,
		}
	}

	return dashboardResponse{
		TotalCount:        d.TotalCount,
		ChurnCount:        d.ChurnCount,
		NoChurnCount:      d.NoChurnCount,
		AverageConfidence: d.AverageConfidence,
		CurrentMonthCount: d.CurrentMonthCount,
		RecentSessions:    recent,
	}
}

// --- compile-time interface checks ---

var _ StatsServiceInterface = (*StatsServiceAdapter)(nil)
var _ PredictionServiceInterface = (*prediction.Service)(nil)
var _ UserServiceInterface = (*user.Service)(nil)
