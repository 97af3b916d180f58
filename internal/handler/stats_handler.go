package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/churnboard/internal/middleware"
)

// StatsServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type StatsServiceInterface interface {
	// GetDashboard はユーザーの予測履歴から導出したダッシュボード統計を返す。
	GetDashboard(ctx context.Context, userID string) (*dashboardResponse, error)
}

// StatsHandler はダッシュボード統計のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{
		service: service,
	}
}

// --- レスポンス型 ---

// recentSessionResponse はダッシュボードの直近セッションのサマリー。
type recentSessionResponse struct {
	ID             string    `json:"id"`
	Outcome        string    `json:"outcome"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
	CustomerName   string    `json:"customer_name"`
	Contract       string    `json:"contract"`
	MonthlyCharges *float64  `json:"monthly_charges"`
	Tenure         *int      `json:"tenure"`
}

// dashboardResponse はダッシュボード統計のレスポンス。
type dashboardResponse struct {
	TotalCount        int                     `json:"total_count"`
	ChurnCount        int                     `json:"churn_count"`
	NoChurnCount      int                     `json:"no_churn_count"`
	AverageConfidence int                     `json:"average_confidence"`
	CurrentMonthCount int                     `json:"current_month_count"`
	RecentSessions    []recentSessionResponse `json:"recent_sessions"`
}

// GetDashboard はダッシュボード統計を返す。
// GET /api/dashboard
func (h *StatsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	dashboard, err := h.service.GetDashboard(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dashboard)
}
