package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/churnboard/internal/middleware"
	"github.com/hitoshi/churnboard/internal/model"
	"github.com/hitoshi/churnboard/internal/query"
)

// PredictionServiceInterface は予測ハンドラーが必要とするサービスインターフェース。
type PredictionServiceInterface interface {
	// Submit は顧客属性を検証し、予測器に問い合わせ、結果を永続化する。
	Submit(ctx context.Context, userID string, input model.CustomerRecord) (*model.SessionWithCustomer, error)
	// ListSessions はユーザーの予測履歴をフィルタ・検索・ソート適用済みで返す。
	ListSessions(ctx context.Context, userID string, params query.Params) ([]model.SessionWithCustomer, error)
	// DeleteSession は予測セッションを削除する。孤児となったCustomerRecordも削除された場合はtrueを返す。
	DeleteSession(ctx context.Context, userID, sessionID string) (bool, error)
	// ClearSessions はユーザーの予測履歴を全件削除する。
	ClearSessions(ctx context.Context, userID string) error
}

// PredictionHandler は予測実行と予測履歴管理のHTTPハンドラー。
type PredictionHandler struct {
	service PredictionServiceInterface
}

// NewPredictionHandler はPredictionHandlerを生成する。
func NewPredictionHandler(service PredictionServiceInterface) *PredictionHandler {
	return &PredictionHandler{
		service: service,
	}
}

// --- リクエスト/レスポンス型 ---

// predictRequest は予測実行リクエストのボディ。
// 数値項目はポインタ型とし、未入力（null）と0を区別する。
type predictRequest struct {
	CustomerName     string   `json:"customer_name"`
	Gender           string   `json:"gender"`
	SeniorCitizen    string   `json:"senior_citizen"`
	Partner          string   `json:"partner"`
	Dependents       string   `json:"dependents"`
	Tenure           *int     `json:"tenure"`
	PhoneService     string   `json:"phone_service"`
	MultipleLines    string   `json:"multiple_lines"`
	InternetService  string   `json:"internet_service"`
	OnlineSecurity   string   `json:"online_security"`
	OnlineBackup     string   `json:"online_backup"`
	DeviceProtection string   `json:"device_protection"`
	TechSupport      string   `json:"tech_support"`
	StreamingTV      string   `json:"streaming_tv"`
	StreamingMovies  string   `json:"streaming_movies"`
	Contract         string   `json:"contract"`
	PaperlessBilling string   `json:"paperless_billing"`
	PaymentMethod    string   `json:"payment_method"`
	MonthlyCharges   *float64 `json:"monthly_charges"`
	TotalCharges     *float64 `json:"total_charges"`
}

// customerResponse は保存済みCustomerRecordのレスポンス。
type customerResponse struct {
	ID               string   `json:"id"`
	CustomerName     string   `json:"customer_name"`
	Gender           string   `json:"gender"`
	SeniorCitizen    string   `json:"senior_citizen"`
	Partner          string   `json:"partner"`
	Dependents       string   `json:"dependents"`
	Tenure           *int     `json:"tenure"`
	PhoneService     string   `json:"phone_service"`
	MultipleLines    string   `json:"multiple_lines"`
	InternetService  string   `json:"internet_service"`
	OnlineSecurity   string   `json:"online_security"`
	OnlineBackup     string   `json:"online_backup"`
	DeviceProtection string   `json:"device_protection"`
	TechSupport      string   `json:"tech_support"`
	StreamingTV      string   `json:"streaming_tv"`
	StreamingMovies  string   `json:"streaming_movies"`
	Contract         string   `json:"contract"`
	PaperlessBilling string   `json:"paperless_billing"`
	PaymentMethod    string   `json:"payment_method"`
	MonthlyCharges   *float64 `json:"monthly_charges"`
	TotalCharges     *float64 `json:"total_charges"`
}

// sessionResponse は予測セッション1件のレスポンス。
type sessionResponse struct {
	ID                string           `json:"id"`
	Outcome           string           `json:"outcome"`
	Confidence        float64          `json:"confidence"`
	KeyFactors        []string         `json:"key_factors"`
	ModelVersion      string           `json:"model_version"`
	APIResponseTimeMs *float64         `json:"api_response_time_ms"`
	CreatedAt         time.Time        `json:"created_at"`
	Customer          customerResponse `json:"customer"`
}

// sessionListResponse は予測履歴一覧のレスポンス。
type sessionListResponse struct {
	Sessions []sessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}

// apiErrorResponse は統一エラーレスポンスのフォーマット。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Predict は顧客属性を受け取り解約予測を実行する。
// POST /api/predict
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "リクエスト形式を確認してください。",
		})
		return
	}

	session, err := h.service.Submit(r.Context(), userID, toCustomerRecord(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toSessionResponse(*session))
}

// ListSessions はユーザーの予測履歴一覧を返す。
// GET /api/sessions?filter=all|churn|no-churn&sort=newest|oldest|confidence-high|confidence-low&search=xxx
func (h *PredictionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	params, err := query.ParseParams(
		r.URL.Query().Get("filter"),
		r.URL.Query().Get("sort"),
		r.URL.Query().Get("search"),
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), userID, params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := sessionListResponse{
		Sessions: make([]sessionResponse, len(sessions)),
		Total:    len(sessions),
	}
	for i, s := range sessions {
		resp.Sessions[i] = toSessionResponse(s)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// DeleteSession は予測セッションを1件削除する。
// DELETE /api/sessions/:id
func (h *PredictionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	sessionID := chi.URLParam(r, "id")
	if _, err := h.service.DeleteSession(r.Context(), userID, sessionID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearSessions はユーザーの予測履歴を全件削除する。
// DELETE /api/sessions
func (h *PredictionHandler) ClearSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.ClearSessions(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toCustomerRecord はリクエストボディをドメインモデルに変換する。
func toCustomerRecord(req predictRequest) model.CustomerRecord {
	return model.CustomerRecord{
		Name:             req.CustomerName,
		Gender:           req.Gender,
		SeniorCitizen:    req.SeniorCitizen,
		Partner:          req.Partner,
		Dependents:       req.Dependents,
		Tenure:           req.Tenure,
		PhoneService:     req.PhoneService,
		MultipleLines:    req.MultipleLines,
		InternetService:  req.InternetService,
		OnlineSecurity:   req.OnlineSecurity,
		OnlineBackup:     req.OnlineBackup,
		DeviceProtection: req.DeviceProtection,
		TechSupport:      req.TechSupport,
		StreamingTV:      req.StreamingTV,
		StreamingMovies:  req.StreamingMovies,
		Contract:         req.Contract,
		PaperlessBilling: req.PaperlessBilling,
		PaymentMethod:    req.PaymentMethod,
		MonthlyCharges:   req.MonthlyCharges,
		TotalCharges:     req.TotalCharges,
	}
}

// toSessionResponse はSessionWithCustomerからAPIレスポンスに変換する。
func toSessionResponse(s model.SessionWithCustomer) sessionResponse {
	keyFactors := s.KeyFactors
	if keyFactors == nil {
		keyFactors = []string{}
	}

	return sessionResponse{
		ID:                s.ID,
		Outcome:           string(s.Outcome),
		Confidence:        s.Confidence,
		KeyFactors:        keyFactors,
		ModelVersion:      s.ModelVersion,
		APIResponseTimeMs: s.APIResponseTimeMs,
		CreatedAt:         s.CreatedAt,
		Customer: customerResponse{
			ID:               s.Customer.ID,
			CustomerName:     s.Customer.Name,
			Gender:           s.Customer.Gender,
			SeniorCitizen:    s.Customer.SeniorCitizen,
			Partner:          s.Customer.Partner,
			Dependents:       s.Customer.Dependents,
			Tenure:           s.Customer.Tenure,
			PhoneService:     s.Customer.PhoneService,
			MultipleLines:    s.Customer.MultipleLines,
			InternetService:  s.Customer.InternetService,
			OnlineSecurity:   s.Customer.OnlineSecurity,
			OnlineBackup:     s.Customer.OnlineBackup,
			DeviceProtection: s.Customer.DeviceProtection,
			TechSupport:      s.Customer.TechSupport,
			StreamingTV:      s.Customer.StreamingTV,
			StreamingMovies:  s.Customer.StreamingMovies,
			Contract:         s.Customer.Contract,
			PaperlessBilling: s.Customer.PaperlessBilling,
			PaymentMethod:    s.Customer.PaymentMethod,
			MonthlyCharges:   s.Customer.MonthlyCharges,
			TotalCharges:     s.Customer.TotalCharges,
		},
	}
}

// writeUnauthorized は認証エラーレスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidFilter, model.ErrCodeInvalidSort, "INVALID_REQUEST":
		return http.StatusBadRequest
	case model.ErrCodeSessionNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodePredictorError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
