package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/churnboard/internal/middleware"
	"github.com/hitoshi/churnboard/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetProfile はユーザーのプロフィールを返す。
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	// UpdateProfile は氏名を更新し、更新後のプロフィールを返す。
	UpdateProfile(ctx context.Context, userID, firstName, lastName string) (*model.User, error)
	// Withdraw はユーザーの退会処理を実行する。
	// 予測セッション、顧客レコード、ログインセッションを削除したうえでユーザー行を削除する。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// --- リクエスト/レスポンス型 ---

// profileRequest はプロフィール更新リクエストのボディ。
type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// profileResponse はユーザープロフィールのレスポンス。
type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetProfile はログイン中ユーザーのプロフィールを返す。
// GET /api/users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(user))
}

// UpdateProfile はログイン中ユーザーの氏名を更新する。
// PUT /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	h.updateProfile(w, r, http.StatusOK)
}

// Onboarding は初回ログイン時のプロフィール登録を処理する。
// 更新と同じ冪等なパスで氏名を設定する。
// POST /api/users/onboarding
func (h *UserHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	h.updateProfile(w, r, http.StatusCreated)
}

// updateProfile はプロフィール更新の共通処理。
func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request, successStatus int) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "リクエスト形式を確認してください。",
		})
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, req.FirstName, req.LastName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(successStatus)
	json.NewEncoder(w).Encode(toProfileResponse(user))
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toProfileResponse はmodel.UserからAPIレスポンスに変換する。
func toProfileResponse(user *model.User) profileResponse {
	return profileResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// SetupUserRoutes はユーザー管理関連のルーティングを設定したchi.Routerを返す。
func SetupUserRoutes(service UserServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewUserHandler(service)

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/me", h.GetProfile)
		r.Put("/me", h.UpdateProfile)
		r.Delete("/me", h.Withdraw)
		r.Post("/onboarding", h.Onboarding)
	})

	return r
}
