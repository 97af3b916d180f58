// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, prediction, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidFilter   = "INVALID_FILTER"
	ErrCodeInvalidSort     = "INVALID_SORT"
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodePredictorError  = "PREDICTOR_ERROR"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
)

// NewValidationError は入力検証エラーを生成する。
// reasonには不正だった項目と理由を含める。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s", filter),
		Category: "validation",
		Action:   "フィルタには all、churn、no-churn のいずれかを指定してください。",
	}
}

// NewInvalidSortError は無効なソートキーエラーを生成する。
func NewInvalidSortError(sort string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSort,
		Message:  fmt.Sprintf("無効なソートキーです: %s", sort),
		Category: "validation",
		Action:   "ソートキーには newest、oldest、confidence-high、confidence-low のいずれかを指定してください。",
	}
}

// NewSessionNotFoundError は予測セッション未検出エラーを生成する。
// 他ユーザー所有のセッションに対しても同一のエラーを返し、存在有無を漏らさない。
func NewSessionNotFoundError(sessionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  fmt.Sprintf("指定された予測セッションが見つかりません: %s", sessionID),
		Category: "prediction",
		Action:   "セッションIDを確認してください。",
	}
}

// NewPredictorError は予測器呼び出し失敗エラーを生成する。
// 予測器が返したメッセージをそのまま呼び出し元に伝える。
func NewPredictorError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePredictorError,
		Message:  fmt.Sprintf("予測器の呼び出しに失敗しました: %s", reason),
		Category: "prediction",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
