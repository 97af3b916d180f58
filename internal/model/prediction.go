// Package model はドメインモデルを定義する。
package model

import "time"

// Outcome は解約予測の結果を表す。
type Outcome string

const (
	// OutcomeChurn は解約すると予測された結果。
	OutcomeChurn Outcome = "CHURN"
	// OutcomeNoChurn は解約しないと予測された結果。
	OutcomeNoChurn Outcome = "NO_CHURN"
)

// PredictionSession は1回の予測実行の結果（履歴の1件）を表す。
// ちょうど1つのCustomerRecordを参照する。作成後は不変。
type PredictionSession struct {
	ID               string
	UserID           string
	CustomerRecordID string
	Outcome          Outcome
	// Confidence は予測の確信度（0〜100）。
	Confidence float64
	// KeyFactors は予測に寄与した要因ラベル。順序は予測器が返した順を保持する。
	KeyFactors   []string
	ModelVersion string
	// APIResponseTimeMs は予測器の応答時間（ミリ秒）。未計測の場合はnil。
	APIResponseTimeMs *float64
	CreatedAt         time.Time
}

// SessionWithCustomer は予測セッションと参照先のCustomerRecordを結合したモデル。
// customer_recordsテーブルとJOINして取得される。
type SessionWithCustomer struct {
	PredictionSession
	Customer CustomerRecord
}

// SessionFilter は予測履歴一覧のフィルタ種別を表す。
type SessionFilter string

const (
	// SessionFilterAll は全セッションを表示するフィルタ。
	SessionFilterAll SessionFilter = "all"
	// SessionFilterChurn は解約予測のみを表示するフィルタ。
	SessionFilterChurn SessionFilter = "churn"
	// SessionFilterNoChurn は非解約予測のみを表示するフィルタ。
	SessionFilterNoChurn SessionFilter = "no-churn"
)

// SessionSort は予測履歴一覧のソートキーを表す。
type SessionSort string

const (
	// SessionSortNewest は作成日時の降順ソート。
	SessionSortNewest SessionSort = "newest"
	// SessionSortOldest は作成日時の昇順ソート。
	SessionSortOldest SessionSort = "oldest"
	// SessionSortConfidenceHigh は確信度の降順ソート。
	SessionSortConfidenceHigh SessionSort = "confidence-high"
	// SessionSortConfidenceLow は確信度の昇順ソート。
	SessionSortConfidenceLow SessionSort = "confidence-low"
)
