// Package model はドメインモデルを定義する。
package model

import "time"

// CustomerRecord は解約予測の対象となった顧客属性のスナップショットを表す。
// 予測リクエストの永続化時に作成され、以降は不変。
// 数値項目はポインタ型とし、未入力（NULL）と0を区別する。
type CustomerRecord struct {
	ID     string
	UserID string

	// 識別・人口統計属性
	Name          string
	Gender        string
	SeniorCitizen string
	Partner       string
	Dependents    string

	// 契約期間（月数）。未入力の場合はnil。
	Tenure *int

	// サービス契約属性
	PhoneService     string
	MultipleLines    string
	InternetService  string
	OnlineSecurity   string
	OnlineBackup     string
	DeviceProtection string
	TechSupport      string
	StreamingTV      string
	StreamingMovies  string

	// 請求属性
	Contract         string
	PaperlessBilling string
	PaymentMethod    string
	MonthlyCharges   *float64
	TotalCharges     *float64

	CreatedAt time.Time
}
