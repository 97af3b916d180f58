// Package customer は顧客レコードの入力検証と正規化を提供する。
//
// 予測セッション作成APIで受け取った顧客属性を、保存前に一度だけ検証する。
// カテゴリ属性は閉集合（許可値リスト）との完全一致で検証し、
// 数値属性は範囲検証を行う。検証を通過したレコードのみが
// ストアと予測ゲートウェイに渡される。
package customer

import (
	"fmt"
	"strings"

	"github.com/hitoshi/churnboard/internal/model"
)

// 各カテゴリ属性の許可値。入力はこれらとの完全一致（大文字小文字を区別）で検証される。
var (
	genderValues        = []string{"Male", "Female"}
	yesNoValues         = []string{"Yes", "No"}
	multipleLinesValues = []string{"Yes", "No", "No phone service"}
	internetValues      = []string{"DSL", "Fiber optic", "No"}
	internetDepValues   = []string{"Yes", "No", "No internet service"}
	contractValues      = []string{"Month-to-month", "One year", "Two year"}
	paymentValues       = []string{
		"Electronic check",
		"Mailed check",
		"Bank transfer (automatic)",
		"Credit card (automatic)",
	}
)

// ContractValues は契約種別の許可値を返す。
// 検索パイプラインなど検証以外の用途でも参照される。
func ContractValues() []string {
	out := make([]string, len(contractValues))
	copy(out, contractValues)
	return out
}

// NameSanitizer は顧客名から危険なマークアップを除去する。
// security.TextSanitizerService が実装を提供する。
type NameSanitizer interface {
	SanitizeText(raw string) string
}

// Validator は顧客レコードの検証と正規化を行う。
type Validator struct {
	sanitizer NameSanitizer
}

// NewValidator はValidatorの新しいインスタンスを生成する。
func NewValidator(sanitizer NameSanitizer) *Validator {
	return &Validator{sanitizer: sanitizer}
}

// Validate は顧客レコードを検証し、正規化済みのコピーを返す。
// 検証は以下の順で行われる:
//  1. 顧客名: サニタイズ後に前後空白を除去し、空であればエラー
//  2. カテゴリ属性: 各閉集合との完全一致
//  3. 数値属性: 在籍月数は0以上、料金は0以上（未指定のnilは許容）
//
// いずれかの検証に失敗した場合はmodel.APIError（VALIDATION_ERROR）を返し、
// レコードは一切保存されない。
func (v *Validator) Validate(record model.CustomerRecord) (model.CustomerRecord, error) {
	name := record.Name
	if v.sanitizer != nil {
		name = v.sanitizer.SanitizeText(name)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.CustomerRecord{}, model.NewValidationError("顧客名を入力してください")
	}
	record.Name = name

	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"gender", record.Gender, genderValues},
		{"seniorCitizen", record.SeniorCitizen, yesNoValues},
		{"partner", record.Partner, yesNoValues},
		{"dependents", record.Dependents, yesNoValues},
		{"phoneService", record.PhoneService, yesNoValues},
		{"multipleLines", record.MultipleLines, multipleLinesValues},
		{"internetService", record.InternetService, internetValues},
		{"onlineSecurity", record.OnlineSecurity, internetDepValues},
		{"onlineBackup", record.OnlineBackup, internetDepValues},
		{"deviceProtection", record.DeviceProtection, internetDepValues},
		{"techSupport", record.TechSupport, internetDepValues},
		{"streamingTV", record.StreamingTV, internetDepValues},
		{"streamingMovies", record.StreamingMovies, internetDepValues},
		{"contract", record.Contract, contractValues},
		{"paperlessBilling", record.PaperlessBilling, yesNoValues},
		{"paymentMethod", record.PaymentMethod, paymentValues},
	}
	for _, c := range checks {
		if !contains(c.allowed, c.value) {
			return model.CustomerRecord{}, model.NewValidationError(
				fmt.Sprintf("%s の値が不正です: %q", c.field, c.value))
		}
	}

	if record.Tenure != nil && *record.Tenure < 0 {
		return model.CustomerRecord{}, model.NewValidationError("在籍月数は0以上で入力してください")
	}
	if record.MonthlyCharges != nil && *record.MonthlyCharges < 0 {
		return model.CustomerRecord{}, model.NewValidationError("月額料金は0以上で入力してください")
	}
	if record.TotalCharges != nil && *record.TotalCharges < 0 {
		return model.CustomerRecord{}, model.NewValidationError("累計料金は0以上で入力してください")
	}

	return record, nil
}

func contains(allowed []string, value string) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}
