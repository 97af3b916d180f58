// Package query は予測履歴一覧の絞り込みパイプラインを提供する。
//
// フィルタ、検索、ソートを副作用なしの純粋関数として実装する。
// 入力スライスは変更されず、常に新しいスライスが返される。
// 適用順はフィルタ→検索→ソートで固定。
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hitoshi/churnboard/internal/model"
)

// Params は一覧取得時の絞り込み条件。
type Params struct {
	Filter model.SessionFilter
	Sort   model.SessionSort
	// Search は検索文字列。空の場合は検索を行わない。
	Search string
}

// DefaultParams は絞り込みなしのデフォルト条件を返す。
// フィルタはall、ソートはnewest。
func DefaultParams() Params {
	return Params{
		Filter: model.SessionFilterAll,
		Sort:   model.SessionSortNewest,
	}
}

// ParseParams はクエリ文字列由来の生の値をParamsに変換する。
// 空文字列にはデフォルト値が適用される。
// 未知のフィルタ・ソートキーにはAPIErrorを返す。
func ParseParams(filter, sortKey, search string) (Params, error) {
	params := DefaultParams()

	if filter != "" {
		switch model.SessionFilter(filter) {
		case model.SessionFilterAll, model.SessionFilterChurn, model.SessionFilterNoChurn:
			params.Filter = model.SessionFilter(filter)
		default:
			return Params{}, model.NewInvalidFilterError(filter)
		}
	}

	if sortKey != "" {
		switch model.SessionSort(sortKey) {
		case model.SessionSortNewest, model.SessionSortOldest,
			model.SessionSortConfidenceHigh, model.SessionSortConfidenceLow:
			params.Sort = model.SessionSort(sortKey)
		default:
			return Params{}, model.NewInvalidSortError(sortKey)
		}
	}

	params.Search = strings.TrimSpace(search)
	return params, nil
}

// Apply はセッション一覧に絞り込みパイプラインを適用する。
// フィルタ→検索→ソートの順で適用し、新しいスライスを返す。
func Apply(sessions []model.SessionWithCustomer, params Params) []model.SessionWithCustomer {
	result := applyFilter(sessions, params.Filter)
	result = applySearch(result, params.Search)
	return applySort(result, params.Sort)
}

// applyFilter は予測結果によるフィルタを適用する。
func applyFilter(sessions []model.SessionWithCustomer, filter model.SessionFilter) []model.SessionWithCustomer {
	result := make([]model.SessionWithCustomer, 0, len(sessions))
	for _, s := range sessions {
		switch filter {
		case model.SessionFilterChurn:
			if s.Outcome != model.OutcomeChurn {
				continue
			}
		case model.SessionFilterNoChurn:
			if s.Outcome != model.OutcomeNoChurn {
				continue
			}
		}
		result = append(result, s)
	}
	return result
}

// applySearch は大文字小文字を区別しない部分一致検索を適用する。
// 検索対象は予測結果の表示ラベル、確信度の数字列、契約種別、顧客名。
func applySearch(sessions []model.SessionWithCustomer, search string) []model.SessionWithCustomer {
	if search == "" {
		return sessions
	}
	needle := strings.ToLower(search)

	result := make([]model.SessionWithCustomer, 0, len(sessions))
	for _, s := range sessions {
		if matchesSearch(&s, needle) {
			result = append(result, s)
		}
	}
	return result
}

// matchesSearch はセッションが検索文字列に一致するかを判定する。
func matchesSearch(s *model.SessionWithCustomer, needle string) bool {
	targets := []string{
		strings.ToLower(outcomeLabel(s.Outcome)),
		formatConfidence(s.Confidence),
		strings.ToLower(s.Customer.Contract),
		strings.ToLower(s.Customer.Name),
	}
	for _, target := range targets {
		if strings.Contains(target, needle) {
			return true
		}
	}
	return false
}

// outcomeLabel は予測結果の表示ラベルを返す。
// UIに表示される文字列と一致させる。
func outcomeLabel(outcome model.Outcome) string {
	if outcome == model.OutcomeChurn {
		return "Churn"
	}
	return "No Churn"
}

// formatConfidence は確信度を検索対象の数字列に変換する。
// 整数値は小数点なしで表現する（85.0 -> "85"）。
func formatConfidence(confidence float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", confidence), "0"), ".")
}

// applySort は指定キーでソートした新しいスライスを返す。
// 安定ソートを使用し、同値要素の相対順序を保持する。
func applySort(sessions []model.SessionWithCustomer, sortKey model.SessionSort) []model.SessionWithCustomer {
	result := make([]model.SessionWithCustomer, len(sessions))
	copy(result, sessions)

	switch sortKey {
	case model.SessionSortOldest:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		})
	case model.SessionSortConfidenceHigh:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Confidence > result[j].Confidence
		})
	case model.SessionSortConfidenceLow:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Confidence < result[j].Confidence
		})
	default:
		// newest
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		})
	}
	return result
}
