// Package predictor は外部の解約予測サービスとの連携を提供する。
// 予測APIの呼び出しとレスポンスのドメインモデルへの変換を含む。
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/churnboard/internal/metrics"
	"github.com/hitoshi/churnboard/internal/model"
)

// Result は予測サービスからの応答をドメイン表現に変換したもの。
type Result struct {
	Outcome    model.Outcome
	Confidence float64
	// KeyFactors は予測器が返した順序を保持する。
	KeyFactors   []string
	ModelVersion string
	// APIResponseTimeMs は予測器が自己申告した処理時間（ミリ秒）。未申告の場合はnil。
	APIResponseTimeMs *float64
}

// predictRequest は予測APIへのリクエストボディ。
type predictRequest struct {
	CustomerData customerPayload `json:"customerData"`
}

// customerPayload は予測APIが期待する顧客属性のJSON表現。
type customerPayload struct {
	CustomerName     string   `json:"customerName"`
	Gender           string   `json:"gender"`
	SeniorCitizen    string   `json:"seniorCitizen"`
	Partner          string   `json:"partner"`
	Dependents       string   `json:"dependents"`
	Tenure           *int     `json:"tenure"`
	PhoneService     string   `json:"phoneService"`
	MultipleLines    string   `json:"multipleLines"`
	InternetService  string   `json:"internetService"`
	OnlineSecurity   string   `json:"onlineSecurity"`
	OnlineBackup     string   `json:"onlineBackup"`
	DeviceProtection string   `json:"deviceProtection"`
	TechSupport      string   `json:"techSupport"`
	StreamingTV      string   `json:"streamingTV"`
	StreamingMovies  string   `json:"streamingMovies"`
	Contract         string   `json:"contract"`
	PaperlessBilling string   `json:"paperlessBilling"`
	PaymentMethod    string   `json:"paymentMethod"`
	MonthlyCharges   *float64 `json:"monthlyCharges"`
	TotalCharges     *float64 `json:"totalCharges"`
}

// predictResponse は予測APIの成功レスポンス。
type predictResponse struct {
	Prediction        string   `json:"prediction"`
	Confidence        float64  `json:"confidence"`
	Factors           []string `json:"factors"`
	ModelVersion      string   `json:"model_version"`
	APIResponseTimeMs *float64 `json:"apiResponseTime"`
}

// errorResponse は予測APIのエラーレスポンス。
type errorResponse struct {
	Error string `json:"error"`
}

// Client は解約予測APIのクライアント。
// 1回のユーザー操作につき1回だけ呼び出し、リトライは行わない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	collector  metrics.MetricsCollector
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLは予測サービスのベースURL（例: "http://predictor:5000"）。
func NewClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		collector:  collector,
		baseURL:    baseURL,
	}
}

// Predict は顧客属性を予測サービスに送信し、予測結果を取得する。
// 予測器がエラーを返した場合はそのメッセージを含むAPIErrorを返す。
// 失敗時に呼び出し元は何も永続化してはならない。
func (c *Client) Predict(ctx context.Context, record *model.CustomerRecord) (*Result, error) {
	body, err := json.Marshal(predictRequest{CustomerData: toCustomerPayload(record)})
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Churnboard/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("予測APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		c.collector.RecordPredictorFailure()
		return nil, model.NewPredictorError(err.Error())
	}
	defer resp.Body.Close()

	c.collector.RecordPredictorLatency(time.Since(start))
	c.collector.RecordPredictorHTTPStatus(resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	// 非成功ステータスの場合は予測器のエラーメッセージをそのまま伝える
	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.Error == "" {
			errResp.Error = fmt.Sprintf("予測APIがステータス %d を返しました", resp.StatusCode)
		}
		c.logger.Error("予測APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("predictor_error", errResp.Error),
		)
		c.collector.RecordPredictorFailure()
		return nil, model.NewPredictorError(errResp.Error)
	}

	var predResp predictResponse
	if err := json.Unmarshal(respBody, &predResp); err != nil {
		c.logger.Error("予測APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		c.collector.RecordPredictorFailure()
		return nil, model.NewPredictorError("レスポンスJSONのパースに失敗しました")
	}

	result, err := toResult(&predResp)
	if err != nil {
		return nil, err
	}

	// 予測器が処理時間を申告しない場合はクライアント側の計測値を使用する
	if result.APIResponseTimeMs == nil {
		elapsed := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)
		result.APIResponseTimeMs = &elapsed
	}

	return result, nil
}

// toCustomerPayload はドメインモデルを予測APIのJSON表現に変換する。
func toCustomerPayload(record *model.CustomerRecord) customerPayload {
	return customerPayload{
		CustomerName:     record.Name,
		Gender:           record.Gender,
		SeniorCitizen:    record.SeniorCitizen,
		Partner:          record.Partner,
		Dependents:       record.Dependents,
		Tenure:           record.Tenure,
		PhoneService:     record.PhoneService,
		MultipleLines:    record.MultipleLines,
		InternetService:  record.InternetService,
		OnlineSecurity:   record.OnlineSecurity,
		OnlineBackup:     record.OnlineBackup,
		DeviceProtection: record.DeviceProtection,
		TechSupport:      record.TechSupport,
		StreamingTV:      record.StreamingTV,
		StreamingMovies:  record.StreamingMovies,
		Contract:         record.Contract,
		PaperlessBilling: record.PaperlessBilling,
		PaymentMethod:    record.PaymentMethod,
		MonthlyCharges:   record.MonthlyCharges,
		TotalCharges:     record.TotalCharges,
	}
}

// toResult は予測APIのレスポンスを検証しドメイン表現に変換する。
func toResult(resp *predictResponse) (*Result, error) {
	result := &Result{
		Confidence:        resp.Confidence,
		KeyFactors:        resp.Factors,
		ModelVersion:      resp.ModelVersion,
		APIResponseTimeMs: resp.APIResponseTimeMs,
	}

	// "Churn" / "No Churn" を保存用の列挙値にマッピングする
	switch resp.Prediction {
	case "Churn":
		result.Outcome = model.OutcomeChurn
	case "No Churn":
		result.Outcome = model.OutcomeNoChurn
	default:
		return nil, model.NewPredictorError(fmt.Sprintf("未知の予測結果です: %q", resp.Prediction))
	}

	if resp.Confidence < 0 || resp.Confidence > 100 {
		return nil, model.NewPredictorError(fmt.Sprintf("確信度が範囲外です: %v", resp.Confidence))
	}

	if result.KeyFactors == nil {
		result.KeyFactors = []string{}
	}
	if result.ModelVersion == "" {
		result.ModelVersion = "1.0"
	}

	return result, nil
}
