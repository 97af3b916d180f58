// Package prediction は解約予測セッションのドメインロジックを提供する。
//
// 予測の実行と保存、履歴一覧の取得、単発削除（孤立顧客レコードの回収を含む）、
// 履歴全消去のビジネスロジックを含む。
package prediction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/churnboard/internal/customer"
	"github.com/hitoshi/churnboard/internal/metrics"
	"github.com/hitoshi/churnboard/internal/model"
	"github.com/hitoshi/churnboard/internal/predictor"
	"github.com/hitoshi/churnboard/internal/query"
	"github.com/hitoshi/churnboard/internal/repository"
)

// Predictor は解約予測の実行インターフェース。
// predictor.Client が実装を提供する。
type Predictor interface {
	Predict(ctx context.Context, record *model.CustomerRecord) (*predictor.Result, error)
}

// Service は予測セッションのサービス層。
type Service struct {
	validator   *customer.Validator
	predictor   Predictor
	sessionRepo repository.PredictionSessionRepository
	collector   metrics.MetricsCollector
	logger      *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	validator *customer.Validator,
	p Predictor,
	sessionRepo repository.PredictionSessionRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		validator:   validator,
		predictor:   p,
		sessionRepo: sessionRepo,
		collector:   collector,
		logger:      logger,
	}
}

// Submit は顧客属性を検証し、予測器を呼び出して結果を保存する。
// 処理順は検証→予測→保存で固定。検証失敗と予測失敗のいずれの場合も
// 何も永続化されない。保存は顧客レコードとセッションの同一トランザクションで行う。
func (s *Service) Submit(ctx context.Context, userID string, input model.CustomerRecord) (*model.SessionWithCustomer, error) {
	record, err := s.validator.Validate(input)
	if err != nil {
		return nil, err
	}

	record.ID = uuid.New().String()
	record.UserID = userID

	result, err := s.predictor.Predict(ctx, &record)
	if err != nil {
		return nil, err
	}

	session := &model.PredictionSession{
		ID:                uuid.New().String(),
		UserID:            userID,
		CustomerRecordID:  record.ID,
		Outcome:           result.Outcome,
		Confidence:        result.Confidence,
		KeyFactors:        result.KeyFactors,
		ModelVersion:      result.ModelVersion,
		APIResponseTimeMs: result.APIResponseTimeMs,
		CreatedAt:         time.Now(),
	}

	if err := s.sessionRepo.CreateWithCustomer(ctx, &record, session); err != nil {
		return nil, fmt.Errorf("予測セッションの保存に失敗しました: %w", err)
	}

	s.collector.RecordPrediction(string(session.Outcome))
	s.logger.Info("予測セッションを保存しました",
		slog.String("session_id", session.ID),
		slog.String("user_id", userID),
		slog.String("outcome", string(session.Outcome)),
		slog.Float64("confidence", session.Confidence),
	)

	return &model.SessionWithCustomer{
		PredictionSession: *session,
		Customer:          record,
	}, nil
}

// ListSessions はユーザーの予測履歴を絞り込み条件付きで返す。
// リポジトリから全件取得した後、フィルタ→検索→ソートのパイプラインを適用する。
func (s *Service) ListSessions(ctx context.Context, userID string, params query.Params) ([]model.SessionWithCustomer, error) {
	sessions, err := s.sessionRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("予測履歴の取得に失敗しました: %w", err)
	}
	return query.Apply(sessions, params), nil
}

// DeleteSession は予測セッションを削除する。
// 削除後に参照元を失った顧客レコードは同一トランザクション内で回収される。
// セッションが存在しない、または他ユーザー所有の場合はSESSION_NOT_FOUNDを返す。
// 戻り値は顧客レコードも削除されたかどうか。
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) (bool, error) {
	found, customerRemoved, err := s.sessionRepo.DeleteWithOrphanCheck(ctx, sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("予測セッションの削除に失敗しました: %w", err)
	}
	if !found {
		return false, model.NewSessionNotFoundError(sessionID)
	}

	s.collector.RecordSessionDeleted(customerRemoved)
	s.logger.Info("予測セッションを削除しました",
		slog.String("session_id", sessionID),
		slog.String("user_id", userID),
		slog.Bool("customer_removed", customerRemoved),
	)
	return customerRemoved, nil
}

// ClearSessions はユーザーの全予測セッションと全顧客レコードを削除する。
// 所有者単位の一括削除であり、参照カウントの確認は行わない。
// 履歴が空の場合も成功として扱う（冪等）。
func (s *Service) ClearSessions(ctx context.Context, userID string) error {
	if err := s.sessionRepo.PurgeByUserID(ctx, userID); err != nil {
		return fmt.Errorf("予測履歴の全消去に失敗しました: %w", err)
	}

	s.collector.RecordSessionsPurged(userID)
	s.logger.Info("予測履歴を全消去しました",
		slog.String("user_id", userID),
	)
	return nil
}
