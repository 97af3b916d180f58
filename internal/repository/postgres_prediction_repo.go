package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/churnboard/internal/model"
)

// PostgresPredictionSessionRepo はPostgreSQLを使用した予測セッションリポジトリ。
type PostgresPredictionSessionRepo struct {
	db *sql.DB
}

// NewPostgresPredictionSessionRepo はPostgresPredictionSessionRepoを生成する。
func NewPostgresPredictionSessionRepo(db *sql.DB) *PostgresPredictionSessionRepo {
	return &PostgresPredictionSessionRepo{db: db}
}

// Create は予測セッションを作成する。参照先のcustomer_recordは存在していること。
func (r *PostgresPredictionSessionRepo) Create(ctx context.Context, session *model.PredictionSession) error {
	return insertPredictionSession(ctx, r.db, session)
}

// CreateWithCustomer は顧客レコードと予測セッションを同一トランザクションで作成する。
// 片方だけが書き込まれた状態は外部から観測されない。
func (r *PostgresPredictionSessionRepo) CreateWithCustomer(ctx context.Context, record *model.CustomerRecord, session *model.PredictionSession) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertCustomerRecord(ctx, tx, record); err != nil {
		return err
	}

	if err := insertPredictionSession(ctx, tx, session); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByIDAndUser は指定IDの予測セッションを所有者スコープで取得する。
// 他ユーザー所有の場合も「見つからない」と同様にnilを返し、存在有無を漏らさない。
func (r *PostgresPredictionSessionRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.PredictionSession, error) {
	session := &model.PredictionSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, customer_record_id, outcome, confidence, key_factors,
			model_version, api_response_time_ms, created_at
		 FROM prediction_sessions
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&session.ID, &session.UserID, &session.CustomerRecordID, &session.Outcome,
		&session.Confidence, pq.Array(&session.KeyFactors),
		&session.ModelVersion, &session.APIResponseTimeMs, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find prediction session: %w", err)
	}

	return session, nil
}

// ListByUserID はユーザーの予測セッション一覧を顧客レコードとJOINして返す。
// 作成日時の降順で返す。同時刻のレコード間の順序は規定しない。
func (r *PostgresPredictionSessionRepo) ListByUserID(ctx context.Context, userID string) ([]model.SessionWithCustomer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.user_id, s.customer_record_id, s.outcome, s.confidence, s.key_factors,
			s.model_version, s.api_response_time_ms, s.created_at,
			c.id, c.user_id, c.name, c.gender, c.senior_citizen, c.partner, c.dependents, c.tenure,
			c.phone_service, c.multiple_lines, c.internet_service, c.online_security, c.online_backup,
			c.device_protection, c.tech_support, c.streaming_tv, c.streaming_movies,
			c.contract, c.paperless_billing, c.payment_method, c.monthly_charges, c.total_charges, c.created_at
		 FROM prediction_sessions s
		 JOIN customer_records c ON c.id = s.customer_record_id
		 WHERE s.user_id = $1
		 ORDER BY s.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prediction sessions: %w", err)
	}
	defer rows.Close()

	var results []model.SessionWithCustomer
	for rows.Next() {
		var sc model.SessionWithCustomer
		dest := []any{
			&sc.ID, &sc.UserID, &sc.CustomerRecordID, &sc.Outcome, &sc.Confidence,
			pq.Array(&sc.KeyFactors), &sc.ModelVersion, &sc.APIResponseTimeMs, &sc.CreatedAt,
		}
		dest = append(dest, customerRecordScanDest(&sc.Customer)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan prediction session row: %w", err)
		}
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prediction session rows: %w", err)
	}

	return results, nil
}

// CountByCustomerRecordID は指定顧客レコードを参照する予測セッション数を返す。
func (r *PostgresPredictionSessionRepo) CountByCustomerRecordID(ctx context.Context, customerRecordID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM prediction_sessions WHERE customer_record_id = $1`,
		customerRecordID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count prediction sessions: %w", err)
	}
	return count, nil
}

// DeleteWithOrphanCheck は予測セッションを削除し、参照先の顧客レコードが
// 他のセッションから参照されなくなった場合は顧客レコードも同一トランザクション内で削除する。
//
// 顧客レコード行をFOR UPDATEでロックしてから削除と参照カウントを行うため、
// 同一顧客レコードに対する並行削除や並行作成とは直列化される。
// 途中で失敗した場合はトランザクション全体がロールバックされるので、
// リトライすれば正しい最終状態に収束する。
func (r *PostgresPredictionSessionRepo) DeleteWithOrphanCheck(ctx context.Context, id, userID string) (bool, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 対象セッションを所有者スコープで取得
	var customerRecordID string
	err = tx.QueryRowContext(ctx,
		`SELECT customer_record_id FROM prediction_sessions WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&customerRecordID)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to find prediction session: %w", err)
	}

	// 2. 顧客レコード行をロック（同一顧客レコードへの並行操作の直列化ポイント）
	_, err = tx.ExecContext(ctx,
		`SELECT id FROM customer_records WHERE id = $1 FOR UPDATE`,
		customerRecordID,
	)
	if err != nil {
		return false, false, fmt.Errorf("failed to lock customer record: %w", err)
	}

	// 3. セッションを削除
	_, err = tx.ExecContext(ctx,
		`DELETE FROM prediction_sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, false, fmt.Errorf("failed to delete prediction session: %w", err)
	}

	// 4. 残りの参照数を確認し、孤立した顧客レコードを削除
	var remaining int
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM prediction_sessions WHERE customer_record_id = $1`,
		customerRecordID,
	).Scan(&remaining)
	if err != nil {
		return false, false, fmt.Errorf("failed to count remaining references: %w", err)
	}

	customerRemoved := false
	if remaining == 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM customer_records WHERE id = $1`,
			customerRecordID,
		)
		if err != nil {
			return false, false, fmt.Errorf("failed to delete orphaned customer record: %w", err)
		}
		customerRemoved = true
	}

	if err := tx.Commit(); err != nil {
		return false, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, customerRemoved, nil
}

// PurgeByUserID はユーザーの全予測セッションと全顧客レコードを
// 同一トランザクションで削除する。参照カウントの確認は行わない。
func (r *PostgresPredictionSessionRepo) PurgeByUserID(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// セッションを先に削除しないと顧客レコードのFK制約に違反する
	_, err = tx.ExecContext(ctx,
		`DELETE FROM prediction_sessions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete prediction sessions: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM customer_records WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete customer records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// insertPredictionSession は予測セッションのINSERTを実行する。
func insertPredictionSession(ctx context.Context, e execer, session *model.PredictionSession) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO prediction_sessions (id, user_id, customer_record_id, outcome, confidence,
			key_factors, model_version, api_response_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID, session.UserID, session.CustomerRecordID, session.Outcome, session.Confidence,
		pq.Array(session.KeyFactors), session.ModelVersion, session.APIResponseTimeMs, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction session: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PredictionSessionRepository = (*PostgresPredictionSessionRepo)(nil)
