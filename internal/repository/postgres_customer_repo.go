package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/churnboard/internal/model"
)

// PostgresCustomerRecordRepo はPostgreSQLを使用した顧客レコードリポジトリ。
type PostgresCustomerRecordRepo struct {
	db *sql.DB
}

// NewPostgresCustomerRecordRepo はPostgresCustomerRecordRepoを生成する。
func NewPostgresCustomerRecordRepo(db *sql.DB) *PostgresCustomerRecordRepo {
	return &PostgresCustomerRecordRepo{db: db}
}

// customerRecordColumns はSELECT句で使用するカラムリスト。
const customerRecordColumns = `id, user_id, name, gender, senior_citizen, partner, dependents, tenure,
	phone_service, multiple_lines, internet_service, online_security, online_backup,
	device_protection, tech_support, streaming_tv, streaming_movies,
	contract, paperless_billing, payment_method, monthly_charges, total_charges, created_at`

// Create は顧客レコードを作成する。
// 数値項目のnilはNULLとして保存され、0とは区別される。
func (r *PostgresCustomerRecordRepo) Create(ctx context.Context, record *model.CustomerRecord) error {
	return insertCustomerRecord(ctx, r.db, record)
}

// FindByID は指定IDの顧客レコードを取得する。見つからない場合はnilを返す。
func (r *PostgresCustomerRecordRepo) FindByID(ctx context.Context, id string) (*model.CustomerRecord, error) {
	record := &model.CustomerRecord{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+customerRecordColumns+` FROM customer_records WHERE id = $1`,
		id,
	).Scan(customerRecordScanDest(record)...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer record: %w", err)
	}

	return record, nil
}

// DeleteByID は指定IDの顧客レコードを無条件に削除する。
// 参照カウントの確認は呼び出し元の責務。
func (r *PostgresCustomerRecordRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM customer_records WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete customer record: %w", err)
	}
	return nil
}

// execer はsql.DBとsql.Txの共通部分。トランザクション内外で挿入処理を共有する。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertCustomerRecord は顧客レコードのINSERTを実行する。
// PredictionSessionRepoのトランザクション内からも使用される。
func insertCustomerRecord(ctx context.Context, e execer, record *model.CustomerRecord) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO customer_records (id, user_id, name, gender, senior_citizen, partner, dependents, tenure,
			phone_service, multiple_lines, internet_service, online_security, online_backup,
			device_protection, tech_support, streaming_tv, streaming_movies,
			contract, paperless_billing, payment_method, monthly_charges, total_charges, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		record.ID, record.UserID, record.Name, record.Gender, record.SeniorCitizen, record.Partner,
		record.Dependents, record.Tenure,
		record.PhoneService, record.MultipleLines, record.InternetService, record.OnlineSecurity,
		record.OnlineBackup, record.DeviceProtection, record.TechSupport, record.StreamingTV,
		record.StreamingMovies,
		record.Contract, record.PaperlessBilling, record.PaymentMethod,
		record.MonthlyCharges, record.TotalCharges, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert customer record: %w", err)
	}
	return nil
}

// customerRecordScanDest はcustomerRecordColumnsと同じ順序のScan先を返す。
func customerRecordScanDest(record *model.CustomerRecord) []any {
	return []any{
		&record.ID, &record.UserID, &record.Name, &record.Gender, &record.SeniorCitizen,
		&record.Partner, &record.Dependents, &record.Tenure,
		&record.PhoneService, &record.MultipleLines, &record.InternetService,
		&record.OnlineSecurity, &record.OnlineBackup, &record.DeviceProtection,
		&record.TechSupport, &record.StreamingTV, &record.StreamingMovies,
		&record.Contract, &record.PaperlessBilling, &record.PaymentMethod,
		&record.MonthlyCharges, &record.TotalCharges, &record.CreatedAt,
	}
}

// compile-time interface check
var _ CustomerRecordRepository = (*PostgresCustomerRecordRepo)(nil)
