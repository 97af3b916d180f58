// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/churnboard/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はユーザーの氏名を更新する。updated_atも更新される。
	UpdateProfile(ctx context.Context, id, firstName, lastName string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、customer_records、prediction_sessionsは
	// CASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はログインセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// CustomerRecordRepository は顧客レコードの永続化インターフェース。
// 参照整合性のチェックは行わない末端ストア。削除の可否判断は
// 削除コーディネータ（PredictionSessionRepository.DeleteWithOrphanCheck）が担う。
type CustomerRecordRepository interface {
	// Create は顧客レコードを作成する。
	Create(ctx context.Context, record *model.CustomerRecord) error

	// FindByID は指定IDの顧客レコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.CustomerRecord, error)

	// DeleteByID は指定IDの顧客レコードを無条件に削除する。
	// 参照カウントの確認は呼び出し元の責務。
	DeleteByID(ctx context.Context, id string) error
}

// PredictionSessionRepository は予測セッションの永続化インターフェース。
type PredictionSessionRepository interface {
	// Create は予測セッションを作成する。参照先のcustomer_recordは存在していること。
	Create(ctx context.Context, session *model.PredictionSession) error

	// CreateWithCustomer は顧客レコードと予測セッションを同一トランザクションで作成する。
	// どちらか一方だけが書き込まれた状態は外部から観測されない。
	CreateWithCustomer(ctx context.Context, record *model.CustomerRecord, session *model.PredictionSession) error

	// FindByIDAndUser は指定IDの予測セッションを所有者スコープで取得する。
	// 他ユーザー所有の場合も「見つからない」と同様にnilを返す。
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.PredictionSession, error)

	// ListByUserID はユーザーの予測セッション一覧を顧客レコードとJOINして返す。
	// 作成日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]model.SessionWithCustomer, error)

	// CountByCustomerRecordID は指定顧客レコードを参照する予測セッション数を返す。
	CountByCustomerRecordID(ctx context.Context, customerRecordID string) (int, error)

	// DeleteWithOrphanCheck は予測セッションを削除し、参照先の顧客レコードが
	// 他のセッションから参照されなくなった場合は顧客レコードも削除する。
	// 全体を1トランザクションで実行し、顧客レコード行をFOR UPDATEでロックすることで
	// 同一顧客レコードに対する並行削除・並行作成と直列化する。
	// セッションが存在しない、または所有者が異なる場合はfound=falseを返す。
	DeleteWithOrphanCheck(ctx context.Context, id, userID string) (found bool, customerRemoved bool, err error)

	// PurgeByUserID はユーザーの全予測セッションと全顧客レコードを
	// 同一トランザクションで削除する。参照カウントの確認は行わない
	// （所有者単位の一括purgeは単発削除より意図的に強い削除）。
	PurgeByUserID(ctx context.Context, userID string) error
}
