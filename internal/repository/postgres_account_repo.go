package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/campuspoint/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByStudentID は指定学籍番号のアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByStudentID(ctx context.Context, studentID string) (*model.Account, error) {
	account := &model.Account{}
	var lastBonus sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, password_hash, points, member_since, is_active, last_birthday_bonus_on
		 FROM accounts
		 WHERE student_id = $1`,
		studentID,
	).Scan(&account.ID, &account.StudentID, &account.PasswordHash, &account.Points,
		&account.MemberSince, &account.IsActive, &lastBonus)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if lastBonus.Valid {
		account.LastBirthdayBonusOn = &lastBonus.Time
	}

	return account, nil
}

// CreateWithProfile はアカウントとプロフィールを同一トランザクションで作成する。
// 学籍番号のUNIQUE制約違反はErrDuplicateStudentIDに変換する。
// 事前チェックとの間に同時登録が割り込んでも、制約により一方だけが成功する。
func (r *PostgresAccountRepo) CreateWithProfile(ctx context.Context, account *model.Account, profile *model.Profile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, student_id, password_hash, points, member_since, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		account.ID, account.StudentID, account.PasswordHash, account.Points,
		account.MemberSince, account.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateStudentID
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, student_id, first_name, last_name, program, birthdate, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		profile.ID, profile.StudentID, profile.FirstName, profile.LastName,
		profile.Program, profile.Birthdate, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateStudentID
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AddPoints は残高にdeltaを加算し、更新後の残高を返す。
// 単一文のUPDATEなので同時リクエスト間でロストアップデートは発生しない。
func (r *PostgresAccountRepo) AddPoints(ctx context.Context, studentID string, delta int) (int, error) {
	var points int
	err := r.db.QueryRowContext(ctx,
		`UPDATE accounts
		 SET points = points + $1
		 WHERE student_id = $2
		 RETURNING points`,
		delta, studentID,
	).Scan(&points)

	if err == sql.ErrNoRows {
		return 0, model.NewAccountNotFoundError()
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add points: %w", err)
	}

	return points, nil
}

// DeductPoints は残高がamount以上の場合のみamountを減算する。
// 条件付きUPDATEが0行だった場合は現在の残高を読み直してfalseを返す。
func (r *PostgresAccountRepo) DeductPoints(ctx context.Context, studentID string, amount int) (int, bool, error) {
	var points int
	err := r.db.QueryRowContext(ctx,
		`UPDATE accounts
		 SET points = points - $1
		 WHERE student_id = $2 AND points >= $1
		 RETURNING points`,
		amount, studentID,
	).Scan(&points)

	if err == sql.ErrNoRows {
		// 残高不足またはアカウント不存在。エラーメッセージ用に現在値を取得する。
		var available int
		err := r.db.QueryRowContext(ctx,
			`SELECT points FROM accounts WHERE student_id = $1`,
			studentID,
		).Scan(&available)
		if err == sql.ErrNoRows {
			return 0, false, model.NewAccountNotFoundError()
		}
		if err != nil {
			return 0, false, fmt.Errorf("failed to read balance: %w", err)
		}
		return available, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to deduct points: %w", err)
	}

	return points, true, nil
}

// GrantBirthdayBonus は誕生日ボーナスを付与する。
// last_birthday_bonus_onを同一UPDATE内で更新するため、同日の再ログインや
// 同時ログインで二重付与されることはない。暦日の判定にはDBセッションの
// CURRENT_DATEではなく呼び出し側の時刻onを使い、誕生日判定と同じ時計に揃える。
func (r *PostgresAccountRepo) GrantBirthdayBonus(ctx context.Context, studentID string, bonus int, on time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET points = points + $1, last_birthday_bonus_on = $3::date
		 WHERE student_id = $2
		   AND (last_birthday_bonus_on IS NULL OR last_birthday_bonus_on < $3::date)`,
		bonus, studentID, on.Format("2006-01-02"),
	)
	if err != nil {
		return false, fmt.Errorf("failed to grant birthday bonus: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// isUniqueViolation はPostgreSQLのUNIQUE制約違反（SQLSTATE 23505）かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
