package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/campuspoint/internal/model"
)

// PostgresTransactionRepo はPostgreSQLを使用した購入台帳リポジトリ。
type PostgresTransactionRepo struct {
	db *sql.DB
}

// NewPostgresTransactionRepo はPostgresTransactionRepoを生成する。
func NewPostgresTransactionRepo(db *sql.DB) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{db: db}
}

// Create は取引レコードを追記する。作成後の更新・削除は行わない。
func (r *PostgresTransactionRepo) Create(ctx context.Context, txn *model.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, student_id, item, amount, points_earned, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		txn.ID, txn.StudentID, txn.Item, txn.Amount, txn.PointsEarned, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// ListRecentByStudentID は作成日時の降順で直近limit件の取引を返す。
func (r *PostgresTransactionRepo) ListRecentByStudentID(ctx context.Context, studentID string, limit int) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, student_id, item, amount, points_earned, created_at
		 FROM transactions
		 WHERE student_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		studentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		var txn model.Transaction
		if err := rows.Scan(&txn.ID, &txn.StudentID, &txn.Item, &txn.Amount,
			&txn.PointsEarned, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

// MonthlySummary はnowと同じ暦月の支出合計と獲得ポイント合計を返す。
func (r *PostgresTransactionRepo) MonthlySummary(ctx context.Context, studentID string, now time.Time) (float64, int, error) {
	var spend float64
	var points int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0), COALESCE(SUM(points_earned), 0)
		 FROM transactions
		 WHERE student_id = $1
		   AND date_trunc('month', created_at) = date_trunc('month', $2::timestamptz)`,
		studentID, now,
	).Scan(&spend, &points)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate monthly summary: %w", err)
	}

	return spend, points, nil
}

// compile-time interface check
var _ TransactionRepository = (*PostgresTransactionRepo)(nil)
