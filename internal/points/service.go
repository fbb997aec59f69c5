// Package points は購入記録とポイント交換のビジネスロジックを提供する。
package points

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/campuspoint/internal/metrics"
	"github.com/hitoshi/campuspoint/internal/model"
	"github.com/hitoshi/campuspoint/internal/repository"
)

// recentTransactionLimit は購入履歴の応答に含める直近の取引件数。
const recentTransactionLimit = 10

// Notifier はライブ接続への状態変更通知のインターフェース。
type Notifier interface {
	Notify(studentID, event string, payload any)
}

// PurchaseResult は購入記録の応答。
type PurchaseResult struct {
	Transaction model.Transaction `json:"transaction"`
	Points      int               `json:"points"`
}

// MonthlySummary は当月の支出合計と獲得ポイント合計。
type MonthlySummary struct {
	Spend        float64 `json:"spend"`
	PointsEarned int     `json:"pointsEarned"`
}

// PurchaseHistory は購入履歴の応答。
type PurchaseHistory struct {
	Transactions []model.Transaction `json:"transactions"`
	Monthly      MonthlySummary      `json:"monthly"`
}

// ConversionResult はポイント交換の応答。
type ConversionResult struct {
	Voucher string `json:"voucher"`
	Points  int    `json:"points"`
}

// Service は購入とポイント交換のユースケースを実装する。
type Service struct {
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	notifier     Notifier
	collector    metrics.PointsMetrics
	rate         int
}

// NewService はServiceを生成する。rateはポイント換算レート（金額/ポイント）。
func NewService(accounts repository.AccountRepository, transactions repository.TransactionRepository, notifier Notifier, collector metrics.PointsMetrics, rate int) *Service {
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		notifier:     notifier,
		collector:    collector,
		rate:         rate,
	}
}

// RecordPurchase は購入1件を台帳に追記し、換算ポイントを残高に加算する。
// 成功時にはpurchaseAddedイベントをライブ接続へ通知する。
func (s *Service) RecordPurchase(ctx context.Context, studentID, item string, amount float64) (*PurchaseResult, error) {
	pointsEarned := int(math.Floor(amount / float64(s.rate)))

	txn := &model.Transaction{
		ID:           uuid.New().String(),
		StudentID:    studentID,
		Item:         item,
		Amount:       amount,
		PointsEarned: pointsEarned,
		CreatedAt:    time.Now(),
	}
	if err := s.transactions.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	balance, err := s.accounts.AddPoints(ctx, studentID, pointsEarned)
	if err != nil {
		return nil, fmt.Errorf("failed to add points: %w", err)
	}

	slog.Info("purchase recorded",
		slog.String("student_id", studentID),
		slog.String("item", item),
		slog.Float64("amount", amount),
		slog.Int("points_earned", pointsEarned),
	)
	s.collector.RecordPurchase(pointsEarned)

	result := &PurchaseResult{
		Transaction: *txn,
		Points:      balance,
	}
	s.notifier.Notify(studentID, "purchaseAdded", result)

	return result, nil
}

// ListPurchases は直近の取引と当月集計を返す。
func (s *Service) ListPurchases(ctx context.Context, studentID string) (*PurchaseHistory, error) {
	transactions, err := s.transactions.ListRecentByStudentID(ctx, studentID, recentTransactionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	spend, earned, err := s.transactions.MonthlySummary(ctx, studentID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}

	return &PurchaseHistory{
		Transactions: transactions,
		Monthly: MonthlySummary{
			Spend:        spend,
			PointsEarned: earned,
		},
	}, nil
}

// Convert はポイントをバウチャーに交換する。残高不足の場合は
// InsufficientBalanceエラーを返し、残高は変更されない。
// 成功時にはpointsUpdatedイベントをライブ接続へ通知する。
func (s *Service) Convert(ctx context.Context, studentID string, pointsRequired, discountAmount int) (*ConversionResult, error) {
	balance, ok, err := s.accounts.DeductPoints(ctx, studentID, pointsRequired)
	if err != nil {
		return nil, fmt.Errorf("failed to deduct points: %w", err)
	}
	if !ok {
		return nil, model.NewInsufficientBalanceError(pointsRequired, balance)
	}

	voucher := fmt.Sprintf("DISC%d-%d", discountAmount, time.Now().UnixMilli())

	slog.Info("points converted",
		slog.String("student_id", studentID),
		slog.Int("points_required", pointsRequired),
		slog.Int("discount_amount", discountAmount),
	)
	s.collector.RecordConversion(pointsRequired)

	result := &ConversionResult{
		Voucher: voucher,
		Points:  balance,
	}
	s.notifier.Notify(studentID, "pointsUpdated", result)

	return result, nil
}
