// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/campuspoint/internal/model"
)

// ErrDuplicateStudentID は学籍番号のUNIQUE制約違反を表す。
// 登録時のチェック＆書き込みの競合はDB側の制約で一元的に防ぐ。
var ErrDuplicateStudentID = errors.New("student id already exists")

// AccountRepository はアカウントデータの永続化インターフェース。
// ポイント残高の加算・減算は単一文のUPDATEで行い、リクエスト間の
// read-modify-write競合をDB側で直列化する。
type AccountRepository interface {
	// FindByStudentID は指定学籍番号のアカウントを取得する。見つからない場合はnilを返す。
	FindByStudentID(ctx context.Context, studentID string) (*model.Account, error)

	// CreateWithProfile はアカウントとプロフィールを同一トランザクションで作成する。
	// 学籍番号が既に存在する場合はErrDuplicateStudentIDを返す。
	CreateWithProfile(ctx context.Context, account *model.Account, profile *model.Profile) error

	// AddPoints は残高にdeltaを加算し、更新後の残高を返す。
	AddPoints(ctx context.Context, studentID string, delta int) (int, error)

	// DeductPoints は残高がamount以上の場合のみamountを減算する。
	// 減算できた場合は更新後の残高とtrueを、残高不足の場合は現在の残高とfalseを返す。
	DeductPoints(ctx context.Context, studentID string, amount int) (int, bool, error)

	// GrantBirthdayBonus は誕生日ボーナスを付与する。暦日はonで判定し、
	// 同一暦日に既に付与済みの場合は何もせずfalseを返す（冪等）。
	GrantBirthdayBonus(ctx context.Context, studentID string, bonus int, on time.Time) (bool, error)
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByStudentID は指定学籍番号のプロフィールを取得する。見つからない場合はnilを返す。
	FindByStudentID(ctx context.Context, studentID string) (*model.Profile, error)

	// Update は可変フィールド（氏名・プログラム・生年月日）を上書きする。
	Update(ctx context.Context, profile *model.Profile) error

	// UpdateAvatarURL はアバター参照のみを更新する。
	UpdateAvatarURL(ctx context.Context, studentID, avatarURL string) error
}

// TransactionRepository は購入台帳の永続化インターフェース。台帳は追記専用。
type TransactionRepository interface {
	// Create は取引レコードを追記する。
	Create(ctx context.Context, txn *model.Transaction) error

	// ListRecentByStudentID は作成日時の降順で直近limit件の取引を返す。
	ListRecentByStudentID(ctx context.Context, studentID string, limit int) ([]model.Transaction, error)

	// MonthlySummary はnowと同じ暦月の支出合計と獲得ポイント合計を返す。
	MonthlySummary(ctx context.Context, studentID string, now time.Time) (float64, int, error)
}
