// Package auth は会員登録・ログイン・セッション発行のビジネスロジックを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/campuspoint/internal/model"
	"github.com/hitoshi/campuspoint/internal/repository"
)

// TokenIssuer はセッショントークンの発行インターフェース。
type TokenIssuer interface {
	Issue(accountID, studentID string) (string, error)
}

// RegisterInput は登録リクエストの入力値。フィールドの存在検証はハンドラー側で行う。
type RegisterInput struct {
	StudentID string
	FirstName string
	LastName  string
	Program   string
	Birthdate time.Time
	Password  string
}

// LoginResult はログイン成功時の応答。Tokenはハンドラー側でCookieに設定する。
type LoginResult struct {
	Token   string
	Summary AccountSummary
}

// AccountSummary はログイン応答に含める公開プロフィール＋残高の要約。
type AccountSummary struct {
	IDNumber    string    `json:"idNumber"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Program     string    `json:"program"`
	Points      int       `json:"points"`
	MemberSince time.Time `json:"memberSince"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
}

// Service は登録とログインのユースケースを実装する。
type Service struct {
	accounts      repository.AccountRepository
	profiles      repository.ProfileRepository
	tokens        TokenIssuer
	birthdayBonus int
}

// NewService はServiceを生成する。
func NewService(accounts repository.AccountRepository, profiles repository.ProfileRepository, tokens TokenIssuer, birthdayBonus int) *Service {
	return &Service{
		accounts:      accounts,
		profiles:      profiles,
		tokens:        tokens,
		birthdayBonus: birthdayBonus,
	}
}

// Register は新規アカウントとプロフィールを作成する。
//
// 重複の事前チェックはエラーメッセージを分けるためのもので、最終的な
// 一意性はDBのUNIQUE制約が保証する。事前チェックをすり抜けた競合は
// ErrDuplicateStudentIDとして返り、重複エラーに畳み込む。
func (s *Service) Register(ctx context.Context, input RegisterInput) error {
	existing, err := s.accounts.FindByStudentID(ctx, input.StudentID)
	if err != nil {
		return fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return model.NewDuplicateAccountError(input.StudentID)
	}

	existingProfile, err := s.profiles.FindByStudentID(ctx, input.StudentID)
	if err != nil {
		return fmt.Errorf("failed to check existing profile: %w", err)
	}
	if existingProfile != nil {
		return model.NewDuplicateProfileError(input.StudentID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	account := &model.Account{
		ID:           uuid.New().String(),
		StudentID:    input.StudentID,
		PasswordHash: string(hash),
		Points:       0,
		MemberSince:  now,
		IsActive:     true,
	}
	profile := &model.Profile{
		ID:        uuid.New().String(),
		StudentID: input.StudentID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Program:   input.Program,
		Birthdate: input.Birthdate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.accounts.CreateWithProfile(ctx, account, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateStudentID) {
			return model.NewDuplicateAccountError(input.StudentID)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("account registered", slog.String("student_id", input.StudentID))
	return nil
}

// Login は資格情報を検証し、セッショントークンとアカウント要約を返す。
//
// アカウント不存在とパスワード不一致はどちらも同一のInvalidCredentialsエラー
// になる（どちらが原因かを漏らさない）。ログイン日が誕生日の場合は
// ボーナスポイントを付与するが、同一暦日の再ログインでは再付与しない。
func (s *Service) Login(ctx context.Context, studentID, password string) (*LoginResult, error) {
	account, err := s.accounts.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	profile, err := s.profiles.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	// 誕生日判定と付与ガードの暦日を同じ時刻で揃える
	now := time.Now()

	points := account.Points
	if isBirthday(profile.Birthdate, now) {
		granted, err := s.accounts.GrantBirthdayBonus(ctx, studentID, s.birthdayBonus, now)
		if err != nil {
			return nil, fmt.Errorf("failed to grant birthday bonus: %w", err)
		}
		if granted {
			points += s.birthdayBonus
			slog.Info("birthday bonus granted",
				slog.String("student_id", studentID),
				slog.Int("bonus", s.birthdayBonus),
			)
		}
	}

	token, err := s.tokens.Issue(account.ID, account.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("login succeeded", slog.String("student_id", studentID))

	return &LoginResult{
		Token: token,
		Summary: AccountSummary{
			IDNumber:    account.StudentID,
			FirstName:   profile.FirstName,
			LastName:    profile.LastName,
			Program:     profile.Program,
			Points:      points,
			MemberSince: account.MemberSince,
			AvatarURL:   profile.AvatarURL,
		},
	}, nil
}

// isBirthday はnowの月日がbirthdateの月日と一致するかを判定する。
func isBirthday(birthdate, now time.Time) bool {
	return birthdate.Month() == now.Month() && birthdate.Day() == now.Day()
}
