// Package profile はプロフィールの参照・更新・アバター反映のビジネスロジックを提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/campuspoint/internal/model"
	"github.com/hitoshi/campuspoint/internal/repository"
)

// Notifier はライブ接続への状態変更通知のインターフェース。
type Notifier interface {
	Notify(studentID, event string, payload any)
}

// UpdateInput はプロフィール更新リクエストの入力値。
type UpdateInput struct {
	FirstName string
	LastName  string
	Program   string
	Birthdate time.Time
}

// Service はプロフィールのユースケースを実装する。
type Service struct {
	accounts repository.AccountRepository
	profiles repository.ProfileRepository
	notifier Notifier
}

// NewService はServiceを生成する。
func NewService(accounts repository.AccountRepository, profiles repository.ProfileRepository, notifier Notifier) *Service {
	return &Service{
		accounts: accounts,
		profiles: profiles,
		notifier: notifier,
	}
}

// Get はアカウントとプロフィールを結合したビューを返す。
func (s *Service) Get(ctx context.Context, studentID string) (*model.ProfileView, error) {
	return s.composeView(ctx, studentID)
}

// Update は可変フィールドを上書きし、更新後のビューを返す。
// 成功時にはprofileUpdatedイベントをライブ接続へ通知する。
func (s *Service) Update(ctx context.Context, studentID string, input UpdateInput) (*model.ProfileView, error) {
	current, err := s.profiles.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if current == nil {
		return nil, model.NewAccountNotFoundError()
	}

	current.FirstName = input.FirstName
	current.LastName = input.LastName
	current.Program = input.Program
	current.Birthdate = input.Birthdate
	current.UpdatedAt = time.Now()

	if err := s.profiles.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	view, err := s.composeView(ctx, studentID)
	if err != nil {
		return nil, err
	}

	slog.Info("profile updated", slog.String("student_id", studentID))
	s.notifier.Notify(studentID, "profileUpdated", view)

	return view, nil
}

// UpdateAvatar はアバター参照のみを更新し、新しい参照URLを返す。
func (s *Service) UpdateAvatar(ctx context.Context, studentID, avatarURL string) error {
	if err := s.profiles.UpdateAvatarURL(ctx, studentID, avatarURL); err != nil {
		return fmt.Errorf("failed to update avatar url: %w", err)
	}

	slog.Info("avatar updated",
		slog.String("student_id", studentID),
		slog.String("avatar_url", avatarURL),
	)
	return nil
}

// composeView はAccountとProfileを結合してProfileViewを組み立てる。
func (s *Service) composeView(ctx context.Context, studentID string) (*model.ProfileView, error) {
	account, err := s.accounts.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}

	profile, err := s.profiles.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewAccountNotFoundError()
	}

	return &model.ProfileView{
		IDNumber:    account.StudentID,
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		Program:     profile.Program,
		Birthdate:   profile.Birthdate.Format("2006-01-02"),
		Age:         ageAt(profile.Birthdate, time.Now()),
		Points:      account.Points,
		MemberSince: account.MemberSince,
		AvatarURL:   profile.AvatarURL,
	}, nil
}

// ageAt はnow時点の満年齢を計算する。今年の誕生日前なら1引く。
func ageAt(birthdate, now time.Time) int {
	age := now.Year() - birthdate.Year()
	if now.Month() < birthdate.Month() ||
		(now.Month() == birthdate.Month() && now.Day() < birthdate.Day()) {
		age--
	}
	return age
}
