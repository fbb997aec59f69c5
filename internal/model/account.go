// Package model はドメインモデルを定義する。
package model

import "time"

// Account は認証情報とポイント残高を保持する会員レコードを表す。
// StudentIDは登録後に変更できない一意な識別子。
type Account struct {
	ID                  string
	StudentID           string
	PasswordHash        string
	Points              int
	MemberSince         time.Time
	IsActive            bool
	LastBirthdayBonusOn *time.Time
}

// Profile はAccountと1:1で対応する個人・学籍情報を表す。
// AvatarURLは未設定の場合は空文字列。
type Profile struct {
	ID        string
	StudentID string
	FirstName string
	LastName  string
	Program   string
	Birthdate time.Time
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction は購入履歴の1件を表す。作成後は変更されない追記専用台帳。
// PointsEarnedはfloor(Amount / ポイント換算レート)で導出される。
type Transaction struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"idNumber"`
	Item         string    `json:"item"`
	Amount       float64   `json:"amount"`
	PointsEarned int       `json:"pointsEarned"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProfileView はAccountとProfileを結合したAPI応答用のビュー。
// Ageは誕生日の月日を考慮して計算される（今年の誕生日前なら1引く）。
type ProfileView struct {
	IDNumber    string    `json:"idNumber"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Program     string    `json:"program"`
	Birthdate   string    `json:"birthdate"`
	Age         int       `json:"age"`
	Points      int       `json:"points"`
	MemberSince time.Time `json:"memberSince"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
}
