// Package token はセッショントークンの発行と検証を提供する。
//
// トークンはHMAC-SHA256署名付きのJWTで、アカウントIDと学籍番号を埋め込む。
// サーバー側に状態を持たないため失効リストは存在せず、署名が正しく
// 有効期限内であれば常に認証が成立する（ログアウトはCookie削除のみ）。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenMissing はトークンが提示されなかったことを表す。
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenInvalid は署名検証失敗またはペイロード不正を表す。
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired は有効期限切れを表す。
	ErrTokenExpired = errors.New("token expired")
)

// Claims はセッショントークンに埋め込むクレーム。
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId"`
	StudentID string `json:"studentId"`
}

// Service はトークンの発行と検証を行う。
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService はServiceを生成する。
// secretには暗号的に安全なランダム文字列を指定すること。
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue はアカウントIDと学籍番号を埋め込んだ署名付きトークンを発行する。
// 有効期限は発行時刻からの絶対時間（デフォルト1時間）。
func (s *Service) Issue(accountID, studentID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		AccountID: accountID,
		StudentID: studentID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンを検証し、クレームを返す。
// 失敗はErrTokenMissing / ErrTokenExpired / ErrTokenInvalidのいずれかに分類される。
func (s *Service) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid || claims.AccountID == "" || claims.StudentID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
