// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/campuspoint/internal/model"
	"github.com/hitoshi/campuspoint/internal/token"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "access_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みアイデンティティを格納するためのキー。
var identityContextKey = contextKey("identity")

// Identity はセッショントークンから解決された認証済みアイデンティティ。
// ハンドラーへは動的なフィールド注入ではなく、この型付きの値として明示的に渡す。
type Identity struct {
	AccountID string
	StudentID string
}

// TokenVerifier はトークン検証に必要なインターフェース。
// token.Serviceの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッショントークンを読み取り、
// 検証するミドルウェアを返す。認証済みアイデンティティをリクエストコンテキストに注入する。
// トークン未提示は401、署名不正・期限切れは403で短絡し、ハンドラーは実行されない。
func NewSessionMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからトークンを取得
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
				return
			}

			// 2. トークンの検証
			claims, err := verifier.Verify(cookie.Value)
			if err != nil {
				if errors.Is(err, token.ErrTokenMissing) {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenMissingError())
					return
				}
				WriteErrorResponse(w, http.StatusForbidden, model.NewTokenInvalidError())
				return
			}

			// 3. 認証済みアイデンティティをコンテキストに注入
			identity := Identity{
				AccountID: claims.AccountID,
				StudentID: claims.StudentID,
			}
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みアイデンティティを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	if !ok || identity.StudentID == "" {
		return Identity{}, errors.New("identity not found in context")
	}
	return identity, nil
}

// ContextWithIdentity はコンテキストにアイデンティティを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
